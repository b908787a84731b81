package ui

import (
	"context"
	"slices"
	"testing"

	"opmenu/internal/hardware"
	"opmenu/internal/properties"
)

func TestRestoreSettings_AppliesStoredValues(t *testing.T) {
	deps, _ := newTestDeps(t)
	props := deps.Props
	propSet(props, properties.KeyAudioVolume, 15)
	propSet(props, properties.KeyAudioMuted, true)
	propSet(props, properties.KeyEdgeLightBrightness, 40)
	propSet(props, properties.KeyCoinDivert, hardware.DivertHopper.String())
	persistNetwork(props, hardware.NetworkConfig{
		IP: "172.16.0.9", Mask: "255.255.255.0", Gateway: "172.16.0.1", DNS: []string{"172.16.0.2"},
	})

	svc := deps.Services
	RestoreSettings(context.Background(), svc, props, nil)

	if got := svc.Audio.Volume(); got != 15 {
		t.Errorf("volume = %d", got)
	}
	if !svc.Audio.Muted() {
		t.Error("audio should be muted")
	}
	if got := svc.EdgeLights.Brightness(); got != 40 {
		t.Errorf("brightness = %d", got)
	}
	if got := svc.Coins.State().Divert; got != hardware.DivertHopper {
		t.Errorf("divert = %v", got)
	}
	net := svc.Network.Config()
	if net.IP != "172.16.0.9" || net.Gateway != "172.16.0.1" || !slices.Equal(net.DNS, []string{"172.16.0.2"}) {
		t.Errorf("network = %+v", net)
	}
}

func TestRestoreSettings_LeavesUnstoredDefaults(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc := deps.Services
	want := svc.Network.Config()

	RestoreSettings(context.Background(), svc, deps.Props, nil)

	if got := svc.Audio.Volume(); got != 50 {
		t.Errorf("volume = %d", got)
	}
	if got := svc.EdgeLights.Brightness(); got != 80 {
		t.Errorf("brightness = %d", got)
	}
	if got := svc.Network.Config(); got.IP != want.IP || got.DHCP != want.DHCP {
		t.Errorf("network = %+v, want %+v", got, want)
	}
}

func TestRestoreSettings_BadValueDoesNotStopTheRest(t *testing.T) {
	deps, _ := newTestDeps(t)
	props := deps.Props
	propSet(props, properties.KeyAudioVolume, 400)
	propSet(props, properties.KeyEdgeLightBrightness, 10)
	propSet(props, properties.KeyNetworkDHCP, true)

	svc := deps.Services
	RestoreSettings(context.Background(), svc, props, nil)

	if got := svc.Audio.Volume(); got != 50 {
		t.Errorf("out of range volume should be rejected, got %d", got)
	}
	if got := svc.EdgeLights.Brightness(); got != 10 {
		t.Errorf("brightness = %d", got)
	}
	if !svc.Network.Config().DHCP {
		t.Error("DHCP should be restored")
	}
}
