package ui

import (
	"context"

	"opmenu/internal/hardware"
	"opmenu/internal/properties"

	"go.uber.org/zap"
)

// RestoreSettings applies the hardware settings pages have stored in props
// to svc. Keys that were never stored leave the service at its own default.
// Failures are logged and do not stop the remaining settings.
func RestoreSettings(ctx context.Context, svc hardware.Services, props properties.Getter, logger *zap.Logger) {
	if props == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	stored := func(key string) bool { return props.GetValue(key, nil) != nil }
	warn := func(what string, err error) {
		if err != nil {
			logger.Warn("restore setting", zap.String("setting", what), zap.Error(err))
		}
	}

	if a := svc.Audio; a != nil {
		if stored(properties.KeyAudioVolume) {
			warn("volume", a.SetVolume(properties.Get(props, properties.KeyAudioVolume, a.Volume())))
		}
		if stored(properties.KeyAudioMuted) {
			a.SetMuted(properties.Get(props, properties.KeyAudioMuted, a.Muted()))
		}
	}
	if e := svc.EdgeLights; e != nil && stored(properties.KeyEdgeLightBrightness) {
		warn("brightness", e.SetBrightness(properties.Get(props, properties.KeyEdgeLightBrightness, e.Brightness())))
	}
	if c := svc.Coins; c != nil && stored(properties.KeyCoinDivert) {
		divert := hardware.DivertCashbox
		if properties.Get(props, properties.KeyCoinDivert, "") == hardware.DivertHopper.String() {
			divert = hardware.DivertHopper
		}
		warn("divert", c.SetDivert(divert))
	}
	if n := svc.Network; n != nil && stored(properties.KeyNetworkDHCP) {
		if cfg, ok := storedNetwork(props); ok {
			warn("network", n.Apply(ctx, cfg))
		}
	}
}

// storedNetwork reads the configuration written by persistNetwork. A static
// configuration without an address is ignored.
func storedNetwork(props properties.Getter) (hardware.NetworkConfig, bool) {
	cfg := hardware.NetworkConfig{
		DHCP: properties.Get(props, properties.KeyNetworkDHCP, false),
		DNS:  splitDNS(properties.Get(props, properties.KeyNetworkDNS, "")),
	}
	if !cfg.DHCP {
		cfg.IP = properties.Get(props, properties.KeyNetworkIP, "")
		cfg.Mask = properties.Get(props, properties.KeyNetworkMask, "")
		cfg.Gateway = properties.Get(props, properties.KeyNetworkGateway, "")
		if cfg.IP == "" {
			return cfg, false
		}
	}
	return cfg, true
}
