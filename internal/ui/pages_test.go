package ui

import (
	"strings"
	"testing"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/properties"
)

func TestPages_CloseUnsubscribes(t *testing.T) {
	deps, _ := newTestDeps(t)
	for _, spec := range Pages() {
		p := spec.Open(deps)
		base := pageBaseOf(p)
		if base == nil {
			t.Fatalf("%s: page does not embed pageBase", spec.ID)
		}
		p.Close()
		if base.bridge != nil && deps.Bus.Count(base.bridge) != 0 {
			t.Errorf("%s: %d subscriptions left after Close", spec.ID, deps.Bus.Count(base.bridge))
		}
		p.Close() // second Close is a no-op
	}
}

func TestPages_RenderLocalized(t *testing.T) {
	deps, _ := newTestDeps(t)
	for _, spec := range Pages() {
		p := spec.Open(deps)
		assertLocalized(t, spec.ID, p.Title()+"\n"+p.View())
		p.Close()
	}
}

func TestPages_NilServicesRenderUnavailable(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Services = hardware.Services{}
	for _, id := range []string{"doors", "keys", "buttons", "bell", "reels", "edgelight", "sound", "coins", "network"} {
		spec, _ := FindPage(id)
		p := spec.Open(deps)
		p.Update(keyMsg("enter"))
		if !strings.Contains(p.View(), "Not available") {
			t.Errorf("%s: expected unavailable state, got:\n%s", id, p.View())
		}
		p.Close()
	}
}

func pageBaseOf(p Page) *pageBase {
	switch v := p.(type) {
	case *DoorsPage:
		return &v.pageBase
	case *KeySwitchesPage:
		return &v.pageBase
	case *ButtonsPage:
		return &v.pageBase
	case *BellPage:
		return &v.pageBase
	case *ReelsPage:
		return &v.pageBase
	case *EdgeLightingPage:
		return &v.pageBase
	case *SoundPage:
		return &v.pageBase
	case *CoinAcceptorPage:
		return &v.pageBase
	case *NetworkPage:
		return &v.pageBase
	case *HashPage:
		return &v.pageBase
	case *MachineSettingsPage:
		return &v.pageBase
	}
	return nil
}

func TestDoorsPage_RefreshesOnEvent(t *testing.T) {
	deps, s := newTestDeps(t)
	p := NewDoorsPage(deps)
	defer p.Close()

	if err := s.SetDoor(1, true); err != nil {
		t.Fatal(err)
	}
	pump(t, p)
	if !p.doors[0].Open {
		t.Error("expected Main Door open after event")
	}
	out := p.View()
	if !strings.Contains(out, "Main Door") || !strings.Contains(out, "Open") {
		t.Errorf("view missing open door:\n%s", out)
	}
}

func TestDoorsPage_IgnoresForeignBridge(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewDoorsPage(deps)
	defer p.Close()
	other := eventbus.NewBridge(deps.Bus, 1)
	defer other.Close()

	_, cmd := p.Update(eventbus.EventMsg{Event: hardware.DoorOpenedEvent{DoorID: 1}, From: other})
	if cmd != nil {
		t.Error("page should not re-listen for another bridge's event")
	}
}

func TestDoorsPage_AlarmToggleStored(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewDoorsPage(deps)
	defer p.Close()

	p.Update(keyMsg("a"))
	if properties.Get(deps.Props, properties.KeyDoorAlarmEnabled, true) {
		t.Error("expected door alarm disabled")
	}
	p.Update(keyMsg("a"))
	if !properties.Get(deps.Props, properties.KeyDoorAlarmEnabled, false) {
		t.Error("expected door alarm enabled")
	}
}

func TestKeySwitchesPage_CountsTurns(t *testing.T) {
	deps, s := newTestDeps(t)
	p := NewKeySwitchesPage(deps)
	defer p.Close()

	for i := 0; i < 2; i++ {
		if err := s.TurnKey(1, true); err != nil {
			t.Fatal(err)
		}
		pump(t, p)
		if err := s.TurnKey(1, false); err != nil {
			t.Fatal(err)
		}
		pump(t, p)
	}
	if p.turns[1] != 2 {
		t.Errorf("turns = %d, want 2", p.turns[1])
	}
	if p.switches[0].On {
		t.Error("key 1 should be off")
	}
}

func TestButtonsPage_LampTest(t *testing.T) {
	deps, s := newTestDeps(t)
	p := NewButtonsPage(deps)
	lamps := deps.Services.Lamps

	p.Update(keyMsg("t"))
	if !p.lampTest {
		t.Fatal("expected lamp test on")
	}
	if err := s.PressButton(1, true); err != nil {
		t.Fatal(err)
	}
	pump(t, p)
	if on, _ := lamps.Lamp(1); !on {
		t.Error("press in lamp test should light the lamp")
	}
	if !p.buttons[0].Pressed {
		t.Error("button 1 should show pressed")
	}

	p.Close()
	if on, _ := lamps.Lamp(1); on {
		t.Error("Close should turn lamps off")
	}
}

func TestButtonsPage_PressOutsideLampTestLeavesLamps(t *testing.T) {
	deps, s := newTestDeps(t)
	p := NewButtonsPage(deps)
	defer p.Close()

	if err := s.PressButton(2, true); err != nil {
		t.Fatal(err)
	}
	pump(t, p)
	if on, _ := deps.Services.Lamps.Lamp(2); on {
		t.Error("lamp should stay off outside lamp test")
	}
}

func TestBellPage_RingAndCloseStops(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewBellPage(deps)

	_, cmd := p.Update(keyMsg("r"))
	msg := runAction(t, p, cmd)
	if msg.err != nil {
		t.Fatalf("ring: %v", msg.err)
	}
	if !deps.Services.Bell.Ringing() {
		t.Fatal("expected bell ringing")
	}
	if !strings.Contains(p.View(), "Ringing") {
		t.Errorf("view should show ringing:\n%s", p.View())
	}
	p.Close()
	if deps.Services.Bell.Ringing() {
		t.Error("Close should stop the bell")
	}
}

func TestReelsPage_SpinToNextStop(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewReelsPage(deps)
	defer p.Close()

	_, cmd := p.Update(keyMsg("l"))
	msg := runAction(t, p, cmd)
	if msg.err != nil {
		t.Fatalf("spin: %v", msg.err)
	}
	want, _ := p.deps.Geometry.StopToSteps(1)
	if got := p.reels[0].Step; got != want {
		t.Errorf("reel 1 step = %d, want %d", got, want)
	}
	if !strings.Contains(p.View(), "Stopped") {
		t.Errorf("view should show stopped reel:\n%s", p.View())
	}
}

func TestReelsPage_HomeAll(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewReelsPage(deps)
	defer p.Close()

	_, cmd := p.Update(keyMsg("O"))
	msg := runAction(t, p, cmd)
	if msg.err != nil || msg.action != "reel.home_all" {
		t.Fatalf("home all: action=%s err=%v", msg.action, msg.err)
	}
	for _, r := range deps.Services.Reels.Reels() {
		if r.State != hardware.ReelStopped {
			t.Errorf("reel %d state = %v", r.ID, r.State)
		}
	}
}

func TestReelsPage_FaultShown(t *testing.T) {
	deps, s := newTestDeps(t)
	p := NewReelsPage(deps)
	defer p.Close()

	if err := s.FaultReel(2, "tamper"); err != nil {
		t.Fatal(err)
	}
	pump(t, p)
	out := p.View()
	if !strings.Contains(out, "tamper") || !strings.Contains(out, "Faulted") {
		t.Errorf("view should show fault:\n%s", out)
	}
}

func TestEdgeLightingPage_BrightnessAndClose(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewEdgeLightingPage(deps)
	svc := deps.Services.EdgeLights
	start := svc.Brightness()

	p.Update(keyMsg("+"))
	if svc.Brightness() != min(start+10, 100) {
		t.Errorf("brightness = %d", svc.Brightness())
	}
	if got := properties.Get(deps.Props, properties.KeyEdgeLightBrightness, -1); got != svc.Brightness() {
		t.Errorf("stored brightness = %d", got)
	}

	p.Update(keyMsg("c"))
	if !svc.Strips()[0].Overridden {
		t.Fatal("color test should override strip 1")
	}
	_, cmd := p.Update(keyMsg("f"))
	if cmd == nil {
		t.Fatal("flash should schedule a tick")
	}
	p.Close()
	for _, s := range svc.Strips() {
		if s.Overridden {
			t.Errorf("strip %d still overridden after Close", s.ID)
		}
	}
	if p.flashing {
		t.Error("flash should stop on Close")
	}
}

func TestEdgeLightingPage_StaleTickIgnored(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewEdgeLightingPage(deps)
	defer p.Close()

	p.Update(keyMsg("f"))
	stale := flashTickMsg{owner: p, gen: p.flashGen}
	p.Update(keyMsg("f")) // off
	_, cmd := p.Update(stale)
	if cmd != nil {
		t.Error("tick from a stopped flash should not reschedule")
	}
}

func TestEdgeLightingPage_IntervalClamped(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewEdgeLightingPage(deps)
	defer p.Close()

	for i := 0; i < 40; i++ {
		p.Update(keyMsg(">"))
	}
	if p.interval != maxFlashInterval {
		t.Errorf("interval = %v, want %v", p.interval, maxFlashInterval)
	}
	for i := 0; i < 40; i++ {
		p.Update(keyMsg("<"))
	}
	if p.interval != minFlashInterval {
		t.Errorf("interval = %v, want %v", p.interval, minFlashInterval)
	}
}

func TestSoundPage_VolumeAndMute(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewSoundPage(deps)
	defer p.Close()
	audio := deps.Services.Audio
	start := audio.Volume()

	p.Update(keyMsg("-"))
	if audio.Volume() != start-volumeStep {
		t.Errorf("volume = %d, want %d", audio.Volume(), start-volumeStep)
	}
	p.Update(keyMsg("m"))
	if !audio.Muted() {
		t.Error("expected muted")
	}
	if !properties.Get(deps.Props, properties.KeyAudioMuted, false) {
		t.Error("mute should be stored")
	}
	if !strings.Contains(p.View(), "Muted") {
		t.Errorf("view should show muted:\n%s", p.View())
	}
}

func TestCoinAcceptorPage_TallyAndDivert(t *testing.T) {
	deps, s := newTestDeps(t)
	p := NewCoinAcceptorPage(deps)
	defer p.Close()

	for _, c := range []int64{25, 100} {
		if err := s.InsertCoin(c); err != nil {
			t.Fatal(err)
		}
		pump(t, p)
	}
	if p.count != 2 || p.total != 125 {
		t.Errorf("tally = %d coins %d cents", p.count, p.total)
	}

	p.Update(keyMsg("d"))
	if deps.Services.Coins.State().Divert != hardware.DivertHopper {
		t.Error("expected divert to hopper")
	}
	if got := properties.Get(deps.Props, properties.KeyCoinDivert, ""); got != "Hopper" {
		t.Errorf("stored divert = %q", got)
	}

	p.Update(keyMsg("e"))
	if deps.Services.Coins.State().Enabled {
		t.Error("expected acceptor disabled")
	}
	if err := s.InsertCoin(5); err == nil {
		t.Error("disabled acceptor should refuse coins")
	}

	p.Update(keyMsg("r"))
	if p.count != 0 || len(p.last) != 0 {
		t.Error("reset should clear the tally")
	}
}
