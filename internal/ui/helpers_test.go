package ui

import (
	"regexp"
	"testing"
	"time"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware/sim"
	"opmenu/internal/localization"
	"opmenu/internal/properties"

	tea "github.com/charmbracelet/bubbletea"
)

// newTestDeps wires pages to a simulated cabinet with fast reel moves.
func newTestDeps(t *testing.T) (Deps, *sim.Simulator) {
	t.Helper()
	bus := eventbus.New(nil)
	props, err := properties.NewManager(properties.WithBus(bus))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	loc, err := localization.New(props, bus, nil)
	if err != nil {
		t.Fatalf("localization.New: %v", err)
	}
	cfg := sim.DefaultConfig()
	cfg.MoveDelay = time.Millisecond
	s := sim.New(bus, cfg, nil)
	t.Cleanup(s.Stop)
	return Deps{
		Services:    s.Services(),
		Bus:         bus,
		Props:       props,
		Loc:         loc,
		ManifestDir: t.TempDir(),
		SettingsDir: t.TempDir(),
	}, s
}

// missingResource matches the marker printed for unknown localization keys.
var missingResource = regexp.MustCompile(`#[A-Z][A-Za-z]*(\.[A-Za-z0-9_]+)+#`)

func assertLocalized(t *testing.T, name, out string) {
	t.Helper()
	if m := missingResource.FindString(out); m != "" {
		t.Errorf("%s: missing resource %s in:\n%s", name, m, out)
	}
}

// pump delivers the event pending on the page's bridge.
func pump(t *testing.T, p Page) {
	t.Helper()
	cmd := p.Init()
	if cmd == nil {
		t.Fatal("page has no listener")
	}
	p.Update(cmd())
}

// runAction executes cmd, which must produce an actionDoneMsg, and feeds it
// back to v.
func runAction(t *testing.T, v View, cmd tea.Cmd) actionDoneMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected an action command")
	}
	got := cmd()
	msg, ok := got.(actionDoneMsg)
	if !ok {
		t.Fatalf("expected actionDoneMsg, got %T", got)
	}
	v.Update(msg)
	return msg
}
