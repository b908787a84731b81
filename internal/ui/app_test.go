package ui

import (
	"strings"
	"testing"

	"opmenu/internal/hardware"
	"opmenu/internal/hardware/sim"
	"opmenu/internal/localization"
	"opmenu/internal/properties"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestApp(t *testing.T) (*AppModel, *appModelAdapter, *sim.Simulator) {
	t.Helper()
	deps, s := newTestDeps(t)
	deps.Props.SetProperty(properties.KeyWizardComplete, true)
	m := NewAppModel(deps)
	t.Cleanup(m.shutdown)
	return m, m.AsTeaModel().(*appModelAdapter), s
}

// send feeds msg and then the message its command produces. Page Init
// commands block on the bus, so OpenPageMsg goes through Update directly.
func send(a *appModelAdapter, msg tea.Msg) {
	_, cmd := a.Update(msg)
	if cmd == nil {
		return
	}
	if next := cmd(); next != nil {
		if _, ok := next.(tea.BatchMsg); !ok {
			a.Update(next)
		}
	}
}

func TestApp_OpenAndClosePage(t *testing.T) {
	m, a, _ := newTestApp(t)

	a.Update(OpenPageMsg{ID: "doors"})
	if m.Mode != ModePage || m.PageID != "doors" {
		t.Fatalf("mode=%v page=%q", m.Mode, m.PageID)
	}
	page, ok := m.Page.(*DoorsPage)
	if !ok {
		t.Fatalf("page is %T", m.Page)
	}
	if !m.Focus.Is(panelPage) {
		t.Error("page panel should have focus")
	}

	_, cmd := a.Update(keyMsg("esc"))
	if _, ok := cmd().(ClosePageMsg); !ok {
		t.Fatal("esc should close the page")
	}
	a.Update(ClosePageMsg{})
	if m.Mode != ModeMenu || m.Page != nil {
		t.Errorf("mode=%v page=%v", m.Mode, m.Page)
	}
	if n := m.Deps.Bus.Count(page.bridge); n != 0 {
		t.Errorf("%d subscriptions left after close", n)
	}
}

func TestApp_UnknownPageIgnored(t *testing.T) {
	m, a, _ := newTestApp(t)
	a.Update(OpenPageMsg{ID: "nope"})
	if m.Mode != ModeMenu || m.Page != nil {
		t.Error("unknown page should leave the menu showing")
	}
}

func TestApp_EveryPageRendersLocalized(t *testing.T) {
	m, a, _ := newTestApp(t)
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	for _, spec := range Pages() {
		a.Update(OpenPageMsg{ID: spec.ID})
		if m.PageID != spec.ID {
			t.Fatalf("page %s did not open", spec.ID)
		}
		assertLocalized(t, spec.ID, a.View())
	}
}

func TestApp_LeaderOpensEventLog(t *testing.T) {
	m, a, _ := newTestApp(t)

	a.Update(keyMsg(" "))
	if !m.KeyHandler.LeaderWaiting {
		t.Fatal("expected leader waiting after SPC")
	}
	view := a.View()
	if !strings.Contains(view, "Event log") {
		t.Errorf("leader help should list the event log:\n%s", view)
	}
	assertLocalized(t, "leader help", view)

	send(a, keyMsg("e"))
	top, ok := m.Overlays.Peek()
	if !ok || top.View != m.EventLog {
		t.Fatalf("expected event log overlay, got %d overlays", m.Overlays.Len())
	}
	a.Update(keyMsg("esc"))
	if m.Overlays.Len() != 0 {
		t.Error("esc should dismiss the event log")
	}
}

func TestApp_LeaderHelpOverlay(t *testing.T) {
	m, a, _ := newTestApp(t)
	a.Update(keyMsg(" "))
	send(a, keyMsg("?"))
	top, ok := m.Overlays.Peek()
	if !ok {
		t.Fatal("expected help overlay")
	}
	if _, ok := top.View.(*HelpView); !ok {
		t.Errorf("overlay is %T", top.View)
	}
	send(a, ShowHelpMsg{})
	if m.Overlays.Len() != 2 {
		t.Errorf("a new help view stacks, got %d overlays", m.Overlays.Len())
	}
	send(a, ShowEventLogMsg{})
	send(a, ShowEventLogMsg{})
	if m.Overlays.Len() != 3 {
		t.Errorf("the event log is pushed once, got %d overlays", m.Overlays.Len())
	}
}

func TestApp_SpaceGoesToCapturingField(t *testing.T) {
	m, a, _ := newTestApp(t)
	a.Update(OpenPageMsg{ID: "network"})
	a.Update(keyMsg("tab")) // dhcp toggle -> ip field

	if !capturing(m.Page) {
		t.Fatal("ip field should capture text")
	}
	a.Update(keyMsg(" "))
	if m.KeyHandler.LeaderWaiting {
		t.Error("SPC in a text field must not start a leader sequence")
	}
}

func TestApp_SpaceFlipsFocusedToggle(t *testing.T) {
	m, a, _ := newTestApp(t)
	a.Update(OpenPageMsg{ID: "network"})
	page := m.Page.(*NetworkPage)
	if !page.form.focus.Is("dhcp") {
		t.Fatal("dhcp toggle should have focus")
	}

	a.Update(tea.KeyMsg{Type: tea.KeySpace})
	if m.KeyHandler.LeaderWaiting {
		t.Error("SPC on a toggle must not start a leader sequence")
	}
	if !page.form.field("dhcp").on {
		t.Error("SPC should flip the focused toggle")
	}

	// A leader sequence already in progress still completes.
	m.KeyHandler.Handle(keyMsg(" "))
	send(a, keyMsg("e"))
	top, ok := m.Overlays.Peek()
	if !ok || top.View != m.EventLog {
		t.Error("SPC e should still open the event log once the leader is waiting")
	}
	if !page.form.field("dhcp").on {
		t.Error("the leader sequence must not reach the toggle")
	}
}

func TestApp_ClosePageDropsItsOverlays(t *testing.T) {
	m, a, _ := newTestApp(t)
	a.Update(OpenPageMsg{ID: "network"})
	page := m.Page.(*NetworkPage)
	send(a, keyMsg("ctrl+s"))
	if m.Overlays.Len() != 1 {
		t.Fatalf("expected confirmation overlay, got %d", m.Overlays.Len())
	}
	a.Update(ClosePageMsg{})
	if m.Overlays.Len() != 0 {
		t.Error("closing the page should drop its overlay")
	}
	if !page.closed {
		t.Error("page should be closed")
	}
}

func TestApp_QuitClosesEverything(t *testing.T) {
	m, a, _ := newTestApp(t)
	a.Update(OpenPageMsg{ID: "reels"})
	page := m.Page.(*ReelsPage)

	_, cmd := a.Update(QuitMsg{})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
	if n := m.Deps.Bus.Count(page.bridge); n != 0 {
		t.Errorf("%d page subscriptions left", n)
	}
	if n := m.Deps.Bus.Count(m.bridge); n != 0 {
		t.Errorf("%d app subscriptions left", n)
	}

	_, cmd = a.Update(keyMsg("ctrl+c"))
	if _, ok := cmd().(QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}

func TestApp_EventLogFollowsBus(t *testing.T) {
	m, a, s := newTestApp(t)
	if err := s.SetDoor(1, true); err != nil {
		t.Fatal(err)
	}
	a.Update(m.listen()())

	entries := m.EventLog.Entries()
	if len(entries) == 0 {
		t.Fatal("event log is empty")
	}
	last := entries[len(entries)-1]
	if last.Kind != "DoorOpenedEvent" {
		t.Errorf("kind = %q", last.Kind)
	}
	if !strings.Contains(last.Summary, "Main Door") {
		t.Errorf("summary = %q", last.Summary)
	}
}

func TestApp_NextCultureRelocalizes(t *testing.T) {
	m, a, _ := newTestApp(t)
	before := m.tr().Culture()

	a.Update(NextCultureMsg{})
	after := m.tr().Culture()
	if after == before {
		t.Fatalf("culture stayed %s", before)
	}
	if !strings.Contains(m.status, after) {
		t.Errorf("status = %q", m.status)
	}

	// Drain the bridge until the culture change arrives.
	for i := 0; i < 5; i++ {
		msg := m.listen()()
		a.Update(msg)
		if ev := m.EventLog.Entries(); len(ev) > 0 && ev[len(ev)-1].Kind == "CultureChangedEvent" {
			break
		}
	}
	if got := m.Deps.Loc.Culture(localization.Operator); got != after {
		t.Errorf("operator culture = %s", got)
	}
	assertLocalized(t, after, a.View())

	player := m.Deps.Loc.Culture(localization.Player)
	a.Update(NextCultureMsg{Player: true})
	if m.Deps.Loc.Culture(localization.Player) == player {
		t.Error("player culture did not change")
	}
	if m.Deps.Loc.Culture(localization.Operator) != after {
		t.Error("player change must not touch the operator culture")
	}
}

func TestApp_WizardStartsWhenIncomplete(t *testing.T) {
	deps, _ := newTestDeps(t)
	m := NewAppModel(deps)
	t.Cleanup(m.shutdown)
	a := m.AsTeaModel().(*appModelAdapter)

	batch, ok := a.Init()().(tea.BatchMsg)
	if !ok || len(batch) != 3 {
		t.Fatalf("expected menu, listener and wizard commands")
	}
	if _, ok := batch[2]().(StartWizardMsg); !ok {
		t.Fatal("expected StartWizardMsg")
	}

	send(a, StartWizardMsg{})
	if m.Mode != ModeWizard || m.Wizard == nil {
		t.Fatalf("mode=%v", m.Mode)
	}
	assertLocalized(t, "wizard", a.View())

	send(a, keyMsg("esc"))
	if m.Mode != ModeMenu || m.Wizard != nil {
		t.Errorf("esc on the first step should abandon, mode=%v", m.Mode)
	}
	if WizardComplete(deps.Props) {
		t.Error("abandoned wizard must not be marked complete")
	}
}

func TestApp_NoServicesStillRuns(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Services = hardware.Services{}
	deps.Props.SetProperty(properties.KeyWizardComplete, true)
	m := NewAppModel(deps)
	t.Cleanup(m.shutdown)
	a := m.AsTeaModel().(*appModelAdapter)

	for _, spec := range Pages() {
		a.Update(OpenPageMsg{ID: spec.ID})
		assertLocalized(t, spec.ID, a.View())
		a.Update(ClosePageMsg{})
	}
}
