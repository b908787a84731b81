package ui

import (
	"strings"
	"testing"

	"opmenu/internal/hardware"
	"opmenu/internal/localization"

	tea "github.com/charmbracelet/bubbletea"
)

func refreshMenu(t *testing.T, m *MenuView) {
	t.Helper()
	batch, ok := m.Refresh()().(tea.BatchMsg)
	if !ok {
		t.Fatal("expected refresh batch")
	}
	m.Update(batch[0]())
}

func TestMenuView_JKNavigation(t *testing.T) {
	deps, _ := newTestDeps(t)
	m := NewMenuView(deps)
	m.SetSize(60, 40)
	last := len(Pages()) - 1

	if m.Selected() != 0 {
		t.Fatalf("expected initial selection 0, got %d", m.Selected())
	}
	m.Update(keyMsg("j"))
	m.Update(keyMsg("j"))
	if m.Selected() != 2 {
		t.Errorf("after j j: got %d", m.Selected())
	}
	m.Update(keyMsg("k"))
	if m.Selected() != 1 {
		t.Errorf("after k: got %d", m.Selected())
	}
	m.Update(keyMsg("G"))
	if m.Selected() != last {
		t.Errorf("after G: got %d, want %d", m.Selected(), last)
	}
	m.Update(keyMsg("g"))
	if m.Selected() != 0 {
		t.Errorf("after g: got %d", m.Selected())
	}
	m.Update(keyMsg("k"))
	if m.Selected() != 0 {
		t.Errorf("k at top: got %d", m.Selected())
	}
}

func TestMenuView_EnterOpensPage(t *testing.T) {
	deps, _ := newTestDeps(t)
	m := NewMenuView(deps)
	m.SetSize(60, 40)
	m.Update(keyMsg("j"))

	_, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(OpenPageMsg)
	if !ok || msg.ID != "keys" {
		t.Errorf("got %#v", cmd())
	}
}

func TestMenuView_RefreshBadges(t *testing.T) {
	deps, s := newTestDeps(t)
	s.SetDoor(1, true)
	s.SetDoor(2, true)
	m := NewMenuView(deps)
	m.SetSize(80, 40)

	refreshMenu(t, m)
	if m.loading {
		t.Error("loading should end with the status message")
	}
	if got := m.badges["doors"].text; got != "2 open" {
		t.Errorf("doors badge = %q", got)
	}
	if got := m.badges["settings"].text; got != "No serial number" {
		t.Errorf("settings badge = %q", got)
	}
	if got := m.badges["hash"].text; got != "SHA256" {
		t.Errorf("hash badge = %q", got)
	}
	if _, ok := m.badges["buttons"]; ok {
		t.Error("buttons has no status and should have no badge")
	}
	out := m.View()
	if !strings.Contains(out, "2 open") {
		t.Errorf("badge not rendered:\n%s", out)
	}
	assertLocalized(t, "menu", out)
}

func TestMenuView_MissingServiceBadge(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Services = hardware.Services{}
	m := NewMenuView(deps)
	m.SetSize(80, 40)

	refreshMenu(t, m)
	b := m.badges["reels"]
	if !b.err || b.text != "Not available" {
		t.Errorf("reels badge = %+v", b)
	}
}

func TestMenuView_RelocalizeFollowsCulture(t *testing.T) {
	deps, _ := newTestDeps(t)
	m := NewMenuView(deps)
	m.SetSize(80, 40)

	if err := deps.Loc.SetCulture(localization.Operator, "fr-CA"); err != nil {
		t.Fatal(err)
	}
	m.Relocalize()
	out := m.View()
	if !strings.Contains(out, "Portes") {
		t.Errorf("expected French titles:\n%s", out)
	}
	assertLocalized(t, "menu fr-CA", out)
}

func TestFindPage(t *testing.T) {
	spec, ok := FindPage("network")
	if !ok || spec.TitleKey != "Network.Title" {
		t.Errorf("FindPage(network) = %+v, %v", spec, ok)
	}
	if _, ok := FindPage("nope"); ok {
		t.Error("unknown id should not be found")
	}
	seen := map[string]bool{}
	for _, s := range Pages() {
		if seen[s.ID] {
			t.Errorf("duplicate page id %q", s.ID)
		}
		seen[s.ID] = true
	}
}
