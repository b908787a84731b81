package ui

import (
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/ui/textutil"

	tea "github.com/charmbracelet/bubbletea"
)

// KeySwitchesPage shows the position of each key switch.
type KeySwitchesPage struct {
	pageBase
	switches []hardware.KeySwitch
	turns    map[int]int
}

var _ Page = (*KeySwitchesPage)(nil)

func NewKeySwitchesPage(deps Deps) *KeySwitchesPage {
	p := &KeySwitchesPage{turns: make(map[int]int)}
	p.pageBase = newPageBase(deps, p,
		eventbus.TypeOf[hardware.KeyOnEvent](),
		eventbus.TypeOf[hardware.KeyOffEvent](),
	)
	p.refresh()
	return p
}

func (p *KeySwitchesPage) Title() string { return p.t("Keys.Title") }

func (p *KeySwitchesPage) refresh() {
	if svc := p.deps.Services.Keys; svc != nil {
		p.switches = svc.Switches()
	}
}

func (p *KeySwitchesPage) Init() tea.Cmd { return p.listen() }

func (p *KeySwitchesPage) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case eventbus.EventMsg:
		if !p.mine(msg) {
			return p, nil
		}
		if ev, ok := msg.Event.(hardware.KeyOnEvent); ok {
			p.turns[ev.SwitchID]++
		}
		p.refresh()
		return p, p.listen()
	case tea.WindowSizeMsg:
		p.resize(msg)
	}
	return p, nil
}

func (p *KeySwitchesPage) View() string {
	if p.deps.Services.Keys == nil {
		return p.unavailable(p.Title())
	}
	rows := [][]string{{p.t("Keys.Switch"), p.t("Keys.Position"), p.t("Keys.Turns")}}
	for _, k := range p.switches {
		rows = append(rows, []string{k.Name, p.t(onOffKey("Common", k.On)), p.tf("Common.Count", p.turns[k.ID])})
	}
	widths := textutil.ColumnWidths(rows, 28)
	var b strings.Builder
	b.WriteString("  " + Styles.Section.Render(textutil.Row(rows[0], widths)))
	for i, k := range p.switches {
		line := textutil.Row(rows[i+1], widths)
		if k.On {
			line = Styles.On.Render(line)
		}
		b.WriteString("\n  " + line)
	}
	return p.frame(p.Title(), b.String(), p.t("Keys.Hint"))
}

func (p *KeySwitchesPage) Close() { p.closeBase() }
