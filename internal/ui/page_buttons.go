package ui

import (
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/ui/textutil"

	tea "github.com/charmbracelet/bubbletea"
)

// ButtonsPage shows deck buttons as they are pressed and runs the lamp test:
// in lamp test every press toggles that button's lamp.
type ButtonsPage struct {
	pageBase
	buttons  []hardware.Button
	lamps    map[int]bool
	sel      cursor
	lampTest bool
	touched  bool // lamps were driven and must be cleared on Close
}

var _ Page = (*ButtonsPage)(nil)

func NewButtonsPage(deps Deps) *ButtonsPage {
	p := &ButtonsPage{lamps: make(map[int]bool)}
	p.pageBase = newPageBase(deps, p,
		eventbus.TypeOf[hardware.ButtonDownEvent](),
		eventbus.TypeOf[hardware.ButtonUpEvent](),
	)
	p.refresh()
	return p
}

func (p *ButtonsPage) Title() string { return p.t("Buttons.Title") }

func (p *ButtonsPage) refresh() {
	if svc := p.deps.Services.Buttons; svc != nil {
		p.buttons = svc.Buttons()
	}
	if lamps := p.deps.Services.Lamps; lamps != nil {
		for _, b := range p.buttons {
			if !b.HasLamp {
				continue
			}
			if on, err := lamps.Lamp(b.ID); err == nil {
				p.lamps[b.ID] = on
			}
		}
	}
}

func (p *ButtonsPage) Init() tea.Cmd { return p.listen() }

func (p *ButtonsPage) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case eventbus.EventMsg:
		if !p.mine(msg) {
			return p, nil
		}
		if ev, ok := msg.Event.(hardware.ButtonDownEvent); ok && p.lampTest {
			p.toggleLamp(ev.ButtonID)
		}
		p.refresh()
		return p, p.listen()
	case tea.WindowSizeMsg:
		p.resize(msg)
	case tea.KeyMsg:
		if navKey(&p.sel, msg.String(), len(p.buttons)) {
			return p, nil
		}
		switch msg.String() {
		case "t":
			p.lampTest = !p.lampTest
			p.setStatus(p.t(onOffKey("Buttons.LampTest", p.lampTest)))
			if !p.lampTest {
				p.clearLamps()
			}
		case "enter":
			if i := p.sel.at(len(p.buttons)); i >= 0 {
				p.toggleLamp(p.buttons[i].ID)
			}
		case "A":
			p.setAll(true)
		case "O":
			p.setAll(false)
		}
	}
	return p, nil
}

func (p *ButtonsPage) toggleLamp(id int) {
	lamps := p.deps.Services.Lamps
	if lamps == nil {
		p.setError(p.t("Common.Unavailable"))
		return
	}
	on, err := lamps.Lamp(id)
	if err == nil {
		err = lamps.SetLamp(id, !on)
	}
	if err != nil {
		p.setError(p.errText(err))
		return
	}
	p.touched = true
	p.lamps[id] = !on
}

func (p *ButtonsPage) setAll(on bool) {
	if lamps := p.deps.Services.Lamps; lamps != nil {
		lamps.SetAll(on)
		p.touched = true
		p.refresh()
	}
}

func (p *ButtonsPage) clearLamps() {
	if p.touched && p.deps.Services.Lamps != nil {
		p.deps.Services.Lamps.SetAll(false)
		p.touched = false
		p.refresh()
	}
}

func (p *ButtonsPage) View() string {
	if p.deps.Services.Buttons == nil {
		return p.unavailable(p.Title())
	}
	rows := [][]string{{p.t("Buttons.Button"), p.t("Buttons.State"), p.t("Buttons.Lamp")}}
	for _, b := range p.buttons {
		state := p.t("Buttons.Released")
		if b.Pressed {
			state = p.t("Buttons.Pressed")
		}
		lamp := "-"
		if b.HasLamp {
			lamp = p.t(onOffKey("Common", p.lamps[b.ID]))
		}
		rows = append(rows, []string{b.Name, state, lamp})
	}
	widths := textutil.ColumnWidths(rows, 24)
	var s strings.Builder
	s.WriteString("  " + Styles.Section.Render(textutil.Row(rows[0], widths)))
	sel := p.sel.at(len(p.buttons))
	for i, b := range p.buttons {
		line := textutil.Row(rows[i+1], widths)
		if b.Pressed {
			line = Styles.On.Render(line)
		}
		s.WriteString("\n" + marker(i == sel) + line)
	}
	s.WriteString("\n\n" + p.t(onOffKey("Buttons.LampTest", p.lampTest)))
	return p.frame(p.Title(), s.String(), p.t("Buttons.Hint"))
}

// Close turns off any lamps the page lit.
func (p *ButtonsPage) Close() {
	if p.closeBase() {
		p.clearLamps()
	}
}
