package ui

import (
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/properties"
	"opmenu/internal/ui/textutil"

	tea "github.com/charmbracelet/bubbletea"
)

// DoorsPage lists cabinet doors with their state and last-opened time.
type DoorsPage struct {
	pageBase
	doors []hardware.Door
	sel   cursor
}

var _ Page = (*DoorsPage)(nil)

func NewDoorsPage(deps Deps) *DoorsPage {
	p := &DoorsPage{}
	p.pageBase = newPageBase(deps, p,
		eventbus.TypeOf[hardware.DoorOpenedEvent](),
		eventbus.TypeOf[hardware.DoorClosedEvent](),
	)
	p.refresh()
	return p
}

func (p *DoorsPage) Title() string { return p.t("Doors.Title") }

func (p *DoorsPage) refresh() {
	if svc := p.deps.Services.Doors; svc != nil {
		p.doors = svc.Doors()
	}
}

func (p *DoorsPage) Init() tea.Cmd { return p.listen() }

func (p *DoorsPage) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case eventbus.EventMsg:
		if !p.mine(msg) {
			return p, nil
		}
		p.refresh()
		return p, p.listen()
	case tea.WindowSizeMsg:
		p.resize(msg)
	case tea.KeyMsg:
		if navKey(&p.sel, msg.String(), len(p.doors)) {
			return p, nil
		}
		if msg.String() == "a" {
			on := !propGet(p.deps.Props, properties.KeyDoorAlarmEnabled, true)
			propSet(p.deps.Props, properties.KeyDoorAlarmEnabled, on)
			p.setStatus(p.t(onOffKey("Doors.Alarm", on)))
		}
	}
	return p, nil
}

func (p *DoorsPage) View() string {
	if p.deps.Services.Doors == nil {
		return p.unavailable(p.Title())
	}
	rows := [][]string{{p.t("Doors.Door"), p.t("Doors.State"), p.t("Doors.LastOpened")}}
	for _, d := range p.doors {
		state := p.t("Doors.Closed")
		if d.Open {
			state = p.t("Doors.Open")
		}
		last := p.t("Common.Never")
		if !d.LastOpened.IsZero() {
			last = d.LastOpened.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{d.Name, state, last})
	}
	widths := textutil.ColumnWidths(rows, 28)
	var b strings.Builder
	b.WriteString("  " + Styles.Section.Render(textutil.Row(rows[0], widths)))
	sel := p.sel.at(len(p.doors))
	for i, d := range p.doors {
		line := textutil.Row(rows[i+1], widths)
		if d.Open {
			line = Styles.On.Render(line)
		}
		b.WriteString("\n" + marker(i == sel) + line)
	}
	alarm := propGet(p.deps.Props, properties.KeyDoorAlarmEnabled, true)
	b.WriteString("\n\n" + p.t(onOffKey("Doors.Alarm", alarm)))
	return p.frame(p.Title(), b.String(), p.t("Doors.Hint"))
}

func (p *DoorsPage) Close() { p.closeBase() }

// onOffKey appends ".On" or ".Off" to a localization key.
func onOffKey(key string, on bool) string {
	if on {
		return key + ".On"
	}
	return key + ".Off"
}
