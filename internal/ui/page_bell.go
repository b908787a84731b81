package ui

import (
	"context"
	"time"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"

	tea "github.com/charmbracelet/bubbletea"
)

// Bell ring durations the operator can pick from.
var bellDurations = []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}

// BellPage rings the cabinet bell.
type BellPage struct {
	pageBase
	ringing  bool
	duration int // index into bellDurations
}

var _ Page = (*BellPage)(nil)

func NewBellPage(deps Deps) *BellPage {
	p := &BellPage{duration: 1}
	p.pageBase = newPageBase(deps, p, eventbus.TypeOf[hardware.BellStateEvent]())
	p.refresh()
	return p
}

func (p *BellPage) Title() string { return p.t("Bell.Title") }

func (p *BellPage) refresh() {
	if bell := p.deps.Services.Bell; bell != nil {
		p.ringing = bell.Ringing()
	}
}

func (p *BellPage) Init() tea.Cmd { return p.listen() }

func (p *BellPage) Update(msg tea.Msg) (View, tea.Cmd) {
	bell := p.deps.Services.Bell
	switch msg := msg.(type) {
	case eventbus.EventMsg:
		if !p.mine(msg) {
			return p, nil
		}
		p.refresh()
		return p, p.listen()
	case actionDoneMsg:
		if p.done(msg) {
			p.refresh()
		}
	case tea.WindowSizeMsg:
		p.resize(msg)
	case tea.KeyMsg:
		if bell == nil {
			return p, nil
		}
		switch msg.String() {
		case "enter", "r":
			d := bellDurations[p.duration]
			return p, p.run("bell.ring", map[string]string{"duration": d.String()}, func(ctx context.Context) error {
				return bell.Ring(ctx, d)
			})
		case "s":
			return p, p.run("bell.stop", nil, func(context.Context) error { return bell.Stop() })
		case "left", "h":
			p.duration = (p.duration + len(bellDurations) - 1) % len(bellDurations)
		case "right", "l":
			p.duration = (p.duration + 1) % len(bellDurations)
		}
	}
	return p, nil
}

func (p *BellPage) View() string {
	if p.deps.Services.Bell == nil {
		return p.unavailable(p.Title())
	}
	state := Styles.Off.Render(p.t("Bell.Idle"))
	if p.ringing {
		state = Styles.On.Render(p.t("Bell.Ringing"))
	}
	body := p.t("Bell.State") + ": " + state + "\n" +
		p.tf("Bell.Duration", bellDurations[p.duration].Seconds())
	return p.frame(p.Title(), body, p.t("Bell.Hint"))
}

// Close silences the bell if this page left it ringing.
func (p *BellPage) Close() {
	if p.closeBase() && p.deps.Services.Bell != nil && p.deps.Services.Bell.Ringing() {
		_ = p.deps.Services.Bell.Stop()
	}
}
