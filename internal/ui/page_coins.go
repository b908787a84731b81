package ui

import (
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/properties"

	tea "github.com/charmbracelet/bubbletea"
)

// CoinAcceptorPage toggles the acceptor and its divert, and tallies coins
// accepted while the page is open.
type CoinAcceptorPage struct {
	pageBase
	state hardware.CoinAcceptorState
	count int
	total int64
	last  []hardware.CoinInEvent
}

var _ Page = (*CoinAcceptorPage)(nil)

// coinHistory is how many recent coins the page lists.
const coinHistory = 8

func NewCoinAcceptorPage(deps Deps) *CoinAcceptorPage {
	p := &CoinAcceptorPage{}
	p.pageBase = newPageBase(deps, p,
		eventbus.TypeOf[hardware.CoinInEvent](),
		eventbus.TypeOf[hardware.DivertChangedEvent](),
	)
	p.refresh()
	return p
}

func (p *CoinAcceptorPage) Title() string { return p.t("Coins.Title") }

func (p *CoinAcceptorPage) refresh() {
	if svc := p.deps.Services.Coins; svc != nil {
		p.state = svc.State()
	}
}

func (p *CoinAcceptorPage) Init() tea.Cmd { return p.listen() }

func (p *CoinAcceptorPage) Update(msg tea.Msg) (View, tea.Cmd) {
	svc := p.deps.Services.Coins
	switch msg := msg.(type) {
	case eventbus.EventMsg:
		if !p.mine(msg) {
			return p, nil
		}
		if ev, ok := msg.Event.(hardware.CoinInEvent); ok {
			p.count++
			p.total += ev.ValueCents
			p.last = append([]hardware.CoinInEvent{ev}, p.last...)
			if len(p.last) > coinHistory {
				p.last = p.last[:coinHistory]
			}
		}
		p.refresh()
		return p, p.listen()
	case tea.WindowSizeMsg:
		p.resize(msg)
	case tea.KeyMsg:
		if svc == nil {
			return p, nil
		}
		var err error
		switch msg.String() {
		case "d":
			next := p.state.Divert.Toggle()
			if err = svc.SetDivert(next); err == nil {
				propSet(p.deps.Props, properties.KeyCoinDivert, next.String())
			}
		case "e":
			if p.state.Enabled {
				err = svc.Disable()
			} else {
				err = svc.Enable()
			}
		case "r":
			p.count, p.total, p.last = 0, 0, nil
		default:
			return p, nil
		}
		if err != nil {
			p.setError(p.errText(err))
		}
		p.refresh()
	}
	return p, nil
}

func (p *CoinAcceptorPage) View() string {
	if p.deps.Services.Coins == nil {
		return p.unavailable(p.Title())
	}
	pr := p.deps.operator().Printer()
	var b strings.Builder
	enabled := Styles.Off.Render(p.t("Coins.Disabled"))
	if p.state.Enabled {
		enabled = Styles.StatusOK.Render(p.t("Coins.Enabled"))
	}
	b.WriteString(p.t("Coins.Acceptor") + ": " + enabled)
	b.WriteString("\n" + p.t("Coins.Divert") + ": " + p.t("Coins.Divert."+p.state.Divert.String()))
	if p.state.Faulted {
		b.WriteString("\n" + Styles.Fault.Render(p.t("Coins.Faulted")))
	}
	b.WriteString("\n\n" + p.tf("Coins.Tally", p.count, pr.Sprintf("%.2f", float64(p.total)/100)))
	for _, c := range p.last {
		b.WriteString("\n  " + c.At.Local().Format("15:04:05") + "  " +
			pr.Sprintf("%.2f", float64(c.ValueCents)/100) + "  " + p.t("Coins.Divert."+c.Divert.String()))
	}
	return p.frame(p.Title(), b.String(), p.t("Coins.Hint"))
}

func (p *CoinAcceptorPage) Close() { p.closeBase() }
