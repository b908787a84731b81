package ui

import (
	"context"
	"strconv"
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/ui/textutil"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// ReelsPage moves stepper reels by stop or by single steps and homes them.
type ReelsPage struct {
	pageBase
	reels []hardware.Reel
	sel   cursor
}

var _ Page = (*ReelsPage)(nil)

func NewReelsPage(deps Deps) *ReelsPage {
	p := &ReelsPage{}
	p.pageBase = newPageBase(deps, p,
		eventbus.TypeOf[hardware.ReelStatusEvent](),
		eventbus.TypeOf[hardware.ReelStoppedEvent](),
	)
	p.refresh()
	return p
}

func (p *ReelsPage) Title() string { return p.t("Reels.Title") }

func (p *ReelsPage) refresh() {
	if svc := p.deps.Services.Reels; svc != nil {
		p.reels = svc.Reels()
	}
}

func (p *ReelsPage) Init() tea.Cmd { return p.listen() }

func (p *ReelsPage) selected() (hardware.Reel, bool) {
	i := p.sel.at(len(p.reels))
	if i < 0 {
		return hardware.Reel{}, false
	}
	return p.reels[i], true
}

func (p *ReelsPage) Update(msg tea.Msg) (View, tea.Cmd) {
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
		if p.deps.Services.Reels == nil {
			return p, nil
		}
		if navKey(&p.sel, msg.String(), len(p.reels)) {
			return p, nil
		}
		r, ok := p.selected()
		if !ok {
			return p, nil
		}
		g := p.deps.Geometry
		switch msg.String() {
		case "right", "l":
			return p, p.spinToStop(r, g.Next(g.StepsToStop(r.Step)))
		case "left", "h":
			return p, p.spinToStop(r, g.Prev(g.StepsToStop(r.Step)))
		case "]":
			return p, p.nudge(r, 1)
		case "[":
			return p, p.nudge(r, -1)
		case "o":
			return p, p.home(r.ID)
		case "O":
			return p, p.homeAll()
		}
	}
	return p, nil
}

func (p *ReelsPage) spinToStop(r hardware.Reel, stop int) tea.Cmd {
	step, err := p.deps.Geometry.StopToSteps(stop)
	if err != nil {
		p.setError(p.errText(err))
		return nil
	}
	svc := p.deps.Services.Reels
	attrs := map[string]string{"reel": strconv.Itoa(r.ID), "step": strconv.Itoa(step)}
	return p.run("reel.spin", attrs, func(ctx context.Context) error {
		return svc.SpinTo(ctx, r.ID, step)
	})
}

func (p *ReelsPage) nudge(r hardware.Reel, steps int) tea.Cmd {
	svc := p.deps.Services.Reels
	attrs := map[string]string{"reel": strconv.Itoa(r.ID), "step": strconv.Itoa(steps)}
	return p.run("reel.nudge", attrs, func(ctx context.Context) error {
		return svc.Nudge(ctx, r.ID, steps)
	})
}

func (p *ReelsPage) home(id int) tea.Cmd {
	svc := p.deps.Services.Reels
	return p.run("reel.home", map[string]string{"reel": strconv.Itoa(id)}, func(ctx context.Context) error {
		return svc.Home(ctx, id)
	})
}

// homeAll homes every reel concurrently; the first failure cancels the rest.
func (p *ReelsPage) homeAll() tea.Cmd {
	svc := p.deps.Services.Reels
	ids := make([]int, len(p.reels))
	for i, r := range p.reels {
		ids[i] = r.ID
	}
	return p.run("reel.home_all", map[string]string{"count": strconv.Itoa(len(ids))}, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for _, id := range ids {
			g.Go(func() error { return svc.Home(ctx, id) })
		}
		return g.Wait()
	})
}

func (p *ReelsPage) View() string {
	if p.deps.Services.Reels == nil {
		return p.unavailable(p.Title())
	}
	g := p.deps.Geometry
	rows := [][]string{{p.t("Reels.Reel"), p.t("Reels.State"), p.t("Reels.Step"), p.t("Reels.Stop"), p.t("Reels.Fault")}}
	for _, r := range p.reels {
		rows = append(rows, []string{
			strconv.Itoa(r.ID),
			p.t("Reels.State." + r.State.String()),
			strconv.Itoa(g.NormalizeSteps(r.Step)),
			strconv.Itoa(g.StepsToStop(r.Step)),
			r.Fault,
		})
	}
	widths := textutil.ColumnWidths(rows, 20)
	var b strings.Builder
	b.WriteString("  " + Styles.Section.Render(textutil.Row(rows[0], widths)))
	sel := p.sel.at(len(p.reels))
	for i, r := range p.reels {
		line := textutil.Row(rows[i+1], widths)
		switch r.State {
		case hardware.ReelFaulted:
			line = Styles.Fault.Render(line)
		case hardware.ReelHoming, hardware.ReelSpinning:
			line = Styles.On.Render(line)
		}
		b.WriteString("\n" + marker(i == sel) + line)
	}
	b.WriteString("\n\n" + Styles.Muted.Render(p.tf("Reels.Geometry", g.Stops, g.StepsPerRevolution, g.HomeOffset)))
	return p.frame(p.Title(), b.String(), p.t("Reels.Hint"))
}

func (p *ReelsPage) Close() { p.closeBase() }
