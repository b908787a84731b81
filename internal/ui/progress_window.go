package ui

import (
	"fmt"
	"strings"

	"opmenu/internal/progress"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultProgressWidth  = 70
	defaultProgressHeight = 8
)

// ProgressWindow shows the events of one background task: a completion bar
// and a scrolling log. Pages embed it; it can also be pushed as an overlay,
// where Esc dismisses it.
type ProgressWindow struct {
	title    string
	events   []progress.Event
	bar      bprogress.Model
	viewport viewport.Model
	empty    string
}

var _ View = (*ProgressWindow)(nil)

// NewProgressWindow creates an empty window. empty is shown until the first
// event arrives.
func NewProgressWindow(title, empty string) *ProgressWindow {
	vp := viewport.New(defaultProgressWidth, defaultProgressHeight)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDim)).
		Padding(0, 1)
	bar := bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(defaultProgressWidth-10))
	p := &ProgressWindow{title: title, bar: bar, viewport: vp, empty: empty}
	p.refreshContent()
	return p
}

func (p *ProgressWindow) Init() tea.Cmd { return nil }

func (p *ProgressWindow) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case progress.Event:
		p.Add(msg)
		return p, nil
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return p, func() tea.Msg { return DismissModalMsg{} }
		}
	case tea.WindowSizeMsg:
		w := max(msg.Width-4, 40)
		p.viewport.Width = w
		p.bar.Width = w - 10
		p.refreshContent()
		return p, nil
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// Add appends ev to the log.
func (p *ProgressWindow) Add(ev progress.Event) {
	p.events = append(p.events, ev)
	p.refreshContent()
}

// Reset clears the log for a new run.
func (p *ProgressWindow) Reset() {
	p.events = nil
	p.refreshContent()
}

// Last returns the most recent event.
func (p *ProgressWindow) Last() (progress.Event, bool) {
	if len(p.events) == 0 {
		return progress.Event{}, false
	}
	return p.events[len(p.events)-1], true
}

func (p *ProgressWindow) View() string {
	var b strings.Builder
	b.WriteString(Styles.Section.Render(p.title))
	if last, ok := p.Last(); ok {
		pct := last.Percent()
		if last.Status == progress.StatusDone {
			pct = 100
		}
		if pct >= 0 {
			b.WriteString("\n" + p.bar.ViewAs(float64(pct)/100))
		}
	}
	b.WriteString("\n" + p.viewport.View())
	return b.String()
}

func (p *ProgressWindow) refreshContent() {
	lines := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		line := fmt.Sprintf("[%s] %s %s", ev.Timestamp.Format("15:04:05"), statusIcon(ev.Status), ev.Message)
		if ev.Total > 0 && ev.Status == progress.StatusRunning {
			line += Styles.Muted.Render(fmt.Sprintf("  (%d/%d)", ev.Done+1, ev.Total))
		}
		lines = append(lines, line)
	}
	content := strings.Join(lines, "\n")
	if content == "" {
		content = Styles.Empty.Render(p.empty)
	}
	p.viewport.SetContent(content)
	p.viewport.GotoBottom()
}

func statusIcon(s progress.Status) string {
	switch s {
	case progress.StatusRunning:
		return "●"
	case progress.StatusDone:
		return "✓"
	case progress.StatusError:
		return "✗"
	case progress.StatusAborted:
		return "■"
	default:
		return "•"
	}
}

// waitForProgress reads the next event of a task for owner, the same way
// diagnostics output is read.
func waitForProgress(owner any, ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return progressClosedMsg{owner: owner}
		}
		return progressMsg{owner: owner, event: ev}
	}
}
