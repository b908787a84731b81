package ui

import (
	"context"
	"strings"

	"opmenu/internal/diag"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// diagLineMsg carries one output line of a diagnostic session.
type diagLineMsg struct {
	view *DiagView
	line string
}

// diagDoneMsg is sent when the session's output is drained.
type diagDoneMsg struct {
	view *DiagView
	err  error
}

const (
	defaultDiagWidth  = 80
	defaultDiagHeight = 18
	maxDiagLines      = 1000
)

// DiagView is an overlay running ping or traceroute under a pty and
// streaming its output. Esc dismisses and kills the command.
type DiagView struct {
	deps     Deps
	command  diag.Command
	host     string
	session  *diag.Session
	lines    []string
	viewport viewport.Model
	finished bool
	err      error
}

var _ View = (*DiagView)(nil)

func NewDiagView(deps Deps, c diag.Command, host string) *DiagView {
	vp := viewport.New(defaultDiagWidth, defaultDiagHeight)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1)
	return &DiagView{deps: deps.withDefaults(), command: c, host: host, viewport: vp}
}

// Init starts the session and begins reading its output.
func (v *DiagView) Init() tea.Cmd {
	opts := diag.Options{Size: diag.Size{Rows: defaultDiagHeight, Cols: defaultDiagWidth}}
	s, err := diag.Start(context.Background(), v.deps.Diag, v.command, v.host, opts, v.deps.Logger)
	if err != nil {
		v.finished, v.err = true, err
		v.refresh()
		return nil
	}
	v.session = s
	return v.waitForOutput()
}

func (v *DiagView) waitForOutput() tea.Cmd {
	s := v.session
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-s.Lines()
		if !ok {
			return diagDoneMsg{view: v, err: s.Wait()}
		}
		return diagLineMsg{view: v, line: line}
	}
}

func (v *DiagView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case diagLineMsg:
		if msg.view != v {
			return v, nil
		}
		v.lines = append(v.lines, msg.line)
		if len(v.lines) > maxDiagLines {
			v.lines = v.lines[len(v.lines)-maxDiagLines:]
		}
		v.refresh()
		return v, v.waitForOutput()
	case diagDoneMsg:
		if msg.view == v {
			v.finished, v.err = true, msg.err
			v.refresh()
		}
		return v, nil
	case tea.WindowSizeMsg:
		v.viewport.Width = max(msg.Width-8, 40)
		v.viewport.Height = max(msg.Height/2, 10)
		v.refresh()
		return v, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return v, func() tea.Msg { return DismissModalMsg{} }
		case "ctrl+c", "x":
			if v.session != nil && !v.finished {
				_ = v.session.Close()
			}
			return v, nil
		}
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *DiagView) refresh() {
	content := strings.Join(v.lines, "\n")
	tr := v.deps.operator()
	if v.finished {
		if content != "" {
			content += "\n"
		}
		if v.err != nil {
			content += Styles.StatusErr.Render(tr.GetFormat("Diag.Failed", errorText(tr, v.err)))
		} else {
			content += Styles.StatusOK.Render(tr.GetString("Diag.Finished"))
		}
	}
	if content == "" {
		content = Styles.Empty.Render(tr.GetString("Diag.Waiting"))
	}
	v.viewport.SetContent(content)
	v.viewport.GotoBottom()
}

func (v *DiagView) View() string {
	tr := v.deps.operator()
	header := Styles.Title.Render(tr.GetFormat("Diag.Title", v.command.String(), v.host)) +
		Styles.Hint.Render("  "+tr.GetString("Diag.Hint"))
	return header + "\n" + v.viewport.View()
}

// Close kills the command if it is still running.
func (v *DiagView) Close() {
	if v.session != nil {
		_ = v.session.Close()
	}
}
