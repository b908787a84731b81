package ui

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"opmenu/internal/eventbus"
	"opmenu/internal/localization"
	"opmenu/internal/ui/textutil"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxLogEntries bounds the event log.
const maxLogEntries = 500

// LogEntry is one event as shown in the log.
type LogEntry struct {
	At      time.Time
	Kind    string
	Summary string
}

// describe turns a bus event into a log entry. Fields of the event other
// than its metadata are rendered as compact JSON.
func describe(ev any) LogEntry {
	e := LogEntry{At: time.Now(), Kind: reflect.TypeOf(ev).String()}
	if m, ok := ev.(interface{ EventMeta() eventbus.Meta }); ok && !m.EventMeta().At.IsZero() {
		e.At = m.EventMeta().At
	}
	if i := strings.LastIndex(e.Kind, "."); i >= 0 {
		e.Kind = e.Kind[i+1:]
	}
	data, err := json.Marshal(ev)
	if err != nil {
		e.Summary = fmt.Sprintf("%+v", ev)
		return e
	}
	var fields map[string]any
	if json.Unmarshal(data, &fields) != nil {
		e.Summary = string(data)
		return e
	}
	delete(fields, "id")
	delete(fields, "at")
	rest, _ := json.Marshal(fields)
	e.Summary = string(rest)
	return e
}

// EventLogView lists recent bus events, newest last. The app feeds it every
// event whether or not it is visible.
type EventLogView struct {
	entries  []LogEntry
	viewport viewport.Model
	loc      *localization.Localizer
}

var _ View = (*EventLogView)(nil)

func NewEventLogView(loc *localization.Localizer) *EventLogView {
	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1)
	v := &EventLogView{viewport: vp, loc: loc}
	v.refreshContent()
	return v
}

// Append records ev.
func (v *EventLogView) Append(ev any) {
	v.entries = append(v.entries, describe(ev))
	if len(v.entries) > maxLogEntries {
		v.entries = v.entries[len(v.entries)-maxLogEntries:]
	}
	atBottom := v.viewport.AtBottom()
	v.refreshContent()
	if atBottom {
		v.viewport.GotoBottom()
	}
}

// Entries returns the recorded entries, oldest first.
func (v *EventLogView) Entries() []LogEntry {
	return v.entries
}

func (v *EventLogView) Init() tea.Cmd { return nil }

func (v *EventLogView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width-8, msg.Height-8)
		return v, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return v, func() tea.Msg { return DismissModalMsg{} }
		case "j", "down":
			v.viewport.LineDown(1)
		case "k", "up":
			v.viewport.LineUp(1)
		case "ctrl+d", "pgdown":
			v.viewport.HalfViewDown()
		case "ctrl+u", "pgup":
			v.viewport.HalfViewUp()
		case "g", "home":
			v.viewport.GotoTop()
		case "G", "end":
			v.viewport.GotoBottom()
		case "c":
			v.entries = nil
			v.refreshContent()
		}
		return v, nil
	}
	return v, nil
}

// SetSize sets the viewport size.
func (v *EventLogView) SetSize(width, height int) {
	v.viewport.Width = max(width, 40)
	v.viewport.Height = max(height, 5)
	v.refreshContent()
}

func (v *EventLogView) tr() *localization.Scoped {
	return v.loc.For(localization.Operator)
}

func (v *EventLogView) View() string {
	header := Styles.Title.Render(v.tr().GetFormat("EventLog.Title", len(v.entries))) +
		Styles.Hint.Render("  "+v.tr().GetString("EventLog.Hint"))
	return header + "\n" + v.viewport.View()
}

func (v *EventLogView) refreshContent() {
	if len(v.entries) == 0 {
		v.viewport.SetContent(Styles.Empty.Render(v.tr().GetString("EventLog.Empty")))
		return
	}
	lines := make([]string, len(v.entries))
	for i, e := range v.entries {
		lines[i] = Styles.Muted.Render(e.At.Local().Format("15:04:05.000")) + "  " +
			Styles.Status.Render(textutil.PadRight(e.Kind, 26)) + "  " + e.Summary
	}
	v.viewport.SetContent(strings.Join(lines, "\n"))
}
