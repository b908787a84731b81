package ui

import (
	"fmt"
	"sort"
	"strings"

	"opmenu/internal/localization"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders md for the terminal, falling back to the source
// text when glamour cannot.
func renderMarkdown(md string, width int) string {
	return renderMarkdownStyle(md, width, "dark")
}

// renderMarkdownStyle renders with a glamour style name or a JSON style file.
func renderMarkdownStyle(md string, width int, style string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// helpMarkdown lists every bound key sequence followed by each page's hints.
func helpMarkdown(reg *KeybindRegistry, tr *localization.Scoped) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", tr.GetString("Help.Title"))
	fmt.Fprintf(&b, "## %s\n\n", tr.GetString("Help.Global"))
	if reg != nil {
		hints := reg.Hints()
		seqs := make([]string, 0, len(hints))
		for s := range hints {
			seqs = append(seqs, s)
		}
		sort.Strings(seqs)
		for _, s := range seqs {
			fmt.Fprintf(&b, "- `%s` %s\n", s, tr.GetString(hints[s]))
		}
	}
	fmt.Fprintf(&b, "- `esc` %s\n\n", tr.GetString("Hint.Back"))

	fmt.Fprintf(&b, "## %s\n\n", tr.GetString("Help.Pages"))
	for _, p := range Pages() {
		hintKey := strings.TrimSuffix(p.TitleKey, ".Title") + ".Hint"
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", tr.GetString(p.TitleKey), tr.GetString(hintKey))
	}
	return b.String()
}

// HelpView is a scrollable overlay of key bindings.
type HelpView struct {
	registry *KeybindRegistry
	loc      *localization.Localizer
	viewport viewport.Model
	source   string
}

var _ View = (*HelpView)(nil)

func NewHelpView(reg *KeybindRegistry, loc *localization.Localizer) *HelpView {
	v := &HelpView{registry: reg, loc: loc, viewport: viewport.New(76, 20)}
	v.viewport.Style = Styles.Box.Padding(0, 1)
	v.render()
	return v
}

func (v *HelpView) render() {
	v.source = helpMarkdown(v.registry, v.loc.For(localization.Operator))
	v.viewport.SetContent(renderMarkdown(v.source, max(v.viewport.Width-4, 20)))
}

// Markdown returns the unrendered help text.
func (v *HelpView) Markdown() string { return v.source }

func (v *HelpView) Init() tea.Cmd { return nil }

func (v *HelpView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.viewport.Width = max(msg.Width-8, 40)
		v.viewport.Height = max(msg.Height-6, 5)
		v.render()
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "?":
			return v, func() tea.Msg { return DismissModalMsg{} }
		case "j", "down":
			v.viewport.LineDown(1)
		case "k", "up":
			v.viewport.LineUp(1)
		case "ctrl+d", "pgdown":
			v.viewport.HalfViewDown()
		case "ctrl+u", "pgup":
			v.viewport.HalfViewUp()
		case "g":
			v.viewport.GotoTop()
		case "G":
			v.viewport.GotoBottom()
		}
	}
	return v, nil
}

func (v *HelpView) View() string {
	return v.viewport.View()
}
