package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// Theme colors used throughout the UI.
const (
	ColorAccent    = "86"  // titles, highlights
	ColorHighlight = "205" // selection, focused borders
	ColorDanger    = "196" // faults, errors
	ColorMuted     = "241" // hints
	ColorText      = "252"
	ColorDim       = "243"
	ColorWarning   = "208"
	ColorOK        = "42"
)

// Styles contains shared style definitions used across pages and overlays.
var Styles = struct {
	Title        lipgloss.Style
	TitleWarning lipgloss.Style

	Box          lipgloss.Style // modal box, accent border
	BoxDanger    lipgloss.Style // confirmation / warning box
	BoxCompact   lipgloss.Style
	Panel        lipgloss.Style // unfocused layout panel
	PanelFocused lipgloss.Style

	Selected lipgloss.Style
	Muted    lipgloss.Style
	Normal   lipgloss.Style
	Hint     lipgloss.Style
	Status   lipgloss.Style
	Section  lipgloss.Style
	Empty    lipgloss.Style
	Label    lipgloss.Style
	Details  lipgloss.Style

	On         lipgloss.Style // door open, key on, lamp lit
	Off        lipgloss.Style
	Fault      lipgloss.Style
	FieldError lipgloss.Style
	StatusOK   lipgloss.Style
	StatusErr  lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent)),
	TitleWarning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorDanger)),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(1, 2),
	BoxDanger: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDanger)).
		Padding(1, 2),
	BoxCompact: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1),
	Panel: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDim)),
	PanelFocused: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorText)),
	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccent)),
	Section: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)),
	Empty: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)).
		Italic(true),
	Label: lipgloss.NewStyle(),
	Details: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorWarning)),
	On: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorWarning)).
		Bold(true),
	Off: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDim)),
	Fault: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)).
		Bold(true),
	FieldError: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)),
	StatusOK: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorOK)),
	StatusErr: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)),
}

// NewCompactListDelegate returns a list delegate with zero spacing and the
// shared selection styles. The description line carries the menu badge.
func NewCompactListDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	d.SetSpacing(0)
	d.ShowDescription = true
	d.Styles.SelectedTitle = Styles.Selected
	d.Styles.SelectedDesc = Styles.Muted
	d.Styles.NormalTitle = Styles.Normal
	d.Styles.NormalDesc = Styles.Muted
	return d
}
