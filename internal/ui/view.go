package ui

import tea "github.com/charmbracelet/bubbletea"

// View is the unit of composition: the menu, a page, an overlay or a wizard
// step. It follows Bubble Tea's Init/Update/View.
type View interface {
	Init() tea.Cmd
	Update(tea.Msg) (View, tea.Cmd)
	View() string
}

// Page is a screen opened from the operator menu. Close releases everything
// the page acquired while loaded: bus subscriptions, timers, running
// sessions and hardware overrides. Close is safe to call twice.
type Page interface {
	View
	Title() string
	Close()
}

// Capturer is implemented by views that accept free text. While Capturing
// reports true the app does not interpret SPC as the leader key.
type Capturer interface {
	Capturing() bool
}

func capturing(v any) bool {
	c, ok := v.(Capturer)
	return ok && c.Capturing()
}

// SpaceTaker is implemented by views where a bare space is input, such as a
// focused toggle. While TakesSpace reports true, SPC goes to the view unless a
// leader sequence is already in progress.
type SpaceTaker interface {
	TakesSpace() bool
}

func takesSpace(v any) bool {
	s, ok := v.(SpaceTaker)
	return ok && s.TakesSpace()
}
