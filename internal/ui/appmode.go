package ui

// AppMode is the top-level application mode.
type AppMode int

const (
	ModeMenu AppMode = iota // menu focused, no page open
	ModePage                // a page is open and focused
	ModeWizard              // setup wizard fills the screen
)

func (m AppMode) String() string {
	switch m {
	case ModeMenu:
		return "Menu"
	case ModePage:
		return "Page"
	case ModeWizard:
		return "Wizard"
	default:
		return "Unknown"
	}
}
