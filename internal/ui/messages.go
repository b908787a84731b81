package ui

import (
	"opmenu/internal/progress"
)

// OpenPageMsg asks the app to open the menu entry with the given ID.
type OpenPageMsg struct {
	ID string
}

// ClosePageMsg closes the open page and returns focus to the menu.
type ClosePageMsg struct{}

// QuitMsg closes every page and overlay, then quits.
type QuitMsg struct{}

// NextCultureMsg cycles the operator (or player) culture.
type NextCultureMsg struct {
	Player bool
}

// ShowEventLogMsg opens the event log overlay.
type ShowEventLogMsg struct{}

// ShowHelpMsg opens the help overlay.
type ShowHelpMsg struct{}

// StartWizardMsg opens the setup wizard.
type StartWizardMsg struct{}

// WizardDoneMsg is sent when the wizard finishes or is abandoned.
type WizardDoneMsg struct {
	Completed bool
}

// ShowOverlayMsg asks the app to push an overlay, e.g. a page's
// confirmation modal or diagnostics output.
type ShowOverlayMsg struct {
	View    View
	Dismiss string
}

// DismissModalMsg closes the top overlay.
type DismissModalMsg struct{}

// RefreshMenuMsg re-reads the menu status badges.
type RefreshMenuMsg struct{}

// actionDoneMsg reports a background hardware command back to the page that
// issued it.
type actionDoneMsg struct {
	owner  any
	action string
	err    error
	// value is what the action operated on, when the page needs it back.
	value any
}

// progressMsg carries one progress event to the page that started the task.
type progressMsg struct {
	owner any
	event progress.Event
}

// progressClosedMsg is sent when a progress channel drains.
type progressClosedMsg struct {
	owner any
}
