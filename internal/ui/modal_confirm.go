package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmModal asks the operator to confirm an action that changes cabinet
// configuration. Enter or y confirms; Esc or n cancels.
type ConfirmModal struct {
	Title     string
	Label     string
	Details   string // optional warning, e.g. "The terminal will lose its connection"
	Hint      string
	OnConfirm func() tea.Msg
	boxStyle  lipgloss.Style
}

var _ View = (*ConfirmModal)(nil)

// NewConfirmModal creates a confirmation modal. Texts are already localized.
func NewConfirmModal(title, label, hint string, onConfirm func() tea.Msg) *ConfirmModal {
	return &ConfirmModal{
		Title:     title,
		Label:     label,
		Hint:      hint,
		OnConfirm: onConfirm,
		boxStyle:  Styles.BoxDanger,
	}
}

// WithDetails adds warning details to the modal.
func (m *ConfirmModal) WithDetails(details string) *ConfirmModal {
	m.Details = details
	return m
}

func (m *ConfirmModal) Init() tea.Cmd { return nil }

// Update dismisses the modal on either answer; on confirm the OnConfirm
// message follows the dismissal.
func (m *ConfirmModal) Update(msg tea.Msg) (View, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	dismiss := func() tea.Msg { return DismissModalMsg{} }
	switch km.String() {
	case "esc", "n":
		return m, dismiss
	case "enter", "y":
		if m.OnConfirm == nil {
			return m, dismiss
		}
		return m, tea.Sequence(dismiss, m.OnConfirm)
	}
	return m, nil
}

func (m *ConfirmModal) View() string {
	content := Styles.TitleWarning.Render(m.Title) + "\n\n" + Styles.Label.Render(m.Label)
	if m.Details != "" {
		content += "\n" + Styles.Details.Render(m.Details)
	}
	if m.Hint != "" {
		content += "\n\n" + Styles.Hint.Render(m.Hint)
	}
	return m.boxStyle.Render(content)
}
