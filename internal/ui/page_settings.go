package ui

import (
	"context"
	"strings"

	"opmenu/internal/progress"
	"opmenu/internal/settings"
	"opmenu/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

const fileFieldID = "file"

// importSettingsMsg is sent by the import confirmation modal.
type importSettingsMsg struct {
	owner any
	name  string
}

// MachineSettingsPage edits the machine identity and imports or exports it
// as a settings file.
type MachineSettingsPage struct {
	pageBase
	form     *form
	window   *ProgressWindow
	files    []string
	filesErr error
	progress chan progress.Event
}

var _ Page = (*MachineSettingsPage)(nil)

func NewMachineSettingsPage(deps Deps) *MachineSettingsPage {
	p := &MachineSettingsPage{}
	p.pageBase = newPageBase(deps, p)
	var fields []*formField
	var current settings.Machine
	if p.deps.Props != nil {
		current = settings.Current(p.deps.Props)
	}
	for _, name := range settings.Fields() {
		fields = append(fields, textField(name, "Settings.Field."+name, current.Get(name), 32, func(s string) error {
			return settings.ValidateField(name, s)
		}))
	}
	fields = append(fields, textField(fileFieldID, "Settings.File", "machine", 64, validate.Required))
	p.form = newForm(fields...)
	p.window = NewProgressWindow(p.t("Settings.Progress"), p.t("Settings.NoTransfers"))
	p.listFiles()
	return p
}

func (p *MachineSettingsPage) Title() string { return p.t("Settings.Title") }

func (p *MachineSettingsPage) Init() tea.Cmd { return nil }

func (p *MachineSettingsPage) Capturing() bool { return p.form.capturing() }

// store builds a settings store reporting progress on ch.
func (p *MachineSettingsPage) store(ch chan progress.Event) (*settings.Store, error) {
	var em progress.Emitter
	if ch != nil {
		em = &progress.ChanEmitter{Ch: ch}
	}
	return settings.NewStore(p.deps.SettingsDir, p.deps.Props, em, p.deps.Logger)
}

func (p *MachineSettingsPage) listFiles() {
	s, err := p.store(nil)
	if err == nil {
		p.files, err = s.List()
	}
	p.filesErr = err
}

func (p *MachineSettingsPage) machine() settings.Machine {
	var m settings.Machine
	for _, name := range settings.Fields() {
		m.Set(name, p.form.field(name).value())
	}
	return m
}

func (p *MachineSettingsPage) reload() {
	m := settings.Current(p.deps.Props)
	for _, name := range settings.Fields() {
		f := p.form.field(name)
		f.input.SetValue(m.Get(name))
		f.err = nil
	}
}

func (p *MachineSettingsPage) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		if msg.owner == p {
			p.window.Add(msg.event)
			return p, waitForProgress(p, p.progress)
		}
	case importSettingsMsg:
		if msg.owner == p {
			return p, p.transfer("settings.import", msg.name, func(s *settings.Store) error {
				_, err := s.Import(msg.name)
				return err
			})
		}
	case actionDoneMsg:
		if p.done(msg) {
			if msg.action == "settings.import" && msg.err == nil {
				p.reload()
			}
			p.listFiles()
		}
	case tea.WindowSizeMsg:
		p.resize(msg)
		p.window.Update(msg)
	case tea.KeyMsg:
		if p.deps.Props == nil {
			return p, nil
		}
		switch msg.String() {
		case "ctrl+s":
			p.save()
			return p, nil
		case "ctrl+e":
			return p, p.export()
		case "ctrl+o":
			return p, p.confirmImport()
		}
		_, cmd := p.form.update(msg)
		return p, cmd
	}
	return p, nil
}

func (p *MachineSettingsPage) save() {
	if !p.form.validate() {
		p.setError(p.t("Settings.Invalid"))
		return
	}
	if err := settings.Apply(p.deps.Props, p.machine()); err != nil {
		p.setError(p.errText(err))
		return
	}
	p.setStatus(p.t("Settings.Saved"))
}

func (p *MachineSettingsPage) fileName() (string, bool) {
	f := p.form.field(fileFieldID)
	if !f.validate() {
		p.form.focus.SetFocus(fileFieldID)
		return "", false
	}
	return f.value(), true
}

func (p *MachineSettingsPage) export() tea.Cmd {
	name, ok := p.fileName()
	if !ok {
		return nil
	}
	return p.transfer("settings.export", name, func(s *settings.Store) error {
		_, err := s.Export(name)
		return err
	})
}

func (p *MachineSettingsPage) confirmImport() tea.Cmd {
	name, ok := p.fileName()
	if !ok {
		return nil
	}
	owner := p
	modal := NewConfirmModal(p.t("Settings.ConfirmImport"), p.tf("Settings.ImportFrom", name), p.t("Confirm.Hint"), func() tea.Msg {
		return importSettingsMsg{owner: owner, name: name}
	}).WithDetails(p.t("Settings.ImportDetails"))
	return func() tea.Msg { return ShowOverlayMsg{View: modal, Dismiss: "esc"} }
}

// transfer runs an import or export off the update loop, streaming its
// progress into the window.
func (p *MachineSettingsPage) transfer(action, name string, fn func(*settings.Store) error) tea.Cmd {
	ch := make(chan progress.Event, 16)
	s, err := p.store(ch)
	if err != nil {
		p.setError(p.errText(err))
		return nil
	}
	p.progress = ch
	p.window.Reset()
	run := p.run(action, map[string]string{"file": name}, func(context.Context) error {
		defer close(ch)
		return fn(s)
	})
	return tea.Batch(run, waitForProgress(p, ch))
}

func (p *MachineSettingsPage) View() string {
	if p.deps.Props == nil {
		return p.unavailable(p.Title())
	}
	var b strings.Builder
	b.WriteString(p.form.view(&p.pageBase))
	b.WriteString("\n\n" + Styles.Section.Render(p.t("Settings.Files")))
	switch {
	case p.filesErr != nil:
		b.WriteString("\n  " + Styles.StatusErr.Render(p.errText(p.filesErr)))
	case len(p.files) == 0:
		b.WriteString("\n  " + Styles.Empty.Render(p.t("Settings.NoFiles")))
	default:
		b.WriteString("\n  " + strings.Join(p.files, "  "))
	}
	b.WriteString("\n\n" + p.window.View())
	return p.frame(p.Title(), b.String(), p.t("Settings.Hint"))
}

func (p *MachineSettingsPage) Close() { p.closeBase() }
