package ui

import (
	"context"
	"fmt"
	"strings"

	"opmenu/internal/hardware"
	"opmenu/internal/localization"
	"opmenu/internal/properties"
	"opmenu/internal/settings"
	"opmenu/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

// wizardStepCount is the number of steps shown in the step counter.
const wizardStepCount = 5

// wizardStep is one screen of the setup wizard.
type wizardStep interface {
	View
	hint() string
}

// Wizard walks the operator through first-time setup: welcome, operator
// culture, machine identity, network and a summary. Finishing stores the
// answers and marks the wizard complete. Esc goes back one step and, on the
// first step, abandons the wizard.
type Wizard struct {
	pageBase
	steps   ViewStack
	machine settings.Machine
	network hardware.NetworkConfig
}

var _ Page = (*Wizard)(nil)

func NewWizard(deps Deps) *Wizard {
	w := &Wizard{}
	w.pageBase = newPageBase(deps, w)
	if w.deps.Props != nil {
		w.machine = settings.Current(w.deps.Props)
	}
	if svc := w.deps.Services.Network; svc != nil {
		w.network = svc.Config()
	} else {
		w.network = hardware.NetworkConfig{DHCP: true}
	}
	w.steps.Push(&welcomeStep{w: w})
	return w
}

// WizardComplete reports whether setup has been finished on this cabinet.
func WizardComplete(props properties.Store) bool {
	return propGet(props, properties.KeyWizardComplete, false)
}

func (w *Wizard) Title() string { return w.t("Wizard.Title") }

func (w *Wizard) Init() tea.Cmd { return nil }

// Step returns the 1-based index of the current step.
func (w *Wizard) Step() int { return w.steps.Len() }

func (w *Wizard) Capturing() bool { return capturing(w.steps.Peek()) }

func (w *Wizard) TakesSpace() bool { return takesSpace(w.steps.Peek()) }

func (w *Wizard) next(s wizardStep) tea.Cmd {
	w.status = ""
	w.steps.Push(s)
	if w.width > 0 {
		s.Update(tea.WindowSizeMsg{Width: w.width, Height: w.height})
	}
	return s.Init()
}

func wizardDone(completed bool) tea.Cmd {
	return func() tea.Msg { return WizardDoneMsg{Completed: completed} }
}

func (w *Wizard) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case actionDoneMsg:
		if w.done(msg) && msg.action == "network.apply" && msg.err == nil {
			return w, wizardDone(true)
		}
		return w, nil
	case tea.WindowSizeMsg:
		w.resize(msg)
	case tea.KeyMsg:
		if msg.String() == "esc" {
			if w.steps.Len() <= 1 {
				return w, wizardDone(false)
			}
			w.steps.Pop()
			w.status = ""
			return w, nil
		}
	}
	top := w.steps.Peek()
	if top == nil {
		return w, nil
	}
	// A step that advances pushes its successor; only an in-place update
	// replaces the top.
	n := w.steps.Len()
	v, cmd := top.Update(msg)
	if w.steps.Len() == n {
		w.steps.Replace(v)
	}
	return w, cmd
}

func (w *Wizard) View() string {
	top, _ := w.steps.Peek().(wizardStep)
	if top == nil {
		return ""
	}
	title := w.Title() + "  " + Styles.Muted.Render(w.tf("Wizard.Step", w.Step(), wizardStepCount))
	return w.frame(title, top.View(), top.hint())
}

// finish stores the answers, marks setup complete and applies the network
// configuration when the cabinet has a network service.
func (w *Wizard) finish() tea.Cmd {
	if w.deps.Props != nil {
		if err := settings.Apply(w.deps.Props, w.machine); err != nil {
			w.setError(w.errText(err))
			return nil
		}
	}
	persistNetwork(w.deps.Props, w.network)
	propSet(w.deps.Props, properties.KeyWizardComplete, true)
	w.deps.Logger.Info("setup wizard completed")

	svc := w.deps.Services.Network
	if svc == nil {
		return wizardDone(true)
	}
	cfg := w.network
	return w.run("network.apply", map[string]string{"dhcp": boolString(cfg.DHCP), "ip": cfg.IP}, func(ctx context.Context) error {
		return svc.Apply(ctx, cfg)
	})
}

func (w *Wizard) Close() { w.closeBase() }

// welcomeStep shows the localized introduction.
type welcomeStep struct {
	w     *Wizard
	width int
}

func (s *welcomeStep) Init() tea.Cmd { return nil }

func (s *welcomeStep) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
	case tea.KeyMsg:
		if msg.String() == "enter" {
			return s, s.w.next(newCultureStep(s.w))
		}
	}
	return s, nil
}

func (s *welcomeStep) View() string {
	width := s.width - 8
	if width < 40 {
		width = 60
	}
	return renderMarkdown(s.w.t("Wizard.Welcome"), width)
}

func (s *welcomeStep) hint() string { return s.w.t("Wizard.Hint.Welcome") }

// cultureStep picks the operator culture.
type cultureStep struct {
	w        *Wizard
	cultures []string
	sel      cursor
}

func newCultureStep(w *Wizard) *cultureStep {
	s := &cultureStep{w: w}
	if w.deps.Loc != nil {
		s.cultures = w.deps.Loc.Cultures()
		cur := w.deps.Loc.Culture(localization.Operator)
		for i, c := range s.cultures {
			if c == cur {
				s.sel = cursor(i)
			}
		}
	}
	return s
}

func (s *cultureStep) Init() tea.Cmd { return nil }

func (s *cultureStep) Update(msg tea.Msg) (View, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	if navKey(&s.sel, key.String(), len(s.cultures)) {
		return s, nil
	}
	if key.String() != "enter" {
		return s, nil
	}
	if i := s.sel.at(len(s.cultures)); i >= 0 {
		if err := s.w.deps.Loc.SetCulture(localization.Operator, s.cultures[i]); err != nil {
			s.w.setError(s.w.errText(err))
			return s, nil
		}
	}
	return s, s.w.next(newIdentityStep(s.w))
}

func (s *cultureStep) View() string {
	var b strings.Builder
	b.WriteString(Styles.Section.Render(s.w.t("Wizard.Culture")))
	for i, c := range s.cultures {
		b.WriteString("\n")
		b.WriteString(marker(i == s.sel.at(len(s.cultures))))
		b.WriteString(c)
	}
	return b.String()
}

func (s *cultureStep) hint() string { return s.w.t("Wizard.Hint.Culture") }

// formStep is a wizard step backed by a form. Enter on the last field or
// ctrl+n continues when every field validates.
type formStep struct {
	w       *Wizard
	form    *form
	hintKey string
	commit  func() tea.Cmd
}

func (s *formStep) Init() tea.Cmd { return nil }

func (s *formStep) Capturing() bool { return s.form.capturing() }

func (s *formStep) TakesSpace() bool { return s.form.takesSpace() }

func (s *formStep) Update(msg tea.Msg) (View, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	last := s.form.fields[len(s.form.fields)-1].id
	if key.String() == "ctrl+n" || (key.String() == "enter" && s.form.focus.Is(last)) {
		if !s.form.validate() {
			s.w.setError(s.w.t("Wizard.Invalid"))
			return s, nil
		}
		return s, s.commit()
	}
	_, cmd := s.form.update(key)
	return s, cmd
}

func (s *formStep) View() string { return s.form.view(&s.w.pageBase) }

func (s *formStep) hint() string { return s.w.t(s.hintKey) }

func settingsCheck(field string) func(string) error {
	return func(v string) error { return settings.ValidateField(field, v) }
}

func newIdentityStep(w *Wizard) *formStep {
	fields := []string{"SerialNumber", "AssetNumber", "Location"}
	inputs := make([]*formField, len(fields))
	for i, f := range fields {
		inputs[i] = textField(f, "Settings.Field."+f, w.machine.Get(f), 32, settingsCheck(f))
	}
	s := &formStep{w: w, form: newForm(inputs...), hintKey: "Wizard.Hint.Form"}
	s.commit = func() tea.Cmd {
		for _, f := range fields {
			w.machine.Set(f, s.form.field(f).value())
		}
		return w.next(newNetworkStep(w))
	}
	return s
}

func newNetworkStep(w *Wizard) *formStep {
	cfg := w.network
	dhcp := toggleField("dhcp", "Network.DHCP", cfg.DHCP)
	ip := textField("ip", "Network.IP", cfg.IP, 15, validate.IPv4)
	mask := textField("mask", "Network.Mask", cfg.Mask, 15, validate.SubnetMask)
	gw := textField("gateway", "Network.Gateway", cfg.Gateway, 15, nil)
	gw.check = func(v string) error { return validate.Gateway(ip.value(), mask.value(), v) }
	static := func() bool { return dhcp.on }
	ip.disabled, mask.disabled, gw.disabled = static, static, static

	s := &formStep{w: w, form: newForm(dhcp, ip, mask, gw), hintKey: "Wizard.Hint.Form"}
	s.commit = func() tea.Cmd {
		next := hardware.NetworkConfig{DHCP: dhcp.on, DNS: w.network.DNS}
		if !dhcp.on {
			next.IP, next.Mask, next.Gateway = ip.value(), mask.value(), gw.value()
		}
		w.network = next
		return w.next(&summaryStep{w: w})
	}
	return s
}

// summaryStep shows the collected answers before they are stored.
type summaryStep struct {
	w *Wizard
}

func (s *summaryStep) Init() tea.Cmd { return nil }

func (s *summaryStep) Update(msg tea.Msg) (View, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		return s, s.w.finish()
	}
	return s, nil
}

func (s *summaryStep) View() string {
	w := s.w
	rows := []string{
		Styles.Section.Render(w.t("Wizard.Summary")),
		fmt.Sprintf("%s  %s", Styles.Label.Render(w.t("Settings.Field.SerialNumber")), w.machine.SerialNumber),
		fmt.Sprintf("%s  %s", Styles.Label.Render(w.t("Settings.Field.AssetNumber")), w.machine.AssetNumber),
		fmt.Sprintf("%s  %s", Styles.Label.Render(w.t("Settings.Field.Location")), w.machine.Location),
	}
	mode := w.t("Network.Mode.DHCP")
	if !w.network.DHCP {
		mode = w.tf("Network.Mode.Static", w.network.IP, w.network.Mask, w.network.Gateway)
	}
	rows = append(rows, fmt.Sprintf("%s  %s", Styles.Label.Render(w.t("Network.Title")), mode))
	return strings.Join(rows, "\n")
}

func (s *summaryStep) hint() string { return s.w.t("Wizard.Hint.Summary") }
