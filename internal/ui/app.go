package ui

import (
	"opmenu/internal/eventbus"
	"opmenu/internal/localization"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	chromeHeight  = 3 // header and status line
)

// AppModel is the root of the operator menu. The menu panel stays on the
// left; an open page fills the right panel. The setup wizard takes the whole
// screen. Overlays (confirmations, diagnostics, event log, help) are drawn
// over both.
type AppModel struct {
	Mode       AppMode
	Deps       Deps
	Menu       *MenuView
	Page       Page
	PageID     string
	Wizard     *Wizard
	Overlays   OverlayStack
	KeyHandler *KeyHandler
	Focus      FocusManager
	EventLog   *EventLogView

	bridge    *eventbus.Bridge
	width     int
	height    int
	status    string
	statusErr bool
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

// appModelAdapter wraps AppModel to implement tea.Model.
type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root application model. The app bridge forwards
// every bus event to the event log.
func NewAppModel(deps Deps) *AppModel {
	deps = deps.withDefaults()
	reg := NewKeybindRegistry()
	reg.BindWithDesc("ctrl+c", func() tea.Msg { return QuitMsg{} }, "Leader.Quit")
	reg.BindWithDesc("SPC q", func() tea.Msg { return QuitMsg{} }, "Leader.Quit")
	reg.BindWithDesc("SPC l", func() tea.Msg { return NextCultureMsg{} }, "Leader.NextCulture")
	reg.BindWithDesc("SPC c o", func() tea.Msg { return NextCultureMsg{} }, "Leader.OperatorCulture")
	reg.BindWithDesc("SPC c p", func() tea.Msg { return NextCultureMsg{Player: true} }, "Leader.PlayerCulture")
	reg.BindWithDesc("SPC e", func() tea.Msg { return ShowEventLogMsg{} }, "Leader.EventLog")
	reg.BindWithDesc("SPC ?", func() tea.Msg { return ShowHelpMsg{} }, "Leader.Help")
	reg.BindWithDesc("SPC r", func() tea.Msg { return RefreshMenuMsg{} }, "Leader.Refresh")
	reg.BindWithDescForMode("SPC w", func() tea.Msg { return StartWizardMsg{} }, "Leader.Wizard", []AppMode{ModeMenu, ModePage})

	m := &AppModel{
		Mode:       ModeMenu,
		Deps:       deps,
		Menu:       NewMenuView(deps),
		KeyHandler: NewKeyHandler(reg),
		Focus:      FocusManager{Order: []string{panelMenu, panelPage}, Current: panelMenu},
		EventLog:   NewEventLogView(deps.Loc),
	}
	if deps.Bus != nil {
		m.bridge = eventbus.NewBridge(deps.Bus, eventbus.DefaultBridgeBuffer)
		m.bridge.ForwardAll()
	}
	return m
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (m *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: m}
}

func (m *AppModel) listen() tea.Cmd {
	if m.bridge == nil {
		return nil
	}
	return m.bridge.Listen()
}

func (m *AppModel) tr() *localization.Scoped {
	return m.Deps.operator()
}

func (m *AppModel) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	cmds := []tea.Cmd{a.Menu.Init(), a.listen()}
	if !WizardComplete(a.Deps.Props) {
		cmds = append(cmds, func() tea.Msg { return StartWizardMsg{} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a, a.resize(msg.Width, msg.Height)
	case eventbus.EventMsg:
		return a, a.handleEvent(msg)
	case OpenPageMsg:
		return a, a.openPage(msg.ID)
	case ClosePageMsg:
		a.closePage()
		return a, a.Menu.Refresh()
	case QuitMsg:
		a.shutdown()
		return a, tea.Quit
	case NextCultureMsg:
		return a, a.nextCulture(msg.Player)
	case ShowEventLogMsg:
		return a, a.pushOverlay(a.EventLog, "esc")
	case ShowHelpMsg:
		return a, a.pushOverlay(NewHelpView(a.KeyHandler.Registry, a.Deps.Loc), "esc")
	case ShowOverlayMsg:
		return a, a.pushOverlay(msg.View, msg.Dismiss)
	case DismissModalMsg:
		a.Overlays.Dismiss()
		return a, nil
	case RefreshMenuMsg:
		return a, a.Menu.Refresh()
	case StartWizardMsg:
		return a, a.startWizard()
	case WizardDoneMsg:
		return a, a.endWizard(msg.Completed)
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}
	return a, a.broadcast(msg)
}

// handleKey routes a key to the overlay, wizard, page or menu, in that
// order. The leader key is not interpreted while the receiver captures text.
func (a *appModelAdapter) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return func() tea.Msg { return QuitMsg{} }
	}
	if a.KeyHandler != nil && !a.viewTakes(msg) {
		if consumed, cmd := a.KeyHandler.Handle(msg); consumed {
			return cmd
		}
	}
	if top, ok := a.Overlays.Peek(); ok {
		if top.IsDismissKey(msg.String()) {
			a.Overlays.Dismiss()
			return nil
		}
		cmd, _ := a.Overlays.UpdateTop(msg)
		return cmd
	}
	switch a.Mode {
	case ModeWizard:
		if a.Wizard == nil {
			return nil
		}
		_, cmd := a.Wizard.Update(msg)
		return cmd
	case ModePage:
		if msg.String() == "esc" {
			return func() tea.Msg { return ClosePageMsg{} }
		}
		if a.Page == nil {
			return nil
		}
		v, cmd := a.Page.Update(msg)
		if p, ok := v.(Page); ok {
			a.Page = p
		}
		return cmd
	}
	_, cmd := a.Menu.Update(msg)
	return cmd
}

// viewTakes reports whether msg bypasses the keybind system and goes straight
// to the focused view.
func (a *AppModel) viewTakes(msg tea.KeyMsg) bool {
	target := a.keyTarget()
	if capturing(target) {
		return true
	}
	return seqPart(msg.String()) == leaderSeq && !a.KeyHandler.LeaderWaiting && takesSpace(target)
}

// keyTarget returns the view that receives the next key.
func (a *AppModel) keyTarget() View {
	if top, ok := a.Overlays.Peek(); ok {
		return top.View
	}
	switch {
	case a.Mode == ModeWizard && a.Wizard != nil:
		return a.Wizard
	case a.Mode == ModePage && a.Page != nil:
		return a.Page
	}
	return a.Menu
}

// handleEvent feeds the event log from the app bridge and hands page bridge
// events to the open page.
func (a *appModelAdapter) handleEvent(msg eventbus.EventMsg) tea.Cmd {
	if a.bridge != nil && msg.From == a.bridge {
		a.EventLog.Append(msg.Event)
		cmds := []tea.Cmd{a.listen()}
		if _, ok := msg.Event.(localization.CultureChangedEvent); ok {
			a.Menu.Relocalize()
			cmds = append(cmds, a.Menu.Refresh())
		}
		return tea.Batch(cmds...)
	}
	if a.Page == nil {
		return nil
	}
	v, cmd := a.Page.Update(msg)
	if p, ok := v.(Page); ok {
		a.Page = p
	}
	return cmd
}

// broadcast passes a non-key message to every live view. Result messages
// carry their owner, so views ignore what is not theirs.
func (a *appModelAdapter) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	_, cmd := a.Menu.Update(msg)
	cmds = append(cmds, cmd)
	if a.Page != nil {
		v, cmd := a.Page.Update(msg)
		if p, ok := v.(Page); ok {
			a.Page = p
		}
		cmds = append(cmds, cmd)
	}
	if a.Wizard != nil {
		_, cmd := a.Wizard.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, a.Overlays.UpdateAll(msg))
	return tea.Batch(cmds...)
}

func (a *AppModel) size() (int, int) {
	w, h := a.width, a.height
	if w == 0 {
		w = defaultWidth
	}
	if h == 0 {
		h = defaultHeight
	}
	return w, h
}

// pageSize is the inner size of the page panel.
func (a *AppModel) pageSize() tea.WindowSizeMsg {
	w, h := a.size()
	menuW := menuPanelWidth
	if w < 2*menuW {
		menuW = w / 2
	}
	return tea.WindowSizeMsg{Width: w - menuW - 3, Height: h - chromeHeight - 2}
}

func (a *AppModel) resize(width, height int) tea.Cmd {
	a.width, a.height = width, height
	menuW := menuPanelWidth
	if width < 2*menuW {
		menuW = width / 2
	}
	a.Menu.SetSize(menuW-2, height-chromeHeight-2)
	var cmds []tea.Cmd
	if a.Page != nil {
		v, cmd := a.Page.Update(a.pageSize())
		if p, ok := v.(Page); ok {
			a.Page = p
		}
		cmds = append(cmds, cmd)
	}
	if a.Wizard != nil {
		_, cmd := a.Wizard.Update(tea.WindowSizeMsg{Width: width - 4, Height: height - chromeHeight - 2})
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, a.Overlays.UpdateAll(tea.WindowSizeMsg{Width: width, Height: height}))
	return tea.Batch(cmds...)
}

func (a *AppModel) openPage(id string) tea.Cmd {
	spec, ok := FindPage(id)
	if !ok {
		a.Deps.Logger.Warn("unknown page", zap.String("page", id))
		return nil
	}
	a.closePage()
	a.Page = spec.Open(a.Deps)
	a.PageID = id
	a.Mode = ModePage
	a.Focus.SetFocus(panelPage)
	a.Deps.Logger.Debug("page opened", zap.String("page", id))
	a.Page.Update(a.pageSize())
	return a.Page.Init()
}

// closePage releases the open page and any overlay it raised.
func (a *AppModel) closePage() {
	a.Overlays.CloseAll()
	if a.Page != nil {
		a.Page.Close()
		a.Deps.Logger.Debug("page closed", zap.String("page", a.PageID))
	}
	a.Page = nil
	a.PageID = ""
	if a.Mode == ModePage {
		a.Mode = ModeMenu
	}
	a.Focus.SetFocus(panelMenu)
}

func (a *AppModel) pushOverlay(v View, dismiss string) tea.Cmd {
	if v == nil {
		return nil
	}
	if top, ok := a.Overlays.Peek(); ok && top.View == v {
		return nil
	}
	a.Overlays.Push(Overlay{View: v, Dismiss: dismiss})
	w, h := a.size()
	v.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return v.Init()
}

func (a *AppModel) nextCulture(player bool) tea.Cmd {
	if a.Deps.Loc == nil {
		return nil
	}
	scope := localization.Operator
	if player {
		scope = localization.Player
	}
	culture, err := a.Deps.Loc.NextCulture(scope)
	if err != nil {
		a.Deps.Logger.Warn("culture change failed", zap.Error(err))
		a.setStatus(errorText(a.tr(), err), true)
		return nil
	}
	a.setStatus(a.tr().GetFormat("Status.Culture", a.tr().GetString("Scope."+scope.String()), culture), false)
	if a.bridge == nil {
		a.Menu.Relocalize()
	}
	return nil
}

func (a *AppModel) startWizard() tea.Cmd {
	if a.Wizard != nil {
		return nil
	}
	a.closePage()
	a.Wizard = NewWizard(a.Deps)
	a.Mode = ModeWizard
	w, h := a.size()
	a.Wizard.Update(tea.WindowSizeMsg{Width: w - 4, Height: h - chromeHeight - 2})
	return a.Wizard.Init()
}

func (a *AppModel) endWizard(completed bool) tea.Cmd {
	if a.Wizard != nil {
		a.Wizard.Close()
		a.Wizard = nil
	}
	a.Mode = ModeMenu
	if completed {
		a.setStatus(a.tr().GetString("Wizard.Completed"), false)
	} else {
		a.setStatus(a.tr().GetString("Wizard.Abandoned"), false)
	}
	a.Menu.Relocalize()
	return a.Menu.Refresh()
}

// shutdown closes everything that holds a subscription or a session.
func (a *AppModel) shutdown() {
	a.closePage()
	if a.Wizard != nil {
		a.Wizard.Close()
		a.Wizard = nil
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
}

// Close releases the app's subscriptions when the program ends without a
// QuitMsg, for example on a signal.
func (a *AppModel) Close() { a.shutdown() }

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	w, h := a.size()
	if top, ok := a.Overlays.Peek(); ok {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, top.View.View())
	}

	header := Styles.Title.Render(a.tr().GetString("App.Title")) + "  " +
		Styles.Muted.Render(a.tr().GetFormat("App.Cultures",
			a.tr().Culture(), a.Deps.Loc.For(localization.Player).Culture()))

	var body string
	if a.Mode == ModeWizard && a.Wizard != nil {
		body = Styles.PanelFocused.Width(w - 2).Height(h - chromeHeight - 2).Render(a.Wizard.View())
	} else {
		var page View
		if a.Page != nil {
			page = a.Page
		}
		body = renderLayout(splitLayout{menu: a.Menu, page: page}, w, h-chromeHeight, a.Focus.Current)
	}

	footer := Styles.Hint.Render(a.tr().GetString("App.Hint"))
	if a.status != "" {
		if a.statusErr {
			footer = Styles.StatusErr.Render(a.status)
		} else {
			footer = Styles.StatusOK.Render(a.status)
		}
	}
	out := header + "\n" + body + "\n" + footer
	if a.KeyHandler != nil && a.KeyHandler.LeaderWaiting {
		out += "\n" + RenderKeybindHelp(a.KeyHandler, a.Mode, a.tr().GetString)
	}
	return out
}
