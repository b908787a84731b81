package ui

import (
	"context"
	"sync"

	"opmenu/internal/auth"
	"opmenu/internal/hardware"
	"opmenu/internal/properties"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"
)

// statusRefreshLimit bounds concurrent badge lookups.
const statusRefreshLimit = 4

// PageSpec registers one menu entry.
type PageSpec struct {
	ID       string
	TitleKey string
	Open     func(Deps) Page
	// Status returns a short badge shown next to the title. Optional.
	Status func(ctx context.Context, d Deps) (string, error)
}

// Pages returns the operator menu entries in display order.
func Pages() []PageSpec {
	return []PageSpec{
		{ID: "doors", TitleKey: "Doors.Title", Open: func(d Deps) Page { return NewDoorsPage(d) }, Status: doorsStatus},
		{ID: "keys", TitleKey: "Keys.Title", Open: func(d Deps) Page { return NewKeySwitchesPage(d) }, Status: keysStatus},
		{ID: "buttons", TitleKey: "Buttons.Title", Open: func(d Deps) Page { return NewButtonsPage(d) }},
		{ID: "bell", TitleKey: "Bell.Title", Open: func(d Deps) Page { return NewBellPage(d) }, Status: bellStatus},
		{ID: "reels", TitleKey: "Reels.Title", Open: func(d Deps) Page { return NewReelsPage(d) }, Status: reelsStatus},
		{ID: "edgelight", TitleKey: "EdgeLight.Title", Open: func(d Deps) Page { return NewEdgeLightingPage(d) }, Status: edgeStatus},
		{ID: "sound", TitleKey: "Sound.Title", Open: func(d Deps) Page { return NewSoundPage(d) }, Status: soundStatus},
		{ID: "coins", TitleKey: "Coins.Title", Open: func(d Deps) Page { return NewCoinAcceptorPage(d) }, Status: coinsStatus},
		{ID: "network", TitleKey: "Network.Title", Open: func(d Deps) Page { return NewNetworkPage(d) }, Status: networkStatus},
		{ID: "hash", TitleKey: "Hash.Title", Open: func(d Deps) Page { return NewHashPage(d) }, Status: hashStatus},
		{ID: "settings", TitleKey: "Settings.Title", Open: func(d Deps) Page { return NewMachineSettingsPage(d) }, Status: settingsStatus},
	}
}

// FindPage returns the spec registered under id.
func FindPage(id string) (PageSpec, bool) {
	for _, s := range Pages() {
		if s.ID == id {
			return s, true
		}
	}
	return PageSpec{}, false
}

func doorsStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.Doors == nil {
		return "", hardware.ErrNoService
	}
	open := 0
	for _, door := range d.Services.Doors.Doors() {
		if door.Open {
			open++
		}
	}
	return d.operator().GetFormat("Menu.Badge.DoorsOpen", open), nil
}

func keysStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.Keys == nil {
		return "", hardware.ErrNoService
	}
	on := 0
	for _, k := range d.Services.Keys.Switches() {
		if k.On {
			on++
		}
	}
	return d.operator().GetFormat("Menu.Badge.KeysOn", on), nil
}

func bellStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.Bell == nil {
		return "", hardware.ErrNoService
	}
	if d.Services.Bell.Ringing() {
		return d.operator().GetString("Bell.Ringing"), nil
	}
	return "", nil
}

func reelsStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.Reels == nil {
		return "", hardware.ErrNoService
	}
	faulted := 0
	for _, r := range d.Services.Reels.Reels() {
		if r.State == hardware.ReelFaulted {
			faulted++
		}
	}
	if faulted == 0 {
		return "", nil
	}
	return d.operator().GetFormat("Menu.Badge.ReelFaults", faulted), nil
}

func edgeStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.EdgeLights == nil {
		return "", hardware.ErrNoService
	}
	return d.operator().GetFormat("EdgeLight.Brightness", d.Services.EdgeLights.Brightness()), nil
}

func soundStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.Audio == nil {
		return "", hardware.ErrNoService
	}
	if d.Services.Audio.Muted() {
		return d.operator().GetString("Sound.Muted"), nil
	}
	return d.operator().GetFormat("Sound.Volume", d.Services.Audio.Volume()), nil
}

func coinsStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.Coins == nil {
		return "", hardware.ErrNoService
	}
	st := d.Services.Coins.State()
	switch {
	case st.Faulted:
		return d.operator().GetString("Coins.Faulted"), nil
	case !st.Enabled:
		return d.operator().GetString("Coins.Disabled"), nil
	}
	return d.operator().GetString("Coins.Divert." + st.Divert.String()), nil
}

func networkStatus(_ context.Context, d Deps) (string, error) {
	if d.Services.Network == nil {
		return "", hardware.ErrNoService
	}
	cfg := d.Services.Network.Config()
	if cfg.DHCP {
		return d.operator().GetString("Network.DHCP"), nil
	}
	return cfg.IP, nil
}

func hashStatus(_ context.Context, d Deps) (string, error) {
	alg, err := auth.ParseAlgorithm(propGet(d.Props, properties.KeyHashAlgorithm, auth.SHA256.String()))
	if err != nil {
		return "", err
	}
	return alg.String(), nil
}

func settingsStatus(_ context.Context, d Deps) (string, error) {
	serial := propGet(d.Props, properties.KeyMachineSerialNumber, "")
	if serial == "" {
		return d.operator().GetString("Menu.Badge.NoSerial"), nil
	}
	return serial, nil
}

// menuStatusMsg carries refreshed badges keyed by page id.
type menuStatusMsg struct {
	badges map[string]badge
}

type badge struct {
	text string
	err  bool
}

// menuItem implements list.Item.
type menuItem struct {
	spec  PageSpec
	title string
	badge badge
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string {
	if i.badge.err {
		return Styles.Fault.Render(i.badge.text)
	}
	return i.badge.text
}

// MenuView lists the operator pages with a status badge under each title.
type MenuView struct {
	list    list.Model
	specs   []PageSpec
	badges  map[string]badge
	deps    Deps
	spinner spinner.Model
	loading bool
}

var _ View = (*MenuView)(nil)

func NewMenuView(deps Deps) *MenuView {
	l := list.New(nil, NewCompactListDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	m := &MenuView{
		list:    l,
		specs:   Pages(),
		badges:  make(map[string]badge),
		deps:    deps.withDefaults(),
		spinner: s,
	}
	m.Relocalize()
	return m
}

// Relocalize rebuilds item titles in the current operator culture.
func (m *MenuView) Relocalize() {
	items := make([]list.Item, len(m.specs))
	for i, s := range m.specs {
		items[i] = menuItem{spec: s, title: m.deps.operator().GetString(s.TitleKey), badge: m.badges[s.ID]}
	}
	m.list.SetItems(items)
}

// Selected returns the index of the highlighted entry.
func (m *MenuView) Selected() int {
	return m.list.Index()
}

// SelectedSpec returns the highlighted entry.
func (m *MenuView) SelectedSpec() (PageSpec, bool) {
	if it, ok := m.list.SelectedItem().(menuItem); ok {
		return it.spec, true
	}
	return PageSpec{}, false
}

// Refresh starts a concurrent badge refresh.
func (m *MenuView) Refresh() tea.Cmd {
	m.loading = true
	specs, deps := m.specs, m.deps
	refresh := func() tea.Msg {
		var mu sync.Mutex
		out := make(map[string]badge, len(specs))
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(statusRefreshLimit)
		for _, s := range specs {
			if s.Status == nil {
				continue
			}
			g.Go(func() error {
				text, err := s.Status(ctx, deps)
				b := badge{text: text}
				if err != nil {
					b = badge{text: errorText(deps.operator(), err), err: true}
				}
				mu.Lock()
				out[s.ID] = b
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		return menuStatusMsg{badges: out}
	}
	return tea.Batch(refresh, m.spinner.Tick)
}

func (m *MenuView) Init() tea.Cmd {
	return m.Refresh()
}

func (m *MenuView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case menuStatusMsg:
		m.badges = msg.badges
		m.loading = false
		m.Relocalize()
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "enter" {
			if s, ok := m.SelectedSpec(); ok {
				return m, func() tea.Msg { return OpenPageMsg{ID: s.ID} }
			}
			return m, nil
		}
	}
	// list.Model handles j/k/g/G navigation natively.
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetSize fits the list into the menu panel.
func (m *MenuView) SetSize(width, height int) {
	m.list.SetWidth(width)
	m.list.SetHeight(max(height-2, 1))
}

func (m *MenuView) View() string {
	if m.list.Width() == 0 {
		m.list.SetWidth(menuPanelWidth)
	}
	if m.list.Height() == 0 {
		m.list.SetHeight(len(m.specs) * 2)
	}
	title := Styles.Title.Render(m.deps.operator().GetString("Menu.Title"))
	if m.loading {
		title += " " + m.spinner.View()
	}
	return title + "\n\n" + m.list.View()
}
