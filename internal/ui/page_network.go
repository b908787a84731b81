package ui

import (
	"context"
	"strings"

	"opmenu/internal/diag"
	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/properties"
	"opmenu/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

// applyNetworkMsg is sent by the confirmation modal.
type applyNetworkMsg struct {
	owner any
	cfg   hardware.NetworkConfig
}

// NetworkPage edits the cabinet's IPv4 configuration and runs ping or
// traceroute against a target host.
type NetworkPage struct {
	pageBase
	form       *form
	interfaces []hardware.NetworkInterface
	ifaceErr   error
	active     hardware.NetworkConfig
}

var _ Page = (*NetworkPage)(nil)

func NewNetworkPage(deps Deps) *NetworkPage {
	p := &NetworkPage{}
	p.pageBase = newPageBase(deps, p, eventbus.TypeOf[hardware.NetworkConfigChangedEvent]())
	p.refresh()

	cfg := p.active
	dhcp := toggleField("dhcp", "Network.DHCP", cfg.DHCP)
	ip := textField("ip", "Network.IP", cfg.IP, 15, validate.IPv4)
	mask := textField("mask", "Network.Mask", cfg.Mask, 15, validate.SubnetMask)
	gw := textField("gateway", "Network.Gateway", cfg.Gateway, 15, nil)
	gw.check = func(s string) error { return validate.Gateway(ip.value(), mask.value(), s) }
	dns := textField("dns", "Network.DNS", strings.Join(cfg.DNS, ", "), 64, validateDNS)
	target := textField("target", "Network.Target", cfg.Gateway, 253, nil)
	static := func() bool { return dhcp.on }
	ip.disabled, mask.disabled, gw.disabled = static, static, static
	p.form = newForm(dhcp, ip, mask, gw, dns, target)
	return p
}

// splitDNS accepts servers separated by commas or spaces.
func splitDNS(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

func validateDNS(s string) error {
	for _, server := range splitDNS(s) {
		if err := validate.IPv4(server); err != nil {
			return err
		}
	}
	return nil
}

func (p *NetworkPage) Title() string { return p.t("Network.Title") }

func (p *NetworkPage) refresh() {
	svc := p.deps.Services.Network
	if svc == nil {
		return
	}
	p.active = svc.Config()
	p.interfaces, p.ifaceErr = svc.Interfaces()
}

func (p *NetworkPage) Init() tea.Cmd { return p.listen() }

func (p *NetworkPage) Capturing() bool { return p.form.capturing() }

func (p *NetworkPage) TakesSpace() bool { return p.form.takesSpace() }

// draft returns the configuration currently entered in the form.
func (p *NetworkPage) draft() hardware.NetworkConfig {
	cfg := hardware.NetworkConfig{
		DHCP: p.form.field("dhcp").on,
		DNS:  splitDNS(p.form.field("dns").value()),
	}
	if !cfg.DHCP {
		cfg.IP = p.form.field("ip").value()
		cfg.Mask = p.form.field("mask").value()
		cfg.Gateway = p.form.field("gateway").value()
	}
	return cfg
}

func (p *NetworkPage) Update(msg tea.Msg) (View, tea.Cmd) {
	svc := p.deps.Services.Network
	switch msg := msg.(type) {
	case eventbus.EventMsg:
		if !p.mine(msg) {
			return p, nil
		}
		p.refresh()
		return p, p.listen()
	case applyNetworkMsg:
		if msg.owner != p || svc == nil {
			return p, nil
		}
		cfg := msg.cfg
		apply := p.run("network.apply", map[string]string{"dhcp": boolString(cfg.DHCP), "ip": cfg.IP}, func(ctx context.Context) error {
			return svc.Apply(ctx, cfg)
		})
		return p, func() tea.Msg {
			done := apply().(actionDoneMsg)
			done.value = cfg
			return done
		}
	case actionDoneMsg:
		if p.done(msg) && msg.err == nil && msg.action == "network.apply" {
			// The form may have been edited while the apply ran.
			if cfg, ok := msg.value.(hardware.NetworkConfig); ok {
				persistNetwork(p.deps.Props, cfg)
			}
			p.refresh()
		}
	case tea.WindowSizeMsg:
		p.resize(msg)
	case tea.KeyMsg:
		if svc == nil {
			return p, nil
		}
		switch msg.String() {
		case "ctrl+s":
			return p, p.confirmApply()
		case "ctrl+p":
			return p, p.diagnose(diag.Ping)
		case "ctrl+t":
			return p, p.diagnose(diag.Traceroute)
		case "ctrl+r":
			p.refresh()
			return p, nil
		}
		_, cmd := p.form.update(msg)
		return p, cmd
	}
	return p, nil
}

func (p *NetworkPage) confirmApply() tea.Cmd {
	if !p.form.validate() {
		p.setError(p.t("Network.Invalid"))
		return nil
	}
	cfg := p.draft()
	label := p.t("Network.Mode.DHCP")
	if !cfg.DHCP {
		label = p.tf("Network.Mode.Static", cfg.IP, cfg.Mask, cfg.Gateway)
	}
	owner := p
	modal := NewConfirmModal(p.t("Network.ConfirmTitle"), label, p.t("Confirm.Hint"), func() tea.Msg {
		return applyNetworkMsg{owner: owner, cfg: cfg}
	}).WithDetails(p.t("Network.ConfirmDetails"))
	return func() tea.Msg { return ShowOverlayMsg{View: modal, Dismiss: "esc"} }
}

// persistNetwork stores an applied configuration in the network properties.
func persistNetwork(props properties.Store, cfg hardware.NetworkConfig) {
	propSet(props, properties.KeyNetworkDHCP, cfg.DHCP)
	propSet(props, properties.KeyNetworkIP, cfg.IP)
	propSet(props, properties.KeyNetworkMask, cfg.Mask)
	propSet(props, properties.KeyNetworkGateway, cfg.Gateway)
	propSet(props, properties.KeyNetworkDNS, strings.Join(cfg.DNS, ","))
}

func (p *NetworkPage) diagnose(c diag.Command) tea.Cmd {
	target := p.form.field("target")
	host := target.value()
	if err := validate.Host(host); err != nil {
		target.err = err
		p.form.focus.SetFocus("target")
		return nil
	}
	target.err = nil
	view := NewDiagView(p.deps, c, host)
	return func() tea.Msg { return ShowOverlayMsg{View: view, Dismiss: "esc"} }
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (p *NetworkPage) View() string {
	if p.deps.Services.Network == nil {
		return p.unavailable(p.Title())
	}
	var b strings.Builder
	b.WriteString(Styles.Section.Render(p.t("Network.Interfaces")))
	if p.ifaceErr != nil {
		b.WriteString("\n  " + Styles.StatusErr.Render(p.errText(p.ifaceErr)))
	}
	for _, ifc := range p.interfaces {
		state := Styles.Off.Render(p.t("Network.Down"))
		if ifc.Up {
			state = Styles.StatusOK.Render(p.t("Network.Up"))
		}
		b.WriteString("\n  " + ifc.Name + "  " + state + "  " + ifc.MAC + "  " + strings.Join(ifc.Addresses, ", "))
	}
	active := p.t("Network.Mode.DHCP")
	if !p.active.DHCP {
		active = p.tf("Network.Mode.Static", p.active.IP, p.active.Mask, p.active.Gateway)
	}
	b.WriteString("\n\n" + p.t("Network.Active") + ": " + active)
	b.WriteString("\n\n" + p.form.view(&p.pageBase))
	return p.frame(p.Title(), b.String(), p.t("Network.Hint"))
}

func (p *NetworkPage) Close() { p.closeBase() }
