package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"opmenu/internal/auth"
	"opmenu/internal/properties"
	"opmenu/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

func TestForm_TabCyclesFocus(t *testing.T) {
	a := textField("a", "A", "", 10, nil)
	b := toggleField("b", "B", false)
	f := newForm(a, b)

	if !f.focus.Is("a") || !f.capturing() {
		t.Fatal("first text field should have focus")
	}
	f.update(keyMsg("tab"))
	if !f.focus.Is("b") || f.capturing() {
		t.Error("toggle should have focus and not capture")
	}
	f.update(keyMsg(" "))
	if !b.on {
		t.Error("space should flip the toggle")
	}
	f.update(keyMsg("tab"))
	if !f.focus.Is("a") {
		t.Error("focus should wrap to the first field")
	}
}

func TestForm_InlineValidation(t *testing.T) {
	ip := textField("ip", "Network.IP", "", 15, validate.IPv4)
	f := newForm(ip)

	for _, r := range "10.0.0.300" {
		f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if f.validate() {
		t.Fatal("10.0.0.300 should fail")
	}
	if !errors.Is(ip.err, validate.ErrInvalidIPv4) {
		t.Errorf("err = %v", ip.err)
	}
	// Editing while an error shows re-validates live.
	f.update(keyMsg("backspace"))
	f.update(keyMsg("backspace"))
	if ip.err != nil {
		t.Errorf("10.0.0.3 should clear the error, got %v", ip.err)
	}
}

func TestForm_DisabledFieldsNotValidated(t *testing.T) {
	dhcp := toggleField("dhcp", "Network.DHCP", true)
	ip := textField("ip", "Network.IP", "bogus", 15, validate.IPv4)
	ip.disabled = func() bool { return dhcp.on }
	f := newForm(dhcp, ip)

	if !f.validate() {
		t.Error("disabled field should not be validated")
	}
	dhcp.on = false
	if f.validate() {
		t.Error("enabled field should be validated")
	}
}

func TestNetworkPage_InvalidBlocksApply(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewNetworkPage(deps)
	defer p.Close()

	p.form.field("gateway").input.SetValue("10.9.9.1")
	_, cmd := p.Update(keyMsg("ctrl+s"))
	if cmd != nil {
		t.Fatal("invalid form should not raise the confirmation")
	}
	if !errors.Is(p.form.field("gateway").err, validate.ErrGateway) {
		t.Errorf("gateway err = %v", p.form.field("gateway").err)
	}
	out := p.View()
	if !strings.Contains(out, "Gateway is outside the subnet") {
		t.Errorf("expected inline error in view:\n%s", out)
	}
}

func TestNetworkPage_ConfirmAndApply(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewNetworkPage(deps)
	defer p.Close()

	p.form.field("ip").input.SetValue("192.168.1.77")
	_, cmd := p.Update(keyMsg("ctrl+s"))
	if cmd == nil {
		t.Fatal("expected confirmation overlay")
	}
	show, ok := cmd().(ShowOverlayMsg)
	if !ok {
		t.Fatal("expected ShowOverlayMsg")
	}
	modal, ok := show.View.(*ConfirmModal)
	if !ok {
		t.Fatalf("overlay is %T", show.View)
	}
	apply := modal.OnConfirm()
	_, cmd = p.Update(apply)
	runAction(t, p, cmd)

	if got := deps.Services.Network.Config().IP; got != "192.168.1.77" {
		t.Errorf("applied IP = %q", got)
	}
	if got := properties.Get(deps.Props, properties.KeyNetworkIP, ""); got != "192.168.1.77" {
		t.Errorf("stored IP = %q", got)
	}
}

func TestNetworkPage_StoresAppliedConfigNotLaterEdits(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewNetworkPage(deps)
	defer p.Close()

	p.form.field("ip").input.SetValue("192.168.1.77")
	_, cmd := p.Update(keyMsg("ctrl+s"))
	if cmd == nil {
		t.Fatal("expected confirmation overlay")
	}
	modal := cmd().(ShowOverlayMsg).View.(*ConfirmModal)
	_, cmd = p.Update(modal.OnConfirm())
	if cmd == nil {
		t.Fatal("expected apply command")
	}
	done := cmd()

	// The operator keeps typing before the result arrives.
	p.form.field("ip").input.SetValue("192.168.1.99")
	p.form.field("gateway").input.SetValue("192.168.1.254")
	p.Update(done)

	if got := deps.Services.Network.Config().IP; got != "192.168.1.77" {
		t.Errorf("applied IP = %q", got)
	}
	if got := properties.Get(deps.Props, properties.KeyNetworkIP, ""); got != "192.168.1.77" {
		t.Errorf("stored IP = %q, want the applied address", got)
	}
	if got := properties.Get(deps.Props, properties.KeyNetworkGateway, ""); got != "192.168.1.1" {
		t.Errorf("stored gateway = %q, want the applied gateway", got)
	}
}

func TestNetworkPage_DiagnosticsNeedValidHost(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewNetworkPage(deps)
	defer p.Close()

	p.form.field("target").input.SetValue("bad host;")
	_, cmd := p.Update(keyMsg("ctrl+p"))
	if cmd != nil {
		t.Error("invalid host should not start a diagnostic")
	}
	if !p.form.focus.Is("target") {
		t.Error("focus should move to the target field")
	}

	p.form.field("target").input.SetValue("192.168.1.1")
	_, cmd = p.Update(keyMsg("ctrl+t"))
	if cmd == nil {
		t.Fatal("expected diagnostic overlay")
	}
	if show, ok := cmd().(ShowOverlayMsg); !ok {
		t.Error("expected ShowOverlayMsg")
	} else if _, ok := show.View.(*DiagView); !ok {
		t.Errorf("overlay is %T", show.View)
	}
}

func TestHashPage_SeedLengthFollowsAlgorithm(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewHashPage(deps)
	defer p.Close()

	p.form.field("keyed").on = true
	p.form.field("seed").input.SetValue(strings.Repeat("ab", 32))
	if !p.form.validate() {
		t.Fatalf("64 hex digits should be valid for SHA256: %v", p.form.field("seed").err)
	}

	p.Update(keyMsg("ctrl+a")) // SHA384
	if p.alg != auth.SHA384 {
		t.Fatalf("alg = %v", p.alg)
	}
	if got := properties.Get(deps.Props, properties.KeyHashAlgorithm, ""); got != "SHA384" {
		t.Errorf("stored algorithm = %q", got)
	}
	fe, ok := validate.AsFieldError(p.form.field("seed").err)
	if !ok || fe.Key != validate.KeyHexLength || fe.Args[0] != 96 {
		t.Errorf("seed err = %v", p.form.field("seed").err)
	}

	_, cmd := p.Update(keyMsg("ctrl+r"))
	if cmd != nil {
		t.Error("invalid seed should not start a run")
	}
}

func TestHashPage_GenerateSeedNeedsSerial(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewHashPage(deps)
	defer p.Close()

	p.Update(keyMsg("ctrl+g"))
	if !p.statusErr {
		t.Error("expected error without a serial number")
	}

	deps.Props.SetProperty(properties.KeyMachineSerialNumber, "SN-1001")
	p.Update(keyMsg("ctrl+g"))
	seed := p.form.field("seed")
	if !p.form.field("keyed").on || seed.err != nil || len(seed.value()) != 64 {
		t.Errorf("generated seed %q err=%v", seed.value(), seed.err)
	}
}

func TestHashPage_ComputeStreamsProgress(t *testing.T) {
	deps, _ := newTestDeps(t)
	for _, name := range []string{"game.bin", "os.img"} {
		if err := os.WriteFile(filepath.Join(deps.ManifestDir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p := NewHashPage(deps)
	defer p.Close()

	_, cmd := p.Update(keyMsg("ctrl+r"))
	got := cmd()
	batch, ok := got.(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected compute and progress commands, got %T", got)
	}
	p.Update(batch[0]())
	if p.running || p.result == nil {
		t.Fatalf("run did not finish: status=%q", p.status)
	}
	if len(p.result.Components) != 2 {
		t.Errorf("components = %d", len(p.result.Components))
	}

	next := batch[1]
	events := 0
	for next != nil {
		msg := next()
		if _, done := msg.(progressClosedMsg); done {
			break
		}
		events++
		_, next = p.Update(msg)
	}
	if events == 0 || len(p.window.events) != events {
		t.Errorf("progress events = %d, window has %d", events, len(p.window.events))
	}
	if !strings.Contains(p.View(), auth.FormatHash(p.result.Combined)) {
		t.Error("view should show the combined digest")
	}
}

func TestMachineSettingsPage_SaveAndExportImport(t *testing.T) {
	deps, _ := newTestDeps(t)
	p := NewMachineSettingsPage(deps)
	defer p.Close()

	p.Update(keyMsg("ctrl+s"))
	if !p.statusErr {
		t.Fatal("empty serial number should not save")
	}

	p.form.field("SerialNumber").input.SetValue("SN-42")
	p.form.field("AssetNumber").input.SetValue("1234")
	p.Update(keyMsg("ctrl+s"))
	if p.statusErr {
		t.Fatalf("save failed: %s", p.status)
	}
	if got := properties.Get(deps.Props, properties.KeyMachineSerialNumber, ""); got != "SN-42" {
		t.Errorf("serial = %q", got)
	}

	_, cmd := p.Update(keyMsg("ctrl+e"))
	batch := cmd().(tea.BatchMsg)
	msg := runAction(t, p, batch[0])
	if msg.err != nil {
		t.Fatalf("export: %v", msg.err)
	}
	if len(p.files) != 1 {
		t.Errorf("files = %v", p.files)
	}

	deps.Props.SetProperty(properties.KeyMachineSerialNumber, "SN-changed")
	_, cmd = p.Update(keyMsg("ctrl+o"))
	show := cmd().(ShowOverlayMsg)
	_, cmd = p.Update(show.View.(*ConfirmModal).OnConfirm())
	batch = cmd().(tea.BatchMsg)
	msg = runAction(t, p, batch[0])
	if msg.err != nil {
		t.Fatalf("import: %v", msg.err)
	}
	if got := properties.Get(deps.Props, properties.KeyMachineSerialNumber, ""); got != "SN-42" {
		t.Errorf("serial after import = %q", got)
	}
	if p.form.field("SerialNumber").value() != "SN-42" {
		t.Error("form should reload after import")
	}
}

func TestConfirmModal_Answers(t *testing.T) {
	confirmed := false
	m := NewConfirmModal("T", "L", "H", func() tea.Msg {
		confirmed = true
		return nil
	})

	_, cmd := m.Update(keyMsg("n"))
	if _, ok := cmd().(DismissModalMsg); !ok {
		t.Error("n should dismiss")
	}
	_, cmd = m.Update(keyMsg("y"))
	if cmd == nil {
		t.Fatal("y should confirm")
	}
	m.OnConfirm()
	if !confirmed {
		t.Error("expected OnConfirm to run")
	}
	if !strings.Contains(m.View(), "L") {
		t.Error("view should show the label")
	}
}
