package ui

import (
	"strings"
	"testing"

	"opmenu/internal/localization"
	"opmenu/internal/properties"
)

func TestWizard_AdvancingShowsTheNextStep(t *testing.T) {
	deps, _ := newTestDeps(t)
	w := NewWizard(deps)
	defer w.Close()

	if _, ok := w.steps.Peek().(*welcomeStep); !ok {
		t.Fatalf("first step is %T", w.steps.Peek())
	}
	w.Update(keyMsg("enter"))
	if _, ok := w.steps.Peek().(*cultureStep); !ok {
		t.Fatalf("after welcome the top step is %T", w.steps.Peek())
	}
	w.Update(keyMsg("enter"))
	identity, ok := w.steps.Peek().(*formStep)
	if !ok {
		t.Fatalf("after culture the top step is %T", w.steps.Peek())
	}
	typeText(w, "SN-1")
	w.Update(keyMsg("ctrl+n"))
	network, ok := w.steps.Peek().(*formStep)
	if !ok || network == identity {
		t.Fatalf("after identity the top step is %T", w.steps.Peek())
	}
	w.Update(keyMsg("ctrl+n"))
	if _, ok := w.steps.Peek().(*summaryStep); !ok {
		t.Fatalf("after network the top step is %T", w.steps.Peek())
	}
	if w.Step() != 5 {
		t.Errorf("step = %d, want every earlier step kept beneath", w.Step())
	}
}

func TestWizard_CompletesAndStores(t *testing.T) {
	deps, _ := newTestDeps(t)
	w := NewWizard(deps)
	defer w.Close()

	if w.Step() != 1 {
		t.Fatalf("step = %d", w.Step())
	}
	assertLocalized(t, "welcome", w.View())

	w.Update(keyMsg("enter")) // welcome
	w.Update(keyMsg("enter")) // keep en-US
	if w.Step() != 3 {
		t.Fatalf("expected identity step, got %d", w.Step())
	}
	if !w.Capturing() {
		t.Error("identity step should capture text")
	}
	typeText(w, "SN-9")
	w.Update(keyMsg("ctrl+n"))
	if w.Step() != 4 {
		t.Fatalf("expected network step, got %d (%s)", w.Step(), w.status)
	}
	w.Update(keyMsg("ctrl+n"))
	if w.Step() != 5 {
		t.Fatalf("expected summary step, got %d (%s)", w.Step(), w.status)
	}
	out := w.View()
	if !strings.Contains(out, "SN-9") || !strings.Contains(out, "192.168.1.50") {
		t.Errorf("summary missing answers:\n%s", out)
	}
	assertLocalized(t, "summary", out)

	_, cmd := w.Update(keyMsg("enter"))
	msg := runAction(t, w, cmd)
	if msg.err != nil {
		t.Fatalf("network.apply: %v", msg.err)
	}
	_, cmd = w.Update(msg)
	done, ok := cmd().(WizardDoneMsg)
	if !ok || !done.Completed {
		t.Errorf("expected completed WizardDoneMsg")
	}

	if !WizardComplete(deps.Props) {
		t.Error("wizard should be marked complete")
	}
	if got := properties.Get(deps.Props, properties.KeyMachineSerialNumber, ""); got != "SN-9" {
		t.Errorf("serial = %q", got)
	}
	if got := properties.Get(deps.Props, properties.KeyNetworkIP, ""); got != "192.168.1.50" {
		t.Errorf("ip = %q", got)
	}
}

func TestWizard_IdentityRequiresSerial(t *testing.T) {
	deps, _ := newTestDeps(t)
	w := NewWizard(deps)
	defer w.Close()

	w.Update(keyMsg("enter"))
	w.Update(keyMsg("enter"))
	w.Update(keyMsg("ctrl+n"))
	if w.Step() != 3 {
		t.Errorf("empty serial should not advance, step %d", w.Step())
	}
	if !w.statusErr {
		t.Error("expected an error status")
	}
	assertLocalized(t, "identity", w.View())
}

func TestWizard_EscGoesBack(t *testing.T) {
	deps, _ := newTestDeps(t)
	w := NewWizard(deps)
	defer w.Close()

	w.Update(keyMsg("enter"))
	w.Update(keyMsg("enter"))
	_, cmd := w.Update(keyMsg("esc"))
	if cmd != nil || w.Step() != 2 {
		t.Fatalf("esc should pop to step 2, got %d", w.Step())
	}
	w.Update(keyMsg("esc"))
	_, cmd = w.Update(keyMsg("esc"))
	if cmd == nil {
		t.Fatal("esc on the first step should abandon")
	}
	if done := cmd().(WizardDoneMsg); done.Completed {
		t.Error("abandon must not report completion")
	}
}

func TestWizard_CultureStepSetsOperatorCulture(t *testing.T) {
	deps, _ := newTestDeps(t)
	w := NewWizard(deps)
	defer w.Close()

	w.Update(keyMsg("enter"))
	cultures := deps.Loc.Cultures()
	w.Update(keyMsg("G"))
	w.Update(keyMsg("enter"))
	want := cultures[len(cultures)-1]
	if got := deps.Loc.Culture(localization.Operator); got != want {
		t.Errorf("operator culture = %s, want %s", got, want)
	}
	if deps.Loc.Culture(localization.Player) != localization.DefaultCulture {
		t.Error("player culture must not change")
	}
	assertLocalized(t, want, w.View())
}

func TestWizard_DHCPSkipsStaticFields(t *testing.T) {
	deps, _ := newTestDeps(t)
	w := NewWizard(deps)
	defer w.Close()

	w.Update(keyMsg("enter"))
	w.Update(keyMsg("enter"))
	typeText(w, "SN-1")
	w.Update(keyMsg("ctrl+n"))

	w.Update(keyMsg(" ")) // dhcp on
	w.Update(keyMsg("tab"))
	typeText(w, "x")
	w.Update(keyMsg("ctrl+n"))
	if w.Step() != 5 {
		t.Fatalf("disabled fields should not block, step %d", w.Step())
	}
	if !w.network.DHCP || w.network.IP != "" {
		t.Errorf("network = %+v", w.network)
	}
}

func TestWizard_NoNetworkServiceCompletesDirectly(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Services.Network = nil
	w := NewWizard(deps)
	defer w.Close()

	w.Update(keyMsg("enter"))
	w.Update(keyMsg("enter"))
	typeText(w, "SN-2")
	w.Update(keyMsg("ctrl+n"))
	w.Update(keyMsg("ctrl+n"))
	_, cmd := w.Update(keyMsg("enter"))
	done, ok := cmd().(WizardDoneMsg)
	if !ok || !done.Completed {
		t.Error("expected immediate completion")
	}
	if got := properties.Get(deps.Props, properties.KeyNetworkDHCP, false); !got {
		t.Error("wizard without a network service stores DHCP")
	}
}
