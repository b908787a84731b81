package ui

import (
	"context"
	"crypto/rand"
	"errors"
	"strconv"
	"strings"

	"opmenu/internal/auth"
	"opmenu/internal/progress"
	"opmenu/internal/properties"
	"opmenu/internal/ui/textutil"
	"opmenu/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
)

// hashDoneMsg carries the result of a computation.
type hashDoneMsg struct {
	owner any
	res   *auth.Result
	err   error
}

// HashPage computes the plain or keyed (HMAC) digest of the software
// components and shows per-component progress.
type HashPage struct {
	pageBase
	alg      auth.Algorithm
	form     *form
	window   *ProgressWindow
	running  bool
	abort    context.CancelFunc
	result   *auth.Result
	progress chan progress.Event
}

var _ Page = (*HashPage)(nil)

func NewHashPage(deps Deps) *HashPage {
	p := &HashPage{}
	p.pageBase = newPageBase(deps, p)
	p.alg = auth.SHA256
	if a, err := auth.ParseAlgorithm(propGet(p.deps.Props, properties.KeyHashAlgorithm, "")); err == nil {
		p.alg = a
	}
	keyed := toggleField("keyed", "Hash.Keyed", false)
	seed := textField("seed", "Hash.Seed", "", 128, nil)
	seed.check = func(s string) error { return validate.HMACKey(p.alg, s) }
	seed.disabled = func() bool { return !keyed.on }
	p.form = newForm(keyed, seed)
	p.window = NewProgressWindow(p.t("Hash.Progress"), p.t("Hash.Idle"))
	return p
}

func (p *HashPage) Title() string { return p.t("Hash.Title") }

func (p *HashPage) Init() tea.Cmd { return nil }

func (p *HashPage) Capturing() bool { return p.form.capturing() }

func (p *HashPage) TakesSpace() bool { return p.form.takesSpace() }

func (p *HashPage) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		if msg.owner == p {
			p.window.Add(msg.event)
			return p, waitForProgress(p, p.progress)
		}
	case hashDoneMsg:
		if msg.owner != p {
			return p, nil
		}
		p.running = false
		p.abort = nil
		switch {
		case errors.Is(msg.err, context.Canceled):
			p.setError(p.t("Hash.Aborted"))
		case msg.err != nil:
			p.setError(p.tf("Status.ActionFailed", p.t("Action.hash.compute"), p.errText(msg.err)))
		default:
			p.result = msg.res
			p.setStatus(p.tf("Hash.Complete", len(msg.res.Components)))
		}
	case tea.WindowSizeMsg:
		p.resize(msg)
		p.window.Update(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+r":
			return p, p.start()
		case "ctrl+x":
			if p.abort != nil {
				p.abort()
			}
			return p, nil
		case "ctrl+a":
			if !p.running {
				p.cycleAlgorithm()
			}
			return p, nil
		case "ctrl+g":
			p.generateSeed()
			return p, nil
		}
		if !p.running {
			_, cmd := p.form.update(msg)
			return p, cmd
		}
	}
	return p, nil
}

func (p *HashPage) cycleAlgorithm() {
	algs := auth.Algorithms()
	for i, a := range algs {
		if a == p.alg {
			p.alg = algs[(i+1)%len(algs)]
			break
		}
	}
	propSet(p.deps.Props, properties.KeyHashAlgorithm, p.alg.String())
	if seed := p.form.field("seed"); seed.err != nil || seed.value() != "" {
		seed.validate()
	}
}

// generateSeed derives a seed from the machine serial number and a random
// salt.
func (p *HashPage) generateSeed() {
	serial := propGet(p.deps.Props, properties.KeyMachineSerialNumber, "")
	if serial == "" {
		p.setError(p.t("Hash.NoSerial"))
		return
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		p.setError(err.Error())
		return
	}
	seed, err := auth.DeriveSeed(p.alg, []byte(serial), salt)
	if err != nil {
		p.setError(err.Error())
		return
	}
	p.form.field("keyed").on = true
	f := p.form.field("seed")
	f.input.SetValue(seed)
	f.validate()
	p.setStatus(p.t("Hash.SeedGenerated"))
}

func (p *HashPage) start() tea.Cmd {
	if p.running {
		return nil
	}
	if !p.form.validate() {
		p.setError(p.t("Hash.InvalidSeed"))
		return nil
	}
	req := auth.Request{Algorithm: p.alg}
	if p.form.field("keyed").on {
		req.Seed = p.form.field("seed").value()
	}
	ch := make(chan progress.Event, 64)
	svc := auth.NewService(p.deps.ManifestDir,
		auth.WithBus(p.deps.Bus),
		auth.WithEmitter(&progress.ChanEmitter{Ch: ch}),
		auth.WithLogger(p.deps.Logger))
	ctx, cancel := context.WithCancel(p.ctx)
	p.abort = cancel
	p.running = true
	p.result = nil
	p.progress = ch
	p.window.Reset()
	p.setStatus(p.t("Hash.Running"))

	owner, tel := p, p.deps.Telemetry
	attrs := map[string]string{"algorithm": req.Algorithm.String(), "keyed": strconv.FormatBool(req.Seed != "")}
	compute := func() tea.Msg {
		defer cancel()
		defer close(ch)
		spanCtx, end := tel.Action(ctx, "hash.compute", attrs)
		res, err := svc.Compute(spanCtx, req)
		end(err)
		return hashDoneMsg{owner: owner, res: res, err: err}
	}
	return tea.Batch(compute, waitForProgress(p, ch))
}

func (p *HashPage) View() string {
	var b strings.Builder
	b.WriteString(p.t("Hash.Algorithm") + ": " + Styles.Selected.Render(p.alg.String()))
	b.WriteString("  " + Styles.Muted.Render(p.tf("Hash.SeedLength", p.alg.Size()*2)))
	b.WriteString("\n" + Styles.Muted.Render(p.tf("Hash.Directory", p.deps.ManifestDir)))
	b.WriteString("\n\n" + p.form.view(&p.pageBase))
	b.WriteString("\n\n" + p.window.View())
	if r := p.result; r != nil {
		b.WriteString("\n\n" + Styles.Section.Render(p.t("Hash.Result")))
		b.WriteString("\n" + Styles.Selected.Render(auth.FormatHash(r.Combined)))
		rows := make([][]string, 0, len(r.Components))
		for _, c := range r.Components {
			rows = append(rows, []string{c.Name, textutil.Truncate(auth.FormatHash(c.Sum), 44)})
		}
		widths := textutil.ColumnWidths(rows, 32)
		for _, row := range rows {
			b.WriteString("\n  " + textutil.Row(row, widths))
		}
	}
	return p.frame(p.Title(), b.String(), p.t("Hash.Hint"))
}

// Close aborts a running computation.
func (p *HashPage) Close() { p.closeBase() }
