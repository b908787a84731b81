package ui

import (
	"fmt"
	"strings"
	"time"

	"opmenu/internal/hardware"
	"opmenu/internal/properties"
	"opmenu/internal/ui/textutil"

	tea "github.com/charmbracelet/bubbletea"
)

// Test colors cycled with "c".
var testColors = []struct {
	key   string
	color hardware.Color
}{
	{"EdgeLight.Color.Red", hardware.Color{R: 255}},
	{"EdgeLight.Color.Green", hardware.Color{G: 255}},
	{"EdgeLight.Color.Blue", hardware.Color{B: 255}},
	{"EdgeLight.Color.White", hardware.Color{R: 255, G: 255, B: 255}},
}

const (
	brightnessStep   = 10
	flashStep        = 100 * time.Millisecond
	minFlashInterval = 100 * time.Millisecond
	maxFlashInterval = 2 * time.Second
	defaultFlashMs   = 500
)

type flashTickMsg struct {
	owner any
	gen   int
}

// EdgeLightingPage sets brightness and test colors per strip and flashes the
// current strip on a timer.
type EdgeLightingPage struct {
	pageBase
	strips     []hardware.Strip
	current    int // index into strips
	colorIdx   int
	brightness int
	interval   time.Duration
	flashing   bool
	flashOn    bool
	flashGen   int
}

var _ Page = (*EdgeLightingPage)(nil)

func NewEdgeLightingPage(deps Deps) *EdgeLightingPage {
	p := &EdgeLightingPage{colorIdx: -1}
	p.pageBase = newPageBase(deps, p)
	ms := propGet(p.deps.Props, properties.KeyEdgeLightFlashMs, defaultFlashMs)
	p.interval = clampInterval(time.Duration(ms) * time.Millisecond)
	p.refresh()
	return p
}

func clampInterval(d time.Duration) time.Duration {
	return min(max(d, minFlashInterval), maxFlashInterval)
}

func (p *EdgeLightingPage) Title() string { return p.t("EdgeLight.Title") }

func (p *EdgeLightingPage) refresh() {
	if svc := p.deps.Services.EdgeLights; svc != nil {
		p.strips = svc.Strips()
		p.brightness = svc.Brightness()
	}
}

func (p *EdgeLightingPage) Init() tea.Cmd { return nil }

func (p *EdgeLightingPage) Update(msg tea.Msg) (View, tea.Cmd) {
	svc := p.deps.Services.EdgeLights
	switch msg := msg.(type) {
	case flashTickMsg:
		if msg.owner != p || msg.gen != p.flashGen || !p.flashing {
			return p, nil
		}
		p.flashOn = !p.flashOn
		p.applyFlash()
		return p, p.tick()
	case tea.WindowSizeMsg:
		p.resize(msg)
	case tea.KeyMsg:
		if svc == nil || len(p.strips) == 0 {
			return p, nil
		}
		switch msg.String() {
		case "tab", "right", "l":
			p.selectStrip(p.current + 1)
		case "shift+tab", "left", "h":
			p.selectStrip(p.current - 1)
		case "+", "=":
			p.setBrightness(p.brightness + brightnessStep)
		case "-":
			p.setBrightness(p.brightness - brightnessStep)
		case "c":
			p.colorIdx = (p.colorIdx + 1) % len(testColors)
			p.setColor(testColors[p.colorIdx].color)
		case "f":
			return p, p.toggleFlash()
		case ">", ".":
			p.setInterval(p.interval + flashStep)
		case "<", ",":
			p.setInterval(p.interval - flashStep)
		case "x":
			p.stopFlash()
			svc.ClearOverrides()
			p.colorIdx = -1
			p.refresh()
			p.setStatus(p.t("EdgeLight.Cleared"))
		}
	}
	return p, nil
}

// selectStrip moves to strip i, wrapping. A running flash follows the
// selection.
func (p *EdgeLightingPage) selectStrip(i int) {
	n := len(p.strips)
	p.current = (i%n + n) % n
	if p.flashing {
		p.flashGen++
		p.flashing = false
		p.deps.Services.EdgeLights.ClearOverrides()
		p.refresh()
	}
}

func (p *EdgeLightingPage) setBrightness(pct int) {
	pct = min(max(pct, 0), 100)
	if err := p.deps.Services.EdgeLights.SetBrightness(pct); err != nil {
		p.setError(p.errText(err))
		return
	}
	propSet(p.deps.Props, properties.KeyEdgeLightBrightness, pct)
	p.refresh()
	p.setStatus(p.tf("EdgeLight.BrightnessSet", pct))
}

func (p *EdgeLightingPage) setColor(c hardware.Color) {
	strip := p.strips[p.current]
	if err := p.deps.Services.EdgeLights.SetColor(strip.ID, c); err != nil {
		p.setError(p.errText(err))
		return
	}
	p.refresh()
}

func (p *EdgeLightingPage) setInterval(d time.Duration) {
	p.interval = clampInterval(d)
	propSet(p.deps.Props, properties.KeyEdgeLightFlashMs, int(p.interval/time.Millisecond))
	p.setStatus(p.tf("EdgeLight.Interval", int(p.interval/time.Millisecond)))
}

func (p *EdgeLightingPage) tick() tea.Cmd {
	owner, gen := p, p.flashGen
	return tea.Tick(p.interval, func(time.Time) tea.Msg {
		return flashTickMsg{owner: owner, gen: gen}
	})
}

func (p *EdgeLightingPage) toggleFlash() tea.Cmd {
	if p.flashing {
		p.stopFlash()
		p.setStatus(p.t("EdgeLight.Flash.Off"))
		return nil
	}
	p.flashing = true
	p.flashOn = true
	p.flashGen++
	p.applyFlash()
	p.setStatus(p.t("EdgeLight.Flash.On"))
	return p.tick()
}

func (p *EdgeLightingPage) applyFlash() {
	c := hardware.Color{}
	if p.flashOn {
		idx := max(p.colorIdx, 0)
		c = testColors[idx].color
	}
	p.setColor(c)
}

// stopFlash invalidates any pending tick.
func (p *EdgeLightingPage) stopFlash() {
	p.flashGen++
	p.flashing = false
}

func (p *EdgeLightingPage) View() string {
	if p.deps.Services.EdgeLights == nil {
		return p.unavailable(p.Title())
	}
	rows := [][]string{{p.t("EdgeLight.Strip"), p.t("EdgeLight.LEDs"), p.t("EdgeLight.Color"), ""}}
	for _, s := range p.strips {
		over := ""
		if s.Overridden {
			over = p.t("EdgeLight.Overridden")
		}
		rows = append(rows, []string{s.Name, fmt.Sprint(s.LEDCount), fmt.Sprintf("#%02X%02X%02X", s.Color.R, s.Color.G, s.Color.B), over})
	}
	widths := textutil.ColumnWidths(rows, 24)
	var b strings.Builder
	b.WriteString("  " + Styles.Section.Render(textutil.Row(rows[0], widths)))
	for i := range p.strips {
		b.WriteString("\n" + marker(i == p.current) + textutil.Row(rows[i+1], widths))
	}
	b.WriteString("\n\n" + p.tf("EdgeLight.Brightness", p.brightness))
	b.WriteString("\n" + p.tf("EdgeLight.Interval", int(p.interval/time.Millisecond)))
	b.WriteString("\n" + p.t(onOffKey("EdgeLight.Flash", p.flashing)))
	return p.frame(p.Title(), b.String(), p.t("EdgeLight.Hint"))
}

// Close stops the flash timer and restores the strips' normal colors.
func (p *EdgeLightingPage) Close() {
	if !p.closeBase() {
		return
	}
	p.stopFlash()
	if svc := p.deps.Services.EdgeLights; svc != nil {
		svc.ClearOverrides()
	}
}
