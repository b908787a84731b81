package ui

import (
	"context"
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/properties"

	tea "github.com/charmbracelet/bubbletea"
)

const volumeStep = 5

// SoundPage adjusts the master volume and plays test sounds.
type SoundPage struct {
	pageBase
	volume int
	muted  bool
	sounds []string
	sel    cursor
}

var _ Page = (*SoundPage)(nil)

func NewSoundPage(deps Deps) *SoundPage {
	p := &SoundPage{}
	p.pageBase = newPageBase(deps, p, eventbus.TypeOf[hardware.VolumeChangedEvent]())
	p.refresh()
	return p
}

func (p *SoundPage) Title() string { return p.t("Sound.Title") }

func (p *SoundPage) refresh() {
	if svc := p.deps.Services.Audio; svc != nil {
		p.volume = svc.Volume()
		p.muted = svc.Muted()
		p.sounds = svc.Sounds()
	}
}

func (p *SoundPage) Init() tea.Cmd { return p.listen() }

func (p *SoundPage) Update(msg tea.Msg) (View, tea.Cmd) {
	svc := p.deps.Services.Audio
	switch msg := msg.(type) {
	case eventbus.EventMsg:
		if !p.mine(msg) {
			return p, nil
		}
		p.refresh()
		return p, p.listen()
	case actionDoneMsg:
		p.done(msg)
	case tea.WindowSizeMsg:
		p.resize(msg)
	case tea.KeyMsg:
		if svc == nil {
			return p, nil
		}
		if navKey(&p.sel, msg.String(), len(p.sounds)) {
			return p, nil
		}
		switch msg.String() {
		case "+", "=", "right", "l":
			p.setVolume(p.volume + volumeStep)
		case "-", "left", "h":
			p.setVolume(p.volume - volumeStep)
		case "m":
			svc.SetMuted(!p.muted)
			propSet(p.deps.Props, properties.KeyAudioMuted, !p.muted)
			p.refresh()
		case "enter":
			if i := p.sel.at(len(p.sounds)); i >= 0 {
				sound := p.sounds[i]
				return p, p.run("audio.play", map[string]string{"sound": sound}, func(ctx context.Context) error {
					return svc.Play(ctx, sound)
				})
			}
		}
	}
	return p, nil
}

func (p *SoundPage) setVolume(v int) {
	v = min(max(v, 0), 100)
	if err := p.deps.Services.Audio.SetVolume(v); err != nil {
		p.setError(p.errText(err))
		return
	}
	propSet(p.deps.Props, properties.KeyAudioVolume, v)
	p.refresh()
}

// volumeBar draws level as a 20-cell bar.
func volumeBar(level int) string {
	filled := level / 5
	return "[" + strings.Repeat("█", filled) + strings.Repeat("·", 20-filled) + "]"
}

func (p *SoundPage) View() string {
	if p.deps.Services.Audio == nil {
		return p.unavailable(p.Title())
	}
	var b strings.Builder
	bar := volumeBar(p.volume)
	if p.muted {
		bar = Styles.Off.Render(bar) + " " + Styles.Details.Render(p.t("Sound.Muted"))
	}
	b.WriteString(p.tf("Sound.Volume", p.volume) + "  " + bar)
	b.WriteString("\n\n" + Styles.Section.Render(p.t("Sound.Sounds")))
	sel := p.sel.at(len(p.sounds))
	for i, s := range p.sounds {
		b.WriteString("\n" + marker(i == sel) + s)
	}
	return p.frame(p.Title(), b.String(), p.t("Sound.Hint"))
}

func (p *SoundPage) Close() { p.closeBase() }
