package ui

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/localization"
	"opmenu/internal/properties"
	"opmenu/internal/validate"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// pageBridgeBuffer bounds the events a page can fall behind by.
const pageBridgeBuffer = 64

// pageBase carries what every page shares: its own bus bridge, a context
// cancelled on Close, and the status line.
type pageBase struct {
	deps   Deps
	owner  Page
	bridge *eventbus.Bridge
	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	status    string
	statusErr bool
	width     int
	height    int
}

func newPageBase(deps Deps, owner Page, events ...reflect.Type) pageBase {
	deps = deps.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	b := pageBase{deps: deps, owner: owner, ctx: ctx, cancel: cancel}
	if deps.Bus != nil && len(events) > 0 {
		b.bridge = eventbus.NewBridge(deps.Bus, pageBridgeBuffer)
		b.bridge.Forward(events...)
	}
	return b
}

// listen waits for the next event on the page's bridge.
func (b *pageBase) listen() tea.Cmd {
	if b.bridge == nil || b.closed {
		return nil
	}
	return b.bridge.Listen()
}

// mine reports whether msg came from this page's bridge.
func (b *pageBase) mine(msg eventbus.EventMsg) bool {
	return b.bridge != nil && msg.From == b.bridge
}

// closeBase unsubscribes the page and cancels pending commands.
func (b *pageBase) closeBase() bool {
	if b.closed {
		return false
	}
	b.closed = true
	b.cancel()
	if b.bridge != nil {
		b.bridge.Close()
	}
	return true
}

func (b *pageBase) t(key string) string {
	return b.deps.operator().GetString(key)
}

func (b *pageBase) tf(key string, args ...any) string {
	return b.deps.operator().GetFormat(key, args...)
}

func (b *pageBase) errText(err error) string {
	return errorText(b.deps.operator(), err)
}

// errorText renders err for the operator. Validation failures use their
// localized template.
func errorText(tr *localization.Scoped, err error) string {
	if err == nil {
		return ""
	}
	if fe, ok := validate.AsFieldError(err); ok {
		return tr.GetFormat(fe.Key, fe.Args...)
	}
	if errors.Is(err, hardware.ErrNoService) {
		return tr.GetString("Common.Unavailable")
	}
	return err.Error()
}

// run executes fn off the update loop inside a telemetry span and reports
// back with actionDoneMsg.
func (b *pageBase) run(action string, attrs map[string]string, fn func(ctx context.Context) error) tea.Cmd {
	owner, ctx, tel, logger := b.owner, b.ctx, b.deps.Telemetry, b.deps.Logger
	return func() tea.Msg {
		spanCtx, end := tel.Action(ctx, action, attrs)
		err := fn(spanCtx)
		end(err)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("operator action failed", zap.String("action", action), zap.Error(err))
		}
		return actionDoneMsg{owner: owner, action: action, err: err}
	}
}

// done records the outcome of one of this page's actions. It returns false
// for messages that belong to another page.
func (b *pageBase) done(msg actionDoneMsg) bool {
	if msg.owner != b.owner {
		return false
	}
	label := b.t("Action." + msg.action)
	if msg.err != nil {
		b.setError(b.tf("Status.ActionFailed", label, b.errText(msg.err)))
	} else {
		b.setStatus(b.tf("Status.ActionDone", label))
	}
	return true
}

func (b *pageBase) setStatus(s string) {
	b.status, b.statusErr = s, false
}

func (b *pageBase) setError(s string) {
	b.status, b.statusErr = s, true
}

func (b *pageBase) resize(msg tea.WindowSizeMsg) {
	b.width, b.height = msg.Width, msg.Height
}

// frame renders a page: title, body, status line and key hints.
func (b *pageBase) frame(title, body, hints string) string {
	var s strings.Builder
	s.WriteString(Styles.Title.Render(title))
	s.WriteString("\n\n")
	s.WriteString(body)
	if b.status != "" {
		s.WriteString("\n\n")
		if b.statusErr {
			s.WriteString(Styles.StatusErr.Render(b.status))
		} else {
			s.WriteString(Styles.StatusOK.Render(b.status))
		}
	}
	if hints != "" {
		s.WriteString("\n\n")
		s.WriteString(Styles.Hint.Render(hints))
	}
	return s.String()
}

// unavailable renders the body of a page whose service is missing.
func (b *pageBase) unavailable(title string) string {
	return b.frame(title, Styles.Empty.Render(b.t("Common.Unavailable")), b.t("Hint.Back"))
}

func propGet[T any](props properties.Store, key string, def T) T {
	if props == nil {
		return def
	}
	return properties.Get(props, key, def)
}

func propSet(props properties.Store, key string, v any) {
	if props != nil {
		props.SetProperty(key, v)
	}
}

// cursor is a row selection clamped to [0, n).
type cursor int

func (c *cursor) move(delta, n int) {
	if n <= 0 {
		*c = 0
		return
	}
	v := int(*c) + delta
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	*c = cursor(v)
}

func (c cursor) at(n int) int {
	if n <= 0 {
		return -1
	}
	if int(c) >= n {
		return n - 1
	}
	return int(c)
}

// navKey moves c for j/k/up/down and reports whether the key was one.
func navKey(c *cursor, key string, n int) bool {
	switch key {
	case "j", "down":
		c.move(1, n)
	case "k", "up":
		c.move(-1, n)
	case "g", "home":
		c.move(-n, n)
	case "G", "end":
		c.move(n, n)
	default:
		return false
	}
	return true
}

// marker prefixes the selected row.
func marker(selected bool) string {
	if selected {
		return Styles.Selected.Render("▸ ")
	}
	return "  "
}
