// Package localization resolves display text for the operator and player
// culture scopes from embedded yaml resource tables.
package localization

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"opmenu/internal/eventbus"
	"opmenu/internal/properties"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed resources/*.yaml
var resourceFS embed.FS

// DefaultCulture is used when a key is missing from the current culture.
const DefaultCulture = "en-US"

// ErrUnsupportedCulture is returned by SetCulture for cultures with no table.
var ErrUnsupportedCulture = errors.New("unsupported culture")

// Scope selects whose culture a lookup uses.
type Scope int

const (
	Operator Scope = iota
	Player
)

func (s Scope) String() string {
	switch s {
	case Operator:
		return "Operator"
	case Player:
		return "Player"
	default:
		return "Unknown"
	}
}

func (s Scope) propertyKey() string {
	if s == Player {
		return properties.KeyPlayerCulture
	}
	return properties.KeyOperatorCulture
}

// CultureChangedEvent is published after SetCulture succeeds.
type CultureChangedEvent struct {
	eventbus.Meta
	Scope   Scope
	Culture string
}

// Localizer holds the resource tables and the current culture per scope.
type Localizer struct {
	mu       sync.RWMutex
	tables   map[string]map[string]string
	cultures []string
	tags     []language.Tag
	matcher  language.Matcher
	current  map[Scope]string
	props    properties.Store
	bus      *eventbus.Bus
	logger   *zap.Logger
}

// New loads the embedded resource tables. Current cultures are restored from
// props when it holds a supported value; otherwise DefaultCulture is used.
// props, bus and logger may be nil.
func New(props properties.Store, bus *eventbus.Bus, logger *zap.Logger) (*Localizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Localizer{
		tables:  make(map[string]map[string]string),
		current: make(map[Scope]string),
		props:   props,
		bus:     bus,
		logger:  logger,
	}
	if err := l.loadTables(); err != nil {
		return nil, err
	}
	for _, s := range []Scope{Operator, Player} {
		l.current[s] = DefaultCulture
		if props == nil {
			continue
		}
		want := properties.Get(props, s.propertyKey(), "")
		if c, err := l.Match(want); err == nil && want != "" {
			l.current[s] = c
		}
	}
	return l, nil
}

func (l *Localizer) loadTables() error {
	entries, err := resourceFS.ReadDir("resources")
	if err != nil {
		return fmt.Errorf("read resources: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		data, err := resourceFS.ReadFile(path.Join("resources", name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		culture := strings.TrimSuffix(name, ".yaml")
		l.tables[culture] = table
		l.cultures = append(l.cultures, culture)
	}
	if _, ok := l.tables[DefaultCulture]; !ok {
		return fmt.Errorf("missing %s resources", DefaultCulture)
	}
	// The default culture goes first so the matcher falls back to it.
	sort.Slice(l.cultures, func(i, j int) bool {
		if l.cultures[i] == DefaultCulture || l.cultures[j] == DefaultCulture {
			return l.cultures[i] == DefaultCulture
		}
		return l.cultures[i] < l.cultures[j]
	})
	for _, c := range l.cultures {
		l.tags = append(l.tags, language.MustParse(c))
	}
	l.matcher = language.NewMatcher(l.tags)
	return nil
}

// Cultures returns the supported cultures, default first.
func (l *Localizer) Cultures() []string {
	out := make([]string, len(l.cultures))
	copy(out, l.cultures)
	return out
}

// Match resolves a requested culture (e.g. "fr", "fr_CA", "es-MX") to a
// supported one. Requests that only match by falling back to the default
// culture are reported as unsupported.
func (l *Localizer) Match(requested string) (string, error) {
	tag, err := language.Parse(strings.ReplaceAll(requested, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCulture, requested)
	}
	_, idx, conf := l.matcher.Match(tag)
	if conf == language.No {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCulture, requested)
	}
	return l.cultures[idx], nil
}

// Culture returns the current culture of scope.
func (l *Localizer) Culture(scope Scope) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current[scope]
}

// SetCulture switches scope to culture, persists the choice and publishes
// CultureChangedEvent.
func (l *Localizer) SetCulture(scope Scope, culture string) error {
	resolved, err := l.Match(culture)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.current[scope] = resolved
	l.mu.Unlock()

	if l.props != nil {
		l.props.SetProperty(scope.propertyKey(), resolved)
	}
	if l.bus != nil {
		l.bus.Publish(CultureChangedEvent{Meta: eventbus.NewMeta(), Scope: scope, Culture: resolved})
	}
	l.logger.Info("culture changed", zap.Stringer("scope", scope), zap.String("culture", resolved))
	return nil
}

// NextCulture cycles scope to the next supported culture and returns it.
func (l *Localizer) NextCulture(scope Scope) (string, error) {
	cur := l.Culture(scope)
	next := l.cultures[0]
	for i, c := range l.cultures {
		if c == cur {
			next = l.cultures[(i+1)%len(l.cultures)]
			break
		}
	}
	return next, l.SetCulture(scope, next)
}

// For returns a lookup bound to scope's current culture at call time.
func (l *Localizer) For(scope Scope) *Scoped {
	return &Scoped{l: l, scope: scope}
}

// lookup resolves key in culture, falling back to DefaultCulture and then to
// the key itself wrapped in '#'.
func (l *Localizer) lookup(culture, key string) string {
	if s, ok := l.tables[culture][key]; ok {
		return s
	}
	if s, ok := l.tables[DefaultCulture][key]; ok {
		return s
	}
	l.logger.Debug("missing resource", zap.String("key", key), zap.String("culture", culture))
	return "#" + key + "#"
}

// Scoped resolves strings for one culture scope.
type Scoped struct {
	l     *Localizer
	scope Scope
}

// GetString returns the display text for key.
func (s *Scoped) GetString(key string) string {
	if s == nil || s.l == nil {
		return "#" + key + "#"
	}
	return s.l.lookup(s.l.Culture(s.scope), key)
}

// GetFormat formats the template stored under key with args.
func (s *Scoped) GetFormat(key string, args ...any) string {
	return s.Printer().Sprintf(s.GetString(key), args...)
}

// Printer returns an x/text printer for the scope's culture, used for
// locale-aware number formatting.
func (s *Scoped) Printer() *message.Printer {
	if s == nil || s.l == nil {
		return message.NewPrinter(language.AmericanEnglish)
	}
	return message.NewPrinter(language.MustParse(s.l.Culture(s.scope)))
}

// Culture returns the culture the scope currently resolves to.
func (s *Scoped) Culture() string {
	if s == nil || s.l == nil {
		return DefaultCulture
	}
	return s.l.Culture(s.scope)
}
