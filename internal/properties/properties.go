// Package properties is the machine properties store: a flat key/value space
// read with a caller-supplied default that also fixes the returned type.
//
// Values are kept JSON-encoded. Persisted values (see SQLiteStore) override
// the defaults loaded from a yaml file; a key with neither returns the
// caller's default.
package properties

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"

	"opmenu/internal/eventbus"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Getter reads a property, typed by the default.
type Getter interface {
	GetValue(key string, def any) any
}

// Store is the properties contract used by pages.
type Store interface {
	Getter
	SetProperty(key string, value any)
}

// PropertyChangedEvent is published when the effective value of Key changes.
type PropertyChangedEvent struct {
	eventbus.Meta
	Key string
}

// Persister saves property values across restarts.
type Persister interface {
	Load() (map[string][]byte, error)
	Save(key string, value []byte) error
	Close() error
}

// Manager implements Store.
type Manager struct {
	// writeMu orders Set calls so memory and the persister agree on the
	// last write. mu guards the maps.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	values    map[string]json.RawMessage
	defaults  map[string]json.RawMessage
	persister Persister
	bus       *eventbus.Bus
	logger    *zap.Logger
}

// Ensure Manager implements Store.
var _ Store = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithPersister loads existing values from p and saves every change to it.
func WithPersister(p Persister) Option {
	return func(m *Manager) { m.persister = p }
}

// WithBus publishes PropertyChangedEvent on b.
func WithBus(b *eventbus.Bus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a store. Values already saved by the persister are
// loaded immediately.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		values:   make(map[string]json.RawMessage),
		defaults: make(map[string]json.RawMessage),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.persister != nil {
		saved, err := m.persister.Load()
		if err != nil {
			return nil, fmt.Errorf("load properties: %w", err)
		}
		for k, v := range saved {
			m.values[k] = json.RawMessage(v)
		}
	}
	return m, nil
}

// GetValue returns the value for key converted to the dynamic type of def.
// def is returned when the key is unset or its value does not convert.
func (m *Manager) GetValue(key string, def any) any {
	raw, ok := m.raw(key)
	if !ok {
		return def
	}
	if def == nil {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil
		}
		return v
	}
	ptr := reflect.New(reflect.TypeOf(def))
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return def
	}
	return ptr.Elem().Interface()
}

// Get is the typed form of GetValue.
func Get[T any](g Getter, key string, def T) T {
	if g == nil {
		return def
	}
	if v, ok := g.GetValue(key, def).(T); ok {
		return v
	}
	return def
}

// Has reports whether key has a persisted or default value.
func (m *Manager) Has(key string) bool {
	_, ok := m.raw(key)
	return ok
}

func (m *Manager) raw(key string) (json.RawMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.effective(key)
}

// effective must be called with m.mu held.
func (m *Manager) effective(key string) (json.RawMessage, bool) {
	if v, ok := m.values[key]; ok {
		return v, true
	}
	v, ok := m.defaults[key]
	return v, ok
}

// SetProperty stores value under key. Persistence failures are logged; use
// Set to observe them.
func (m *Manager) SetProperty(key string, value any) {
	if err := m.Set(key, value); err != nil {
		m.logger.Error("set property", zap.String("key", key), zap.Error(err))
	}
}

// Set stores value under key, persists it and publishes PropertyChangedEvent
// when the effective value changed. The in-memory value is updated even when
// persisting fails.
func (m *Manager) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	old, had, saveErr := m.store(key, raw)
	if !had || !bytes.Equal(old, raw) {
		m.publish(key)
	}
	return saveErr
}

// store updates memory and the persister as one step. Publishing happens
// outside writeMu so handlers may call Set.
func (m *Manager) store(key string, raw json.RawMessage) (old json.RawMessage, had bool, err error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	old, had = m.effective(key)
	m.values[key] = raw
	m.mu.Unlock()

	if m.persister != nil {
		if perr := m.persister.Save(key, raw); perr != nil {
			err = fmt.Errorf("persist %s: %w", key, perr)
		}
	}
	return old, had, err
}

func (m *Manager) publish(key string) {
	if m.bus != nil {
		m.bus.Publish(PropertyChangedEvent{Meta: eventbus.NewMeta(), Key: key})
	}
}

// LoadDefaults reads a flat yaml mapping of key to value and installs it as
// the default layer. It returns the keys whose effective value changed.
func (m *Manager) LoadDefaults(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	defaults := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode default %s: %w", k, err)
		}
		defaults[k] = raw
	}
	changed := m.replaceDefaults(defaults)
	for _, k := range changed {
		m.publish(k)
	}
	return changed, nil
}

func (m *Manager) replaceDefaults(next map[string]json.RawMessage) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed []string
	seen := make(map[string]bool, len(next)+len(m.defaults))
	for k := range m.defaults {
		seen[k] = true
	}
	for k := range next {
		seen[k] = true
	}
	prev := m.defaults
	m.defaults = next
	for k := range seen {
		if _, overridden := m.values[k]; overridden {
			continue
		}
		if !bytes.Equal(prev[k], next[k]) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// Close releases the persister.
func (m *Manager) Close() error {
	if m.persister == nil {
		return nil
	}
	return m.persister.Close()
}
