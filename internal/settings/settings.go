// Package settings imports and exports the machine identity settings as
// yaml documents.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"opmenu/internal/progress"
	"opmenu/internal/properties"
	"opmenu/internal/validate"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// DirEnv overrides the settings directory (for testing).
	DirEnv = "OPMENU_SETTINGS_DIR"
	// DefaultDir is the settings directory under the user's home.
	DefaultDir = ".opmenu/settings"
	// FileExt is appended to settings names.
	FileExt = ".yaml"
	// DocumentVersion is written into exported documents.
	DocumentVersion = 1

	TaskImport = "settings.import"
	TaskExport = "settings.export"

	maxFieldLen = 32
)

// Machine is the identity block of a settings document.
type Machine struct {
	SerialNumber string `yaml:"serial_number"`
	AssetNumber  string `yaml:"asset_number"`
	Area         string `yaml:"area"`
	Zone         string `yaml:"zone"`
	Bank         string `yaml:"bank"`
	Position     string `yaml:"position"`
	Location     string `yaml:"location"`
	DeviceName   string `yaml:"device_name"`
}

// Document is the on-disk settings file.
type Document struct {
	Version    int       `yaml:"version"`
	ExportedAt time.Time `yaml:"exported_at,omitempty"`
	Machine    Machine   `yaml:"machine"`
}

type binding struct {
	field string
	key   string
	ptr   func(*Machine) *string
	check func(string) error
}

func optional(s string) error { return validate.MaxLength(s, maxFieldLen) }

func required(s string) error {
	if err := validate.Required(s); err != nil {
		return err
	}
	return validate.MaxLength(s, maxFieldLen)
}

func assetNumber(s string) error {
	if s == "" {
		return nil
	}
	_, err := validate.IntRange(s, 1, 1<<31-1)
	return err
}

var bindings = []binding{
	{"SerialNumber", properties.KeyMachineSerialNumber, func(m *Machine) *string { return &m.SerialNumber }, required},
	{"AssetNumber", properties.KeyMachineAssetNumber, func(m *Machine) *string { return &m.AssetNumber }, assetNumber},
	{"Area", properties.KeyMachineArea, func(m *Machine) *string { return &m.Area }, optional},
	{"Zone", properties.KeyMachineZone, func(m *Machine) *string { return &m.Zone }, optional},
	{"Bank", properties.KeyMachineBank, func(m *Machine) *string { return &m.Bank }, optional},
	{"Position", properties.KeyMachinePosition, func(m *Machine) *string { return &m.Position }, optional},
	{"Location", properties.KeyMachineLocation, func(m *Machine) *string { return &m.Location }, optional},
	{"DeviceName", properties.KeyMachineDeviceName, func(m *Machine) *string { return &m.DeviceName }, optional},
}

// Fields returns the Machine field names in display order.
func Fields() []string {
	out := make([]string, len(bindings))
	for i, b := range bindings {
		out[i] = b.field
	}
	return out
}

// PropertyKey returns the property key backing field.
func PropertyKey(field string) (string, bool) {
	for _, b := range bindings {
		if b.field == field {
			return b.key, true
		}
	}
	return "", false
}

// Get returns the value of field.
func (m Machine) Get(field string) string {
	for _, b := range bindings {
		if b.field == field {
			return *b.ptr(&m)
		}
	}
	return ""
}

// Set updates field. Unknown fields are ignored.
func (m *Machine) Set(field, value string) {
	for _, b := range bindings {
		if b.field == field {
			*b.ptr(m) = value
			return
		}
	}
}

// ValidationError lists every invalid field of a Machine.
type ValidationError struct {
	Fields map[string]error
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, f := range names {
		parts[i] = f + ": " + e.Fields[f].Error()
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// ValidateField checks a single field value.
func ValidateField(field, value string) error {
	for _, b := range bindings {
		if b.field == field {
			return b.check(value)
		}
	}
	return fmt.Errorf("unknown field %q", field)
}

// Validate checks every field and returns a *ValidationError when any fail.
func (m Machine) Validate() error {
	fields := make(map[string]error)
	for _, b := range bindings {
		if err := b.check(*b.ptr(&m)); err != nil {
			fields[b.field] = err
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Current reads the machine identity from props.
func Current(props properties.Getter) Machine {
	var m Machine
	for _, b := range bindings {
		*b.ptr(&m) = properties.Get(props, b.key, "")
	}
	return m
}

// Apply validates m and writes every field to props. Nothing is written when
// validation fails.
func Apply(props properties.Store, m Machine) error {
	if err := m.Validate(); err != nil {
		return err
	}
	for _, b := range bindings {
		props.SetProperty(b.key, *b.ptr(&m))
	}
	return nil
}

// Store reads and writes settings documents in a directory.
type Store struct {
	baseDir string
	props   properties.Store
	emitter progress.Emitter
	logger  *zap.Logger
}

// NewStore creates a store rooted at dir. An empty dir resolves to
// $OPMENU_SETTINGS_DIR or ~/.opmenu/settings.
func NewStore(dir string, props properties.Store, emitter progress.Emitter, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		dir = os.Getenv(DirEnv)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, DefaultDir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{baseDir: dir, props: props, emitter: progress.OrNop(emitter), logger: logger}, nil
}

// BaseDir returns the settings directory.
func (s *Store) BaseDir() string { return s.baseDir }

// Path returns the file for a settings name. Names are lowercased and spaces
// become hyphens.
func (s *Store) Path(name string) string {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	normalized = strings.TrimSuffix(normalized, FileExt)
	return filepath.Join(s.baseDir, filepath.Base(normalized)+FileExt)
}

// List returns the names of the stored documents, sorted. A missing
// directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != FileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), FileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Export writes the current machine settings to name and returns the path.
func (s *Store) Export(name string) (string, error) {
	path := s.Path(name)
	s.emitter.Emit(progress.Event{Task: TaskExport, Message: path, Status: progress.StatusRunning})
	err := s.export(path)
	if err != nil {
		s.logger.Error("settings export failed", zap.String("path", path), zap.Error(err))
		s.emitter.Emit(progress.Event{Task: TaskExport, Message: err.Error(), Status: progress.StatusError})
		return "", err
	}
	s.logger.Info("settings exported", zap.String("path", path))
	s.emitter.Emit(progress.Event{Task: TaskExport, Message: path, Status: progress.StatusDone})
	return path, nil
}

func (s *Store) export(path string) error {
	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Machine:    Current(s.props),
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Read parses and validates the document stored under name without
// applying it.
func (s *Store) Read(name string) (Document, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read settings: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if doc.Version != DocumentVersion {
		return Document{}, fmt.Errorf("settings %s: unsupported version %d", path, doc.Version)
	}
	if err := doc.Machine.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Import applies the document stored under name. Either every field is
// applied or, on any error, none is.
func (s *Store) Import(name string) (Machine, error) {
	path := s.Path(name)
	s.emitter.Emit(progress.Event{Task: TaskImport, Message: path, Status: progress.StatusRunning})
	doc, err := s.Read(name)
	if err == nil {
		err = Apply(s.props, doc.Machine)
	}
	if err != nil {
		s.logger.Error("settings import failed", zap.String("path", path), zap.Error(err))
		s.emitter.Emit(progress.Event{Task: TaskImport, Message: err.Error(), Status: progress.StatusError})
		return Machine{}, err
	}
	s.logger.Info("settings imported", zap.String("path", path))
	s.emitter.Emit(progress.Event{Task: TaskImport, Message: path, Status: progress.StatusDone})
	return doc.Machine, nil
}
