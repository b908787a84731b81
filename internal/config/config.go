// Package config loads the operator menu configuration from yaml with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"opmenu/internal/auth"
	"opmenu/internal/hardware/ingress"
	"opmenu/internal/localization"
	"opmenu/internal/reel"
	"opmenu/internal/telemetry"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	HomeEnv        = "OPMENU_HOME"
	IngressAddrEnv = "OPMENU_INGRESS_ADDR"
	LogLevelEnv    = "OPMENU_LOG_LEVEL"
	SimulatorEnv   = "OPMENU_SIMULATOR"
)

// DefaultHomeDir is the data directory under the user's home.
const DefaultHomeDir = ".opmenu"

// Config is the root configuration document.
type Config struct {
	DataDir   string           `yaml:"data_dir"`
	Logging   Logging          `yaml:"logging"`
	Locale    Locale           `yaml:"locale"`
	Simulator Simulator        `yaml:"simulator"`
	Ingress   Ingress          `yaml:"ingress"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Hardware  Hardware         `yaml:"hardware"`
	Auth      Auth             `yaml:"auth"`
}

// Logging configures the zap logger.
type Logging struct {
	Level string `yaml:"level"`
	// File is relative to DataDir unless absolute.
	File string `yaml:"file"`
}

// Locale sets the initial cultures. Persisted choices take precedence.
type Locale struct {
	Operator string `yaml:"operator"`
	Player   string `yaml:"player"`
}

// Simulator configures the simulated cabinet.
type Simulator struct {
	Enabled   bool          `yaml:"enabled"`
	Activity  bool          `yaml:"activity"`
	Interval  time.Duration `yaml:"interval"`
	MoveDelay time.Duration `yaml:"move_delay"`
}

// Ingress configures the HTTP event endpoint.
type Ingress struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ReelGeometry mirrors reel.Geometry in yaml.
type ReelGeometry struct {
	Stops              int `yaml:"stops"`
	StepsPerRevolution int `yaml:"steps_per_revolution"`
	HomeOffset         int `yaml:"home_offset"`
}

// Geometry converts to reel.Geometry.
func (g ReelGeometry) Geometry() reel.Geometry {
	return reel.Geometry{Stops: g.Stops, StepsPerRevolution: g.StepsPerRevolution, HomeOffset: g.HomeOffset}
}

// Hardware describes the cabinet.
type Hardware struct {
	Reels int          `yaml:"reels"`
	Reel  ReelGeometry `yaml:"reel"`
	Doors []string     `yaml:"doors"`
}

// Auth configures integrity hashing.
type Auth struct {
	// ManifestDir holds the component files; relative to DataDir.
	ManifestDir string `yaml:"manifest_dir"`
	Algorithm   string `yaml:"algorithm"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging:   Logging{Level: "info", File: "opmenu.log"},
		Locale:    Locale{Operator: localization.DefaultCulture, Player: localization.DefaultCulture},
		Simulator: Simulator{Enabled: true, Interval: 3 * time.Second, MoveDelay: 400 * time.Millisecond},
		Ingress:   Ingress{Addr: ingress.DefaultAddr},
		Hardware: Hardware{
			Reels: 5,
			Reel: ReelGeometry{
				Stops:              reel.DefaultGeometry.Stops,
				StepsPerRevolution: reel.DefaultGeometry.StepsPerRevolution,
				HomeOffset:         reel.DefaultGeometry.HomeOffset,
			},
		},
		Auth: Auth{ManifestDir: "components", Algorithm: "SHA256"},
	}
}

// DefaultPath returns $OPMENU_HOME/config.yaml, or ~/.opmenu/config.yaml.
func DefaultPath() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

func homeDir() (string, error) {
	if h := os.Getenv(HomeEnv); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultHomeDir), nil
}

// Load reads path over Default, applies environment overrides and fills
// derived defaults. A missing file is not an error when allowMissing is set.
func Load(path string, allowMissing bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	case allowMissing && errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.resolve(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables if
// set. Invalid values fail fast.
func applyEnvOverrides(cfg *Config) error {
	if home := os.Getenv(HomeEnv); home != "" && cfg.DataDir == "" {
		cfg.DataDir = home
	}
	if addr := os.Getenv(IngressAddrEnv); addr != "" {
		cfg.Ingress.Addr = addr
		cfg.Ingress.Enabled = true
	}
	if level := os.Getenv(LogLevelEnv); level != "" {
		cfg.Logging.Level = level
	}
	if sim := os.Getenv(SimulatorEnv); sim != "" {
		on, err := parseBool(sim)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", SimulatorEnv, sim, err)
		}
		cfg.Simulator.Enabled = on
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func (c *Config) resolve() error {
	if c.DataDir == "" {
		home, err := homeDir()
		if err != nil {
			return err
		}
		c.DataDir = home
	}
	if c.Logging.File == "" {
		c.Logging.File = "opmenu.log"
	}
	if c.Auth.ManifestDir == "" {
		c.Auth.ManifestDir = "components"
	}
	if c.Ingress.Addr == "" {
		c.Ingress.Addr = ingress.DefaultAddr
	}
	return nil
}

// Path resolves p against DataDir.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// LogFile is the resolved log path.
func (c Config) LogFile() string { return c.Path(c.Logging.File) }

// DatabaseFile is the properties database.
func (c Config) DatabaseFile() string { return c.Path("properties.db") }

// DefaultsFile is the properties defaults yaml.
func (c Config) DefaultsFile() string { return c.Path("defaults.yaml") }

// SettingsDir holds exported machine settings.
func (c Config) SettingsDir() string { return c.Path("settings") }

// ManifestDir is the resolved component directory.
func (c Config) ManifestDir() string { return c.Path(c.Auth.ManifestDir) }

// Validate reports bad combinations.
func (c Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if err := c.Hardware.Reel.Geometry().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("hardware.reel: %w", err))
	}
	if _, err := auth.ParseAlgorithm(c.Auth.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("auth.algorithm: %w", err))
	}
	if c.Hardware.Reels < 0 {
		errs = append(errs, fmt.Errorf("hardware.reels must not be negative, got %d", c.Hardware.Reels))
	}
	if c.Simulator.Activity && !c.Simulator.Enabled {
		errs = append(errs, errors.New("simulator.activity requires simulator.enabled"))
	}
	if c.Simulator.Activity && c.Simulator.Interval <= 0 {
		errs = append(errs, errors.New("simulator.interval must be positive when activity is on"))
	}
	if !c.Simulator.Enabled && !c.Ingress.Enabled {
		errs = append(errs, errors.New("no hardware source: enable simulator or ingress"))
	}
	if c.Ingress.Enabled && c.Ingress.Addr == "" {
		errs = append(errs, errors.New("ingress.addr must be set"))
	}
	return errors.Join(errs...)
}
