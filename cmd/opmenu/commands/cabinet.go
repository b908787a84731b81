package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"opmenu/internal/auth"
	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/hardware/ingress"
	"opmenu/internal/hardware/sim"
	"opmenu/internal/localization"
	"opmenu/internal/properties"
	"opmenu/internal/telemetry"
	"opmenu/internal/ui"
)

const shutdownTimeout = 5 * time.Second

// cabinet is everything the operator menu runs against.
type cabinet struct {
	bus       *eventbus.Bus
	props     *properties.Manager
	watcher   *properties.DefaultsWatcher
	loc       *localization.Localizer
	sim       *sim.Simulator
	ingress   *ingress.Server
	telemetry *telemetry.Provider
	services  hardware.Services
}

// openProperties opens the sqlite store and installs the defaults file when
// one exists.
func openProperties(bus *eventbus.Bus) (*properties.Manager, error) {
	store, err := properties.OpenSQLite(cfg.DatabaseFile())
	if err != nil {
		return nil, err
	}
	m, err := properties.NewManager(
		properties.WithPersister(store),
		properties.WithBus(bus),
		properties.WithLogger(logger.Named("props")),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if _, err := m.LoadDefaults(cfg.DefaultsFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("defaults not loaded", zap.String("path", cfg.DefaultsFile()), zap.Error(err))
	}
	return m, nil
}

func openCabinet(ctx context.Context) (c *cabinet, err error) {
	c = &cabinet{bus: eventbus.New(logger.Named("bus"))}
	defer func() {
		if err != nil {
			c.close()
			c = nil
		}
	}()

	if c.telemetry, err = telemetry.New(ctx, cfg.Telemetry); err != nil {
		return c, err
	}
	if c.props, err = openProperties(c.bus); err != nil {
		return c, err
	}
	if c.watcher, err = c.props.WatchDefaults(ctx, cfg.DefaultsFile(), logger.Named("defaults")); err != nil {
		return c, err
	}

	if c.loc, err = localization.New(c.props, c.bus, logger.Named("loc")); err != nil {
		return c, err
	}
	applyLocale(c.loc, c.props)
	applyHashAlgorithm(c.props)

	if cfg.Simulator.Enabled {
		simCfg := sim.DefaultConfig()
		simCfg.Reels = cfg.Hardware.Reels
		simCfg.Geometry = cfg.Hardware.Reel.Geometry()
		if len(cfg.Hardware.Doors) > 0 {
			simCfg.Doors = cfg.Hardware.Doors
		}
		simCfg.Activity = cfg.Simulator.Activity
		simCfg.Interval = cfg.Simulator.Interval
		simCfg.MoveDelay = cfg.Simulator.MoveDelay
		c.sim = sim.New(c.bus, simCfg, logger)
		if err = c.sim.Start(ctx); err != nil {
			return c, fmt.Errorf("start simulator: %w", err)
		}
		c.services = c.sim.Services()
		ui.RestoreSettings(ctx, c.services, c.props, logger.Named("restore"))
	}
	if cfg.Ingress.Enabled {
		c.ingress = ingress.NewServer(c.bus, ingress.DefaultRegistry(), cfg.Ingress.Addr, logger)
		if err = c.ingress.Start(); err != nil {
			return c, fmt.Errorf("start ingress: %w", err)
		}
		logger.Info("ingress listening", zap.String("addr", c.ingress.Addr()))
	}
	return c, nil
}

// applyLocale installs the configured cultures for scopes with no persisted
// choice.
func applyLocale(loc *localization.Localizer, props *properties.Manager) {
	for scope, want := range map[localization.Scope]string{
		localization.Operator: cfg.Locale.Operator,
		localization.Player:   cfg.Locale.Player,
	} {
		key := properties.KeyOperatorCulture
		if scope == localization.Player {
			key = properties.KeyPlayerCulture
		}
		if want == "" || props.Has(key) {
			continue
		}
		culture, err := loc.Match(want)
		if err != nil {
			logger.Warn("configured culture not supported", zap.String("scope", scope.String()), zap.String("culture", want))
			continue
		}
		if err := loc.SetCulture(scope, culture); err != nil {
			logger.Warn("set culture", zap.Error(err))
		}
	}
}

// applyHashAlgorithm seeds the Hash page's algorithm from the configuration
// when neither a stored choice nor the defaults file names one.
func applyHashAlgorithm(props *properties.Manager) {
	if props.Has(properties.KeyHashAlgorithm) {
		return
	}
	alg, err := auth.ParseAlgorithm(cfg.Auth.Algorithm)
	if err != nil {
		logger.Warn("configured hash algorithm not supported", zap.String("algorithm", cfg.Auth.Algorithm))
		return
	}
	props.SetProperty(properties.KeyHashAlgorithm, alg.String())
}

func (c *cabinet) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if c.ingress != nil {
		if err := c.ingress.Stop(ctx); err != nil {
			logger.Warn("stop ingress", zap.Error(err))
		}
	}
	if c.sim != nil {
		c.sim.Stop()
	}
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.props != nil {
		if err := c.props.Close(); err != nil {
			logger.Warn("close properties", zap.Error(err))
		}
	}
	if c.telemetry != nil {
		if err := c.telemetry.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}
}
