package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"opmenu/internal/diag"
	"opmenu/internal/ui"
)

func runMenu(ctx context.Context) error {
	c, err := openCabinet(ctx)
	if err != nil {
		logger.Error("open cabinet", zap.Error(err))
		return err
	}
	defer c.close()

	app := ui.NewAppModel(ui.Deps{
		Services:    c.services,
		Bus:         c.bus,
		Props:       c.props,
		Loc:         c.loc,
		Telemetry:   c.telemetry,
		Diag:        &diag.CreackPTY{},
		Geometry:    cfg.Hardware.Reel.Geometry(),
		ManifestDir: cfg.ManifestDir(),
		SettingsDir: cfg.SettingsDir(),
		Logger:      logger.Named("ui"),
	})
	defer app.Close()

	logger.Info("operator menu starting",
		zap.Bool("simulator", cfg.Simulator.Enabled),
		zap.Bool("ingress", cfg.Ingress.Enabled))
	p := tea.NewProgram(app.AsTeaModel(), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run operator menu: %w", err)
	}
	return nil
}
