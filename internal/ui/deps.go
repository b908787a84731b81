package ui

import (
	"opmenu/internal/diag"
	"opmenu/internal/eventbus"
	"opmenu/internal/hardware"
	"opmenu/internal/localization"
	"opmenu/internal/properties"
	"opmenu/internal/reel"
	"opmenu/internal/telemetry"

	"go.uber.org/zap"
)

// Deps are the collaborators pages are built from. Any hardware service may
// be nil; pages render an unavailable state for it.
type Deps struct {
	Services    hardware.Services
	Bus         *eventbus.Bus
	Props       properties.Store
	Loc         *localization.Localizer
	Telemetry   *telemetry.Provider
	Diag        diag.Runner
	Geometry    reel.Geometry
	ManifestDir string // components hashed by the Hash page
	SettingsDir string // exported machine settings
	Logger      *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.Disabled()
	}
	if d.Geometry.Stops == 0 {
		d.Geometry = reel.DefaultGeometry
	}
	if d.Diag == nil {
		d.Diag = &diag.CreackPTY{}
	}
	return d
}

// operator returns the operator-scope lookup.
func (d Deps) operator() *localization.Scoped {
	return d.Loc.For(localization.Operator)
}
