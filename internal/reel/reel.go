// Package reel converts between stepper-motor step positions and reel stop
// indices.
//
// A reel has Stops symbol positions spread over StepsPerRevolution motor
// steps. Step 0 is the optical home sensor; stop 0 sits HomeOffset steps past
// home.
package reel

import (
	"errors"
	"fmt"
)

// ErrInvalidStop is returned for a stop index outside [0, Stops).
var ErrInvalidStop = errors.New("invalid stop")

// Geometry describes one reel's mechanics.
type Geometry struct {
	Stops              int
	StepsPerRevolution int
	HomeOffset         int
}

// DefaultGeometry is the standard 22-stop, 200-step reel.
var DefaultGeometry = Geometry{
	Stops:              22,
	StepsPerRevolution: 200,
	HomeOffset:         4,
}

// Validate reports whether the geometry supports exact round trips between
// stops and steps.
func (g Geometry) Validate() error {
	if g.Stops <= 0 {
		return fmt.Errorf("stops must be positive, got %d", g.Stops)
	}
	if g.StepsPerRevolution < g.Stops {
		return fmt.Errorf("steps per revolution (%d) must be at least the stop count (%d)",
			g.StepsPerRevolution, g.Stops)
	}
	return nil
}

// ValidStop reports whether stop is an index on this reel.
func (g Geometry) ValidStop(stop int) bool {
	return stop >= 0 && stop < g.Stops
}

// StopToSteps returns the step position of stop. Out-of-range stops return
// ErrInvalidStop.
func (g Geometry) StopToSteps(stop int) (int, error) {
	if !g.ValidStop(stop) {
		return 0, fmt.Errorf("%w: %d (reel has %d stops)", ErrInvalidStop, stop, g.Stops)
	}
	// Nearest step to stop*SPR/Stops, rounding half up.
	rel := (2*stop*g.StepsPerRevolution + g.Stops) / (2 * g.Stops)
	return mod(g.HomeOffset+rel, g.StepsPerRevolution), nil
}

// StepsToStop returns the stop nearest to a step position. Any step count is
// accepted; positions wrap around the revolution.
func (g Geometry) StepsToStop(steps int) int {
	rel := mod(steps-g.HomeOffset, g.StepsPerRevolution)
	stop := (2*rel*g.Stops + g.StepsPerRevolution) / (2 * g.StepsPerRevolution)
	return mod(stop, g.Stops)
}

// Next returns the stop after stop, wrapping.
func (g Geometry) Next(stop int) int {
	return mod(stop+1, g.Stops)
}

// Prev returns the stop before stop, wrapping.
func (g Geometry) Prev(stop int) int {
	return mod(stop-1, g.Stops)
}

// NormalizeSteps wraps a step count into [0, StepsPerRevolution).
func (g Geometry) NormalizeSteps(steps int) int {
	return mod(steps, g.StepsPerRevolution)
}

// StopToSteps converts with DefaultGeometry.
func StopToSteps(stop int) (int, error) {
	return DefaultGeometry.StopToSteps(stop)
}

// StepsToStop converts with DefaultGeometry.
func StepsToStop(steps int) int {
	return DefaultGeometry.StepsToStop(steps)
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
