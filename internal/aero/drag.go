// Package aero implements the aerodynamic force model: Mach- and
// angle-of-attack-dependent drag coefficients, body-frame forces, and
// the terminal-velocity solver.
package aero

import (
	"math"

	"github.com/rickfu415/landing-control/internal/atmosphere"
)

// Baseline drag coefficients for a cylindrical body.
const (
	// NormalDragBase is the side-on drag coefficient at zero angle of
	// attack and Mach 0.
	NormalDragBase = 1.80

	// SimpleAxialDrag is the constant axial coefficient used by the
	// simplified drag variant (see engine.Config.SimpleAero).
	SimpleAxialDrag = 1.15
)

// MachNumber returns airspeed over the local speed of sound, or zero
// if the speed of sound is not positive.
func MachNumber(airspeed, altitude float64) float64 {
	a := atmosphere.SpeedOfSound(altitude)
	if a <= 0 {
		return 0
	}
	return airspeed / a
}

// AxialDragCoefficient models the axial Cd across flow regimes:
//
//	subsonic   (M < 0.8):      0.5 + 0.3 M²
//	transonic  (0.8 ≤ M < 1.2): 0.692 + 0.5 (M - 0.8)
//	supersonic (M ≥ 1.2):      0.892 / M
//
// The pieces are continuous at both boundaries.
func AxialDragCoefficient(mach float64) float64 {
	m := math.Abs(mach)
	switch {
	case m < 0.8:
		return 0.5 + 0.3*m*m
	case m < 1.2:
		return 0.692 + 0.5*(m-0.8)
	default:
		return 0.892 / m
	}
}

// NormalDragCoefficient models the crossflow Cd as the base value
// scaled by angle-of-attack and Mach corrections:
// Cd = base · (1 + 0.15 α²) · (1 + 0.1 M), α in radians.
func NormalDragCoefficient(angleOfAttack, mach float64) float64 {
	alpha := math.Abs(angleOfAttack)
	m := math.Abs(mach)
	return NormalDragBase * (1 + 0.15*alpha*alpha) * (1 + 0.1*m)
}
