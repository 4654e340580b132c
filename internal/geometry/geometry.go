// Package geometry models the rocket as a cylinder with a fuel-
// dependent mass distribution: total mass, center of mass, and the
// inertia tensor are pure functions of remaining fuel.
package geometry

import (
	"fmt"
	"math"

	"github.com/rickfu415/landing-control/internal/transform"
)

// Config describes the vehicle geometry and engine ratings. Immutable
// after construction; validated by New.
type Config struct {
	Height        float64 // m
	Diameter      float64 // m
	DryMass       float64 // kg
	FuelMass      float64 // kg
	COMHeight     float64 // dry-mass COM, meters from the engine
	FuelCOMHeight float64 // fuel COM, meters from the engine; 0 = Height/2

	// Engine ratings.
	Thrust float64 // N at full throttle
	ISP    float64 // s, sea level
}

// Geometry answers mass-property queries for a validated Config.
type Geometry struct {
	cfg Config
}

// New validates the configuration and returns a Geometry.
// Invalid dimensions or masses are configuration errors and fail here,
// never during simulation.
func New(cfg Config) (*Geometry, error) {
	if cfg.Height <= 0 {
		return nil, fmt.Errorf("rocket height must be positive, got %g", cfg.Height)
	}
	if cfg.Diameter <= 0 {
		return nil, fmt.Errorf("rocket diameter must be positive, got %g", cfg.Diameter)
	}
	if cfg.DryMass <= 0 {
		return nil, fmt.Errorf("rocket dry mass must be positive, got %g", cfg.DryMass)
	}
	if cfg.FuelMass < 0 {
		return nil, fmt.Errorf("rocket fuel mass cannot be negative, got %g", cfg.FuelMass)
	}
	if cfg.FuelCOMHeight == 0 {
		// Fuel tank assumed centered along the body.
		cfg.FuelCOMHeight = cfg.Height / 2
	}
	return &Geometry{cfg: cfg}, nil
}

// Config returns the validated configuration.
func (g *Geometry) Config() Config {
	return g.cfg
}

// Radius returns the body radius in meters.
func (g *Geometry) Radius() float64 {
	return g.cfg.Diameter / 2
}

// CrossSectionalArea returns the frontal area in m².
func (g *Geometry) CrossSectionalArea() float64 {
	r := g.Radius()
	return math.Pi * r * r
}

// clampFuel limits fuel to the physical range [0, FuelMass].
func (g *Geometry) clampFuel(fuel float64) float64 {
	return math.Max(0, math.Min(fuel, g.cfg.FuelMass))
}

// Mass returns total vehicle mass at the given fuel level.
func (g *Geometry) Mass(fuel float64) float64 {
	return g.cfg.DryMass + g.clampFuel(fuel)
}

// CenterOfMass returns the COM position in the body frame, measured
// from the engine along the longitudinal (+Y) axis. X and Z are zero
// by symmetry.
func (g *Geometry) CenterOfMass(fuel float64) transform.Vec3 {
	fuel = g.clampFuel(fuel)
	total := g.cfg.DryMass + fuel
	comY := (g.cfg.DryMass*g.cfg.COMHeight + fuel*g.cfg.FuelCOMHeight) / total
	return transform.Vec3{Y: comY}
}

// EnginePosition returns the engine gimbal point in the body frame.
// The engine sits at the bottom of the vehicle, the body-frame origin.
func (g *Geometry) EnginePosition() transform.Vec3 {
	return transform.Vec3{}
}

// COMToEngine returns the lever arm from the center of mass to the
// engine in the body frame.
func (g *Geometry) COMToEngine(fuel float64) transform.Vec3 {
	return g.EnginePosition().Sub(g.CenterOfMass(fuel))
}

// InertiaTensor returns the 3x3 inertia tensor about the combined COM
// in the body frame (kg·m²). Dry mass and fuel are each modeled as a
// solid cylinder (Ixx = Izz = (1/12)m(3r²+h²) about the lateral axes,
// Iyy = (1/2)mr² about the longitudinal axis), shifted to the shared
// COM with the parallel-axis theorem and summed. Off-diagonal terms
// are zero by symmetry.
func (g *Geometry) InertiaTensor(fuel float64) transform.Mat3 {
	fuel = g.clampFuel(fuel)
	r := g.Radius()
	h := g.cfg.Height
	comY := g.CenterOfMass(fuel).Y

	lateral := func(m, ownCOMY float64) float64 {
		iCM := (1.0 / 12.0) * m * (3*r*r + h*h)
		d := comY - ownCOMY
		return iCM + m*d*d
	}
	roll := func(m float64) float64 {
		return 0.5 * m * r * r
	}

	ixx := lateral(g.cfg.DryMass, g.cfg.COMHeight)
	iyy := roll(g.cfg.DryMass)
	if fuel > 0 {
		ixx += lateral(fuel, g.cfg.FuelCOMHeight)
		iyy += roll(fuel)
	}
	// Izz equals Ixx by symmetry.
	return transform.Diag(ixx, iyy, ixx)
}
