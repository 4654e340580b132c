// Package dynamics contains the rotational force aggregation and the
// 6-DOF rigid-body integrator. Both are pure transforms over state
// supplied by the caller; neither owns simulation state.
package dynamics

import (
	"github.com/rickfu415/landing-control/internal/geometry"
	"github.com/rickfu415/landing-control/internal/transform"
)

// TorqueParams tunes the torque aggregation.
type TorqueParams struct {
	// CPHeightFraction places the center of pressure as a fraction of
	// body height from the engine.
	CPHeightFraction float64

	// AeroTorqueFactor scales the aerodynamic torque contribution.
	// This is a stability tuning knob, not a first-principles value:
	// real vehicles fly under active control and the full passive
	// moment makes the sim overly twitchy.
	AeroTorqueFactor float64

	// DampingCoefficient is the linear rotational drag c in τ = -c·ω
	// (N·m·s/rad).
	DampingCoefficient float64
}

// DefaultTorqueParams returns the tuned defaults.
func DefaultTorqueParams() TorqueParams {
	return TorqueParams{
		CPHeightFraction:   0.5,
		AeroTorqueFactor:   0.1,
		DampingCoefficient: 2.0,
	}
}

// TorqueCalculator aggregates body-frame torques about the center of
// mass.
type TorqueCalculator struct {
	geom   *geometry.Geometry
	params TorqueParams
}

// NewTorqueCalculator builds a calculator over the given geometry.
func NewTorqueCalculator(geom *geometry.Geometry, params TorqueParams) *TorqueCalculator {
	return &TorqueCalculator{geom: geom, params: params}
}

// ThrustTorque is the gimbal moment: the COM→engine lever arm crossed
// with the body-frame thrust vector.
func (tc *TorqueCalculator) ThrustTorque(thrustBody transform.Vec3, fuel float64) transform.Vec3 {
	return tc.geom.COMToEngine(fuel).Cross(thrustBody)
}

// AeroTorque is the aerodynamic moment about the COM, with the force
// applied at the center of pressure.
//
// Exception: a force that is (within tolerance) purely along the
// longitudinal body axis, as in straight vertical free fall, acts
// along the centerline through the COM and contributes no torque. Without
// this check, floating point residue in the lateral components would
// feed a spurious moment through the long CP lever arm every tick.
func (tc *TorqueCalculator) AeroTorque(aeroBody transform.Vec3, fuel float64) transform.Vec3 {
	mag := aeroBody.Norm()
	if mag > 0.1 {
		n := aeroBody.Scale(1 / mag)
		if abs(n.Y) > 0.99 && abs(n.X) < 0.01 && abs(n.Z) < 0.01 {
			return transform.Vec3{}
		}
	}

	cp := transform.Vec3{Y: tc.geom.Config().Height * tc.params.CPHeightFraction}
	arm := cp.Sub(tc.geom.CenterOfMass(fuel))
	return arm.Cross(aeroBody)
}

// DampingTorque is linear rotational drag, τ = -c·ω.
func (tc *TorqueCalculator) DampingTorque(omega transform.Vec3) transform.Vec3 {
	return omega.Scale(-tc.params.DampingCoefficient)
}

// Total sums the thrust torque, the scaled aerodynamic torque, and the
// damping torque.
func (tc *TorqueCalculator) Total(thrustBody, aeroBody, omega transform.Vec3, fuel float64) transform.Vec3 {
	total := tc.ThrustTorque(thrustBody, fuel)
	total = total.Add(tc.AeroTorque(aeroBody, fuel).Scale(tc.params.AeroTorqueFactor))
	total = total.Add(tc.DampingTorque(omega))
	return total
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
