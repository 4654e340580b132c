package aero

import (
	"math"

	"github.com/rickfu415/landing-control/internal/atmosphere"
	"github.com/rickfu415/landing-control/internal/transform"
)

const (
	// Below this airspeed all aerodynamic force is zero.
	minAirspeed = 0.1

	// Threshold for treating the longitudinal velocity component as
	// negligible when deriving flow angles.
	axialEpsilon = 1e-3
)

// Orientation selects which drag coefficient the terminal-velocity
// solver assumes.
type Orientation int

const (
	// Axial: nose- or tail-first flight, the low-drag case.
	Axial Orientation = iota
	// Normal: side-on flight, the high-drag case.
	Normal
)

// FlowAngles returns the angle of attack (pitch plane) and sideslip
// (yaw plane) in radians for a body-frame relative velocity. The
// longitudinal axis is body +Y; X and Z are the lateral pitch and yaw
// axes.
//
// When the longitudinal component is negligible (pure crossflow, e.g.
// the vehicle sliding sideways), a small ε forward component is
// substituted to keep atan2 away from the ±90° singularity, and only
// the dominant lateral axis contributes its angle.
func FlowAngles(velBody transform.Vec3) (alpha, beta float64) {
	mag := velBody.Norm()
	if mag < minAirspeed {
		return 0, 0
	}

	fwd := velBody.Y / mag
	lat := velBody.X / mag // pitch plane
	side := velBody.Z / mag // yaw plane

	if math.Abs(fwd) > axialEpsilon {
		return math.Atan2(lat, fwd), math.Atan2(side, fwd)
	}

	// Degenerate crossflow: favor the dominant lateral axis.
	if math.Abs(lat) > math.Abs(side) {
		alpha = math.Atan2(lat, axialEpsilon)
	}
	if math.Abs(side) >= math.Abs(lat) {
		beta = math.Atan2(side, axialEpsilon)
	}
	return alpha, beta
}

// Force computes the aerodynamic force in the body frame from the
// body-frame relative velocity, altitude, and frontal area.
//
// The force decomposes into an axial component opposing longitudinal
// motion and normal/side components from the flow angles, each scaled
// by dynamic pressure, area, and its coefficient. Below ~0.1 m/s the
// force is zero.
func Force(velBody transform.Vec3, altitude, area float64) transform.Vec3 {
	mag := velBody.Norm()
	if mag < minAirspeed {
		return transform.Vec3{}
	}

	density := atmosphere.Density(altitude)
	q := 0.5 * density * mag * mag

	mach := MachNumber(mag, altitude)
	alpha, beta := FlowAngles(velBody)
	cdAxial := AxialDragCoefficient(mach)

	if math.Abs(velBody.Y) > 0.01 {
		var fAxial, fNormal, fSide float64

		fAxial = -q * area * cdAxial * sign(velBody.Y)
		if math.Abs(alpha) > 0.01 {
			fNormal = -q * area * NormalDragCoefficient(alpha, mach) * math.Sin(alpha)
		}
		if math.Abs(beta) > 0.01 {
			fSide = -q * area * NormalDragCoefficient(beta, mach) * math.Sin(beta)
		}
		return transform.Vec3{X: fNormal, Y: fAxial, Z: fSide}
	}

	// Pure crossflow: oppose the dominant lateral component with the
	// axial coefficient, leaving the other axis alone so no spurious
	// out-of-plane force appears.
	var f transform.Vec3
	switch {
	case math.Abs(velBody.X) > math.Abs(velBody.Z) && math.Abs(velBody.X) > 0.01:
		f.X = -q * area * cdAxial * sign(velBody.X)
	case math.Abs(velBody.Z) > 0.01:
		f.Z = -q * area * cdAxial * sign(velBody.Z)
	}
	return f
}

// TerminalVelocity solves v = sqrt(2mg/(ρACd)) for free fall in the
// given orientation, with one refinement pass recomputing Cd at the
// first-pass Mach number. Returns +Inf when density or area is not
// positive: in vacuum there is no terminal velocity, and the caller
// treats that as an ordinary result, not an error.
func TerminalVelocity(mass, area, altitude float64, orientation Orientation, angleOfAttack float64) float64 {
	density := atmosphere.Density(altitude)
	if density <= 0 || area <= 0 {
		return math.Inf(1)
	}

	var cd float64
	if orientation == Axial {
		cd = 0.6 // subsonic axial first guess
	} else {
		cd = NormalDragBase * (1 + 0.15*angleOfAttack*angleOfAttack)
	}

	vTerm := math.Sqrt(2 * mass * atmosphere.Gravity / (density * area * cd))

	// One refinement at the first-pass Mach number.
	mach := MachNumber(vTerm, altitude)
	if orientation == Axial {
		cd = AxialDragCoefficient(mach)
	} else {
		cd = NormalDragCoefficient(angleOfAttack, mach)
	}
	return math.Sqrt(2 * mass * atmosphere.Gravity / (density * area * cd))
}

// TerminalVelocityRange returns the axial (fast) and normal (slow)
// terminal velocities at the given altitude.
func TerminalVelocityRange(mass, area, altitude float64) (axial, normal float64) {
	return TerminalVelocity(mass, area, altitude, Axial, 0),
		TerminalVelocity(mass, area, altitude, Normal, 0)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	if x > 0 {
		return 1
	}
	return 0
}
