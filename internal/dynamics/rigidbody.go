package dynamics

import (
	"math"

	"github.com/rickfu415/landing-control/internal/geometry"
	"github.com/rickfu415/landing-control/internal/transform"
)

// MaxAngularRate caps |ω| (rad/s). A first stage under control never
// tumbles faster than this; beyond it the fixed-step integrator loses
// accuracy anyway.
const MaxAngularRate = 0.52

// BodyState is the minimal rigid-body state advanced by Integrate.
type BodyState struct {
	Position        transform.Vec3 // world frame, m
	Velocity        transform.Vec3 // world frame, m/s
	Acceleration    transform.Vec3 // world frame, m/s² (last step's value)
	Orientation     transform.Quat // body → world
	AngularVelocity transform.Vec3 // body frame, rad/s
}

// Integrate advances one semi-implicit Euler step: velocities update
// from current forces first, then positions update from the new
// velocities. Mass properties are re-queried at the current fuel level
// so inertia tracks fuel burn.
//
// Translation uses a = F/m in the world frame. Rotation solves Euler's
// equation in the body frame, ω̇ = I⁻¹(τ - ω×(Iω)), then rotates the
// orientation quaternion by the exact axis-angle map of ω·dt.
func Integrate(geom *geometry.Geometry, st BodyState, forceWorld, torqueBody transform.Vec3, fuel, dt float64) BodyState {
	mass := geom.Mass(fuel)
	inertia := geom.InertiaTensor(fuel)
	invInertia := inertia.DiagInverse()

	accel := forceWorld.Scale(1 / mass)
	velocity := st.Velocity.Add(accel.Scale(dt))
	position := st.Position.Add(velocity.Scale(dt))

	gyro := st.AngularVelocity.Cross(inertia.MulVec(st.AngularVelocity))
	alpha := invInertia.MulVec(torqueBody.Sub(gyro))
	omega := st.AngularVelocity.Add(alpha.Scale(dt))
	omega = capRate(omega)

	return BodyState{
		Position:        position,
		Velocity:        velocity,
		Acceleration:    accel,
		Orientation:     transform.Integrate(st.Orientation, omega, dt),
		AngularVelocity: omega,
	}
}

func capRate(omega transform.Vec3) transform.Vec3 {
	n := omega.Norm()
	if n <= MaxAngularRate {
		return omega
	}
	return omega.Scale(MaxAngularRate / n)
}

// KineticEnergy returns translational plus rotational kinetic energy
// (J) at the given fuel level. Used for diagnostics.
func KineticEnergy(geom *geometry.Geometry, st BodyState, fuel float64) float64 {
	mass := geom.Mass(fuel)
	trans := 0.5 * mass * st.Velocity.Dot(st.Velocity)
	iw := geom.InertiaTensor(fuel).MulVec(st.AngularVelocity)
	rot := 0.5 * st.AngularVelocity.Dot(iw)
	return trans + rot
}

// TiltAngle returns the angle (rad) between the body longitudinal axis
// and world vertical.
func TiltAngle(q transform.Quat) float64 {
	up := q.BodyToWorld(transform.Vec3{Y: 1})
	c := math.Max(-1, math.Min(1, up.Y))
	return math.Acos(c)
}
