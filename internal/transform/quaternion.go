package transform

import "math"

// Quat is a rotation quaternion in (w, x, y, z) order, mapping body
// frame to world frame. It must be kept at unit norm to represent a
// valid rotation; every constructor and integrator here renormalizes.
type Quat struct {
	W, X, Y, Z float64
}

// Identity returns the identity rotation (vehicle upright).
func Identity() Quat {
	return Quat{W: 1}
}

// Norm returns the quaternion magnitude.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns q scaled to unit norm. A degenerate quaternion
// (norm below 1e-10) falls back to the identity.
func (q Quat) Normalized() Quat {
	n := q.Norm()
	if n < 1e-10 {
		return Identity()
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// IsFinite reports whether all components are finite.
func (q Quat) IsFinite() bool {
	for _, c := range [4]float64{q.W, q.X, q.Y, q.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Mul returns the Hamilton product q * p.
func (q Quat) Mul(p Quat) Quat {
	return Quat{
		W: q.W*p.W - q.X*p.X - q.Y*p.Y - q.Z*p.Z,
		X: q.W*p.X + q.X*p.W + q.Y*p.Z - q.Z*p.Y,
		Y: q.W*p.Y - q.X*p.Z + q.Y*p.W + q.Z*p.X,
		Z: q.W*p.Z + q.X*p.Y - q.Y*p.X + q.Z*p.W,
	}
}

// RotationMatrix returns the direction-cosine matrix R such that
// v_world = R · v_body. The quaternion is normalized before use.
func (q Quat) RotationMatrix() Mat3 {
	q = q.Normalized()
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// BodyToWorld rotates a body-frame vector into the world frame.
func (q Quat) BodyToWorld(v Vec3) Vec3 {
	return q.RotationMatrix().MulVec(v)
}

// WorldToBody rotates a world-frame vector into the body frame.
// R is orthogonal, so the inverse rotation is Rᵀ.
func (q Quat) WorldToBody(v Vec3) Vec3 {
	return q.RotationMatrix().Transpose().MulVec(v)
}

// FromAxisAngle builds the quaternion for a rotation of angle radians
// about the given axis (need not be normalized).
func FromAxisAngle(axis Vec3, angle float64) Quat {
	axis = axis.Normalized()
	half := angle / 2
	s := math.Sin(half)
	return Quat{
		W: math.Cos(half),
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

// Integrate advances the orientation over dt under a body-frame
// angular velocity (rad/s), using the exact axis-angle exponential
// map rather than a first-order linearization.
//
// The result is renormalized every step to prevent drift. If the
// update comes out non-finite or with a wildly off-unit magnitude,
// the previous orientation is retained (the caller observes no
// change for that step), per the recovery policy for integration
// anomalies.
func Integrate(q Quat, omega Vec3, dt float64) Quat {
	angle := omega.Norm() * dt
	if angle < 1e-10 {
		return q.Normalized()
	}

	dq := FromAxisAngle(omega, angle)
	next := q.Mul(dq)

	if !next.IsFinite() {
		return q.Normalized()
	}
	return next.Normalized()
}
