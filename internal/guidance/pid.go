// Package guidance computes autonomous landing commands: a
// suicide-burn throttle law with horizontal pad correction, and PID
// attitude control.
package guidance

import "math"

// PID is a standard discrete PID controller with anti-windup integral
// clamping and output bounds.
type PID struct {
	Kp, Ki, Kd    float64
	IntegralLimit float64 // |integral| clamp
	OutMin        float64
	OutMax        float64

	integral  float64
	prevError float64
	primed    bool
}

// NewPID constructs a controller with symmetric output bounds.
func NewPID(kp, ki, kd, integralLimit, outBound float64) *PID {
	return &PID{
		Kp: kp, Ki: ki, Kd: kd,
		IntegralLimit: integralLimit,
		OutMin:        -outBound,
		OutMax:        outBound,
	}
}

// Update advances the controller one step and returns the clamped
// output. The derivative term is zero on the first call after a reset
// (no previous error to difference against).
func (p *PID) Update(setpoint, measured, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	err := setpoint - measured

	p.integral += err * dt
	if p.IntegralLimit > 0 {
		p.integral = math.Max(-p.IntegralLimit, math.Min(p.IntegralLimit, p.integral))
	}

	var derivative float64
	if p.primed {
		derivative = (err - p.prevError) / dt
	}
	p.prevError = err
	p.primed = true

	out := p.Kp*err + p.Ki*p.integral + p.Kd*derivative
	return math.Max(p.OutMin, math.Min(p.OutMax, out))
}

// Reset clears the integral accumulator and derivative history.
func (p *PID) Reset() {
	p.integral = 0
	p.prevError = 0
	p.primed = false
}

// AttitudeController runs independent PID loops for pitch, yaw, and
// roll. Pitch and yaw command gimbal degrees; roll commands grid-fin
// deflection.
type AttitudeController struct {
	Pitch *PID
	Yaw   *PID
	Roll  *PID
}

// NewAttitudeController returns a controller with the tuned default
// gains.
func NewAttitudeController() *AttitudeController {
	return &AttitudeController{
		Pitch: NewPID(2.0, 0.1, 1.5, 10, 5),
		Yaw:   NewPID(2.0, 0.1, 1.5, 10, 5),
		Roll:  NewPID(1.0, 0.05, 0.8, 10, 15),
	}
}

// Update returns pitch, yaw, and roll commands for the given attitude
// errors (setpoint minus measured has already been folded into the
// per-axis setpoint/measured pairs by the caller).
func (a *AttitudeController) Update(pitchSet, pitchMeas, yawSet, yawMeas, rollSet, rollMeas, dt float64) (pitch, yaw, roll float64) {
	pitch = a.Pitch.Update(pitchSet, pitchMeas, dt)
	yaw = a.Yaw.Update(yawSet, yawMeas, dt)
	roll = a.Roll.Update(rollSet, rollMeas, dt)
	return pitch, yaw, roll
}

// Reset clears all three axes.
func (a *AttitudeController) Reset() {
	a.Pitch.Reset()
	a.Yaw.Reset()
	a.Roll.Reset()
}
