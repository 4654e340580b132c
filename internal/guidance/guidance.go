package guidance

import (
	"math"

	"github.com/rickfu415/landing-control/internal/atmosphere"
	"github.com/rickfu415/landing-control/internal/engine"
)

// Guidance phase labels. Coast is a guidance-only regime: below entry
// altitude but above the computed ignition altitude.
const (
	PhaseEntry       = "entry"
	PhaseCoast       = "coast"
	PhaseLandingBurn = "landing_burn"
)

// Command is the pure output of one guidance update, consumed by the
// session layer to drive the engine input.
type Command struct {
	Throttle    float64 `json:"throttle"`
	GimbalPitch float64 `json:"gimbal_pitch"`
	GimbalYaw   float64 `json:"gimbal_yaw"`
	Phase       string  `json:"phase"`
}

// Params tunes the landing guidance law.
type Params struct {
	EntryAltitude float64 // m, no control above this; default 3000
	ThrottleMin   float64 // engine deep-throttle floor; default 0.40
	SafetyMargin  float64 // burn-altitude scale factor; default 1.15

	SpeedGain float64 // P gain on descent-speed error; default 0.5

	// Horizontal pad correction.
	VelocityGain   float64 // lateral velocity damping; default 0.3
	PositionGain   float64 // pad-position correction; default 0.05
	GimbalRangeDeg float64 // default 5
	GimbalCutoff   float64 // m, no gimbal below this altitude; default 5
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		EntryAltitude:  3000,
		ThrottleMin:    0.40,
		SafetyMargin:   1.15,
		SpeedGain:      0.5,
		VelocityGain:   0.3,
		PositionGain:   0.05,
		GimbalRangeDeg: 5,
		GimbalCutoff:   5,
	}
}

// System computes suicide-burn landing commands from state snapshots.
// The only internal state is the ignition latch: once the burn starts
// it never reverts to coast.
type System struct {
	params Params

	burnStarted  bool
	burnAltitude float64 // altitude at ignition, for telemetry
}

// New returns a guidance system with the given parameters.
func New(params Params) *System {
	return &System{params: params}
}

// NewDefault returns a guidance system with DefaultParams.
func NewDefault() *System {
	return New(DefaultParams())
}

// BurnStartAltitude reports the altitude at which the burn ignited, or
// 0 if it has not.
func (s *System) BurnStartAltitude() float64 {
	return s.burnAltitude
}

// Reset clears the ignition latch.
func (s *System) Reset() {
	s.burnStarted = false
	s.burnAltitude = 0
}

// BurnAltitude returns the ignition altitude for the current mass and
// descent speed: the stopping distance v²/(2·decel) at minimum
// throttle, scaled by the safety margin. Returns +Inf when thrust at
// minimum throttle cannot exceed weight: the vehicle cannot stop, and
// guidance will simply never ignite.
func (s *System) BurnAltitude(mass, descentSpeed, thrustRating float64) float64 {
	if mass <= 0 || descentSpeed <= 0 {
		return 0
	}
	decel := thrustRating*s.params.ThrottleMin/mass - atmosphere.Gravity
	if decel <= 0 {
		return math.Inf(1)
	}
	return descentSpeed * descentSpeed / (2 * decel) * s.params.SafetyMargin
}

// TargetDescentSpeed is the reference profile: fast high up, slowing
// as the square root of altitude, and a fixed creep speed for the
// final meters.
func TargetDescentSpeed(altitude float64) float64 {
	if altitude <= 10 {
		return 1.5
	}
	return math.Min(2*math.Sqrt(altitude), 100)
}

// Update computes the command for one tick. Altitudes are ground
// clearance of the vehicle's base, so the speed profile reaches its
// terminal creep value right at touchdown.
func (s *System) Update(snap engine.Snapshot) Command {
	alt := snap.BaseAltitude
	descent := -snap.VerticalSpeed // positive when falling

	if alt > s.params.EntryAltitude {
		return Command{Phase: PhaseEntry}
	}

	if !s.burnStarted {
		burnAlt := s.BurnAltitude(snap.Mass, descent, snap.Rocket.Thrust)
		if math.IsInf(burnAlt, 1) || alt > burnAlt {
			// +Inf means the vehicle cannot stop at minimum throttle;
			// there is no ignition point, only a reported coast.
			return Command{Phase: PhaseCoast}
		}
		s.burnStarted = true
		s.burnAltitude = alt
	}

	throttle := s.throttleCommand(snap.Mass, alt, descent, snap.Rocket.Thrust)
	cmd := Command{Throttle: throttle, Phase: PhaseLandingBurn}
	if throttle > 0 && alt > s.params.GimbalCutoff {
		cmd.GimbalPitch, cmd.GimbalYaw = s.gimbalCommand(snap)
	}
	return cmd
}

// throttleCommand converts the descent-speed error into a throttle via
// required thrust m·(g + desired_decel).
func (s *System) throttleCommand(mass, altitude, descent, thrustRating float64) float64 {
	target := TargetDescentSpeed(altitude)
	desiredDecel := s.params.SpeedGain * (descent - target)
	thrust := mass * (atmosphere.Gravity + desiredDecel)
	if thrust <= 0 || thrustRating <= 0 {
		return 0
	}
	throttle := math.Min(1, thrust/thrustRating)
	if throttle < s.params.ThrottleMin {
		throttle = s.params.ThrottleMin
	}
	return throttle
}

// gimbalCommand blends lateral velocity damping with pad-position
// correction into a desired lateral acceleration, then converts it to
// small-angle gimbal deflections against the current thrust.
func (s *System) gimbalCommand(snap engine.Snapshot) (pitchDeg, yawDeg float64) {
	thrust := snap.Rocket.Thrust * snap.Throttle
	if thrust <= 0 {
		thrust = snap.Rocket.Thrust * s.params.ThrottleMin
	}

	ax := -s.params.VelocityGain*snap.Velocity[0] - s.params.PositionGain*snap.Position[0]
	az := -s.params.VelocityGain*snap.Velocity[2] - s.params.PositionGain*snap.Position[2]

	// Small-angle: lateral thrust ≈ T·θ.
	pitchDeg = clampDeg(ax * snap.Mass / thrust * 180 / math.Pi, s.params.GimbalRangeDeg)
	yawDeg = clampDeg(az * snap.Mass / thrust * 180 / math.Pi, s.params.GimbalRangeDeg)
	return pitchDeg, yawDeg
}

func clampDeg(v, bound float64) float64 {
	return math.Max(-bound, math.Min(bound, v))
}
