// Package engine owns the rocket state and drives the physics tick:
// force assembly, torque aggregation, rigid-body integration, fuel
// consumption, flight-phase tracking, and touchdown classification.
package engine

import (
	"github.com/rickfu415/landing-control/internal/transform"
)

// Phase labels the current flight regime.
type Phase string

const (
	PhaseEntry       Phase = "entry"
	PhaseDescent     Phase = "descent"
	PhaseLandingBurn Phase = "landing_burn"
	PhaseLanded      Phase = "landed"
	PhaseCrashed     Phase = "crashed"
)

// State is the full mutable simulation state. It is owned exclusively
// by the Engine: external callers observe it through Snapshot and
// influence it only through SetInput and Reset.
type State struct {
	Position        transform.Vec3 // world frame, m (COM)
	Velocity        transform.Vec3 // world frame, m/s
	Acceleration    transform.Vec3 // world frame, m/s²
	Orientation     transform.Quat // body → world
	AngularVelocity transform.Vec3 // body frame, rad/s

	Fuel     float64 // kg remaining
	Throttle float64 // 0, or [ThrottleMin, 1]

	GimbalPitch float64 // degrees
	GimbalYaw   float64 // degrees

	GridFinPitch float64 // degrees
	GridFinYaw   float64 // degrees

	LegsDeployed bool
	Phase        Phase

	Landed  bool
	Crashed bool

	// Captured once at ground contact.
	TouchdownSpeed float64 // m/s
	TouchdownTilt  float64 // degrees
}

// Input carries optional control commands. Nil fields leave the
// corresponding state untouched; set fields are validated and clamped
// by SetInput.
type Input struct {
	Throttle     *float64 `json:"throttle,omitempty"`
	GimbalPitch  *float64 `json:"gimbal_pitch,omitempty"`
	GimbalYaw    *float64 `json:"gimbal_yaw,omitempty"`
	GridFinPitch *float64 `json:"grid_fin_pitch,omitempty"`
	GridFinYaw   *float64 `json:"grid_fin_yaw,omitempty"`
}

// Snapshot is the read-only view of one tick's outcome, shaped for
// serialization. Derived quantities (speeds, mass, terminal velocity
// estimates) are computed at snapshot time so clients never touch the
// live state.
type Snapshot struct {
	Time float64 `json:"time"`

	Position        [3]float64 `json:"position"`
	Velocity        [3]float64 `json:"velocity"`
	Acceleration    [3]float64 `json:"acceleration"`
	Orientation     [4]float64 `json:"orientation"` // w,x,y,z
	AngularVelocity [3]float64 `json:"angular_velocity"`

	Altitude        float64 `json:"altitude"`      // COM height above ground
	BaseAltitude    float64 `json:"base_altitude"` // lowest-point clearance
	Speed           float64 `json:"speed"`
	VerticalSpeed   float64 `json:"vertical_speed"`
	HorizontalSpeed float64 `json:"horizontal_speed"`
	TiltDeg         float64 `json:"tilt_deg"`

	Mass float64 `json:"mass"`
	Fuel float64 `json:"fuel"`

	Throttle     float64 `json:"throttle"`
	GimbalPitch  float64 `json:"gimbal_pitch"`
	GimbalYaw    float64 `json:"gimbal_yaw"`
	GridFinPitch float64 `json:"grid_fin_pitch"`
	GridFinYaw   float64 `json:"grid_fin_yaw"`
	LegsDeployed bool    `json:"legs_deployed"`

	Phase   Phase `json:"phase"`
	Landed  bool  `json:"landed"`
	Crashed bool  `json:"crashed"`

	TouchdownSpeed float64 `json:"touchdown_speed"`
	TouchdownTilt  float64 `json:"touchdown_tilt"`

	TerminalVelocityAxial  float64 `json:"terminal_velocity_axial"`
	TerminalVelocityNormal float64 `json:"terminal_velocity_normal"`

	Rocket RocketInfo `json:"rocket"`
}

// RocketInfo echoes the immutable vehicle configuration for clients.
type RocketInfo struct {
	Height      float64 `json:"height"`
	Diameter    float64 `json:"diameter"`
	DryMass     float64 `json:"dry_mass"`
	InitialFuel float64 `json:"initial_fuel"`
	Thrust      float64 `json:"thrust"`
	ISP         float64 `json:"isp"`
}
