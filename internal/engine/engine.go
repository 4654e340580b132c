package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/rickfu415/landing-control/internal/aero"
	"github.com/rickfu415/landing-control/internal/atmosphere"
	"github.com/rickfu415/landing-control/internal/dynamics"
	"github.com/rickfu415/landing-control/internal/geometry"
	"github.com/rickfu415/landing-control/internal/transform"
	"github.com/rickfu415/landing-control/internal/wind"
)

// Flight-phase altitude thresholds (m).
const (
	entryAltitude       = 3000
	landingBurnAltitude = 500
)

// Config assembles a full engine. Zero-valued tuning fields take the
// defaults below.
type Config struct {
	Rocket geometry.Config
	Wind   wind.Config

	// SimpleAero swaps the Mach/angle-of-attack force model for a
	// constant-coefficient drag opposing the relative airflow.
	SimpleAero bool

	ThrottleMin    float64 // default 0.40
	GimbalRangeDeg float64 // default 5
	GridFinRange   float64 // degrees, default 20

	LegsDeployAltitude float64 // m, default 200

	// Touchdown safety thresholds.
	MaxLandingVertical   float64 // m/s, default 2.0
	MaxLandingHorizontal float64 // m/s, default 1.0
	MaxLandingTiltDeg    float64 // degrees, default 5
	PadRadius            float64 // m, default 25

	Torque dynamics.TorqueParams

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.ThrottleMin == 0 {
		c.ThrottleMin = 0.40
	}
	if c.GimbalRangeDeg == 0 {
		c.GimbalRangeDeg = 5
	}
	if c.GridFinRange == 0 {
		c.GridFinRange = 20
	}
	if c.LegsDeployAltitude == 0 {
		c.LegsDeployAltitude = 200
	}
	if c.MaxLandingVertical == 0 {
		c.MaxLandingVertical = 2.0
	}
	if c.MaxLandingHorizontal == 0 {
		c.MaxLandingHorizontal = 1.0
	}
	if c.MaxLandingTiltDeg == 0 {
		c.MaxLandingTiltDeg = 5
	}
	if c.PadRadius == 0 {
		c.PadRadius = 25
	}
	if c.Torque == (dynamics.TorqueParams{}) {
		c.Torque = dynamics.DefaultTorqueParams()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine owns a RocketState and advances it one fixed timestep at a
// time. It is single-threaded: callers must not invoke Step, SetInput,
// or Reset concurrently on the same instance.
type Engine struct {
	cfg     Config
	geom    *geometry.Geometry
	wind    *wind.Model
	torques *dynamics.TorqueCalculator
	log     *slog.Logger

	st      State
	elapsed float64
}

// New validates the configuration and returns an engine at zero state.
// Call Reset before stepping.
func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()
	geom, err := geometry.New(cfg.Rocket)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	e := &Engine{
		cfg:     cfg,
		geom:    geom,
		wind:    wind.New(cfg.Wind),
		torques: dynamics.NewTorqueCalculator(geom, cfg.Torque),
		log:     cfg.Logger,
	}
	e.Reset(entryAltitude + 1000)
	return e, nil
}

// Geometry exposes the vehicle geometry for collaborators (guidance,
// recorder, scoring).
func (e *Engine) Geometry() *geometry.Geometry {
	return e.geom
}

// Elapsed returns simulated time since the last reset, in seconds.
func (e *Engine) Elapsed() float64 {
	return e.elapsed
}

// Reset reinitializes the state at the given altitude, descending at
// the axial terminal velocity for that altitude and mass, so the
// vehicle starts at aerodynamic equilibrium rather than an arbitrary
// speed.
func (e *Engine) Reset(altitude float64) {
	mass := e.geom.Mass(e.cfg.Rocket.FuelMass)
	vt := aero.TerminalVelocity(mass, e.geom.CrossSectionalArea(), altitude, aero.Axial, 0)
	if math.IsInf(vt, 0) {
		vt = 0
	}
	e.ResetWithVelocity(altitude, transform.Vec3{Y: -vt})
}

// ResetWithVelocity reinitializes the state at the given altitude and
// world-frame velocity.
func (e *Engine) ResetWithVelocity(altitude float64, velocity transform.Vec3) {
	e.wind.Reset()
	e.elapsed = 0
	e.st = State{
		Position:    transform.Vec3{Y: math.Max(0, altitude)},
		Velocity:    velocity,
		Orientation: transform.Identity(),
		Fuel:        e.cfg.Rocket.FuelMass,
		Phase:       phaseForAltitude(altitude),
	}
}

func phaseForAltitude(altitude float64) Phase {
	switch {
	case altitude > entryAltitude:
		return PhaseEntry
	case altitude > landingBurnAltitude:
		return PhaseDescent
	default:
		return PhaseLandingBurn
	}
}

// SetInput applies control commands. Each field is independently
// clamped: throttle snaps to 0 below half the engine minimum, to the
// minimum between there and the minimum, and to 1 above full; gimbal
// and grid fins clip to their configured ranges.
func (e *Engine) SetInput(in Input) {
	if e.st.Landed || e.st.Crashed {
		return
	}
	if in.Throttle != nil {
		e.st.Throttle = e.clampThrottle(*in.Throttle)
	}
	if in.GimbalPitch != nil {
		e.st.GimbalPitch = clamp(*in.GimbalPitch, -e.cfg.GimbalRangeDeg, e.cfg.GimbalRangeDeg)
	}
	if in.GimbalYaw != nil {
		e.st.GimbalYaw = clamp(*in.GimbalYaw, -e.cfg.GimbalRangeDeg, e.cfg.GimbalRangeDeg)
	}
	if in.GridFinPitch != nil {
		e.st.GridFinPitch = clamp(*in.GridFinPitch, -e.cfg.GridFinRange, e.cfg.GridFinRange)
	}
	if in.GridFinYaw != nil {
		e.st.GridFinYaw = clamp(*in.GridFinYaw, -e.cfg.GridFinRange, e.cfg.GridFinRange)
	}
}

// clampThrottle enforces the deep-throttle limit: the engine either
// runs at [ThrottleMin, 1] or not at all.
func (e *Engine) clampThrottle(t float64) float64 {
	switch {
	case t <= e.cfg.ThrottleMin/2:
		return 0
	case t < e.cfg.ThrottleMin:
		return e.cfg.ThrottleMin
	case t > 1:
		return 1
	default:
		return t
	}
}

// Step advances the simulation one tick and returns the new snapshot.
// After touchdown the state is frozen and Step is a no-op.
func (e *Engine) Step(dt float64) Snapshot {
	if e.st.Landed || e.st.Crashed || dt <= 0 {
		return e.Snapshot()
	}

	e.wind.Advance(dt)
	altitude := e.st.Position.Y

	thrustBody := e.thrustBody()
	thrustWorld := e.st.Orientation.BodyToWorld(thrustBody)

	aeroBody, aeroWorld := e.aeroForce(altitude)

	mass := e.geom.Mass(e.st.Fuel)
	gravity := transform.Vec3{Y: -atmosphere.Gravity * mass}
	force := gravity.Add(thrustWorld).Add(aeroWorld)

	torque := e.torques.Total(thrustBody, aeroBody, e.st.AngularVelocity, e.st.Fuel)

	body := dynamics.Integrate(e.geom, dynamics.BodyState{
		Position:        e.st.Position,
		Velocity:        e.st.Velocity,
		Orientation:     e.st.Orientation,
		AngularVelocity: e.st.AngularVelocity,
	}, force, torque, e.st.Fuel, dt)

	e.st.Position = body.Position
	e.st.Velocity = body.Velocity
	e.st.Acceleration = body.Acceleration
	e.st.Orientation = body.Orientation
	e.st.AngularVelocity = body.AngularVelocity

	e.consumeFuel(dt)
	e.elapsed += dt

	e.updatePhase()
	e.checkGroundContact()

	return e.Snapshot()
}

// thrustBody returns the body-frame thrust vector: rating × throttle,
// deflected by the gimbal angles. Zero without throttle or fuel.
func (e *Engine) thrustBody() transform.Vec3 {
	if e.st.Throttle <= 0 || e.st.Fuel <= 0 {
		return transform.Vec3{}
	}
	t := e.cfg.Rocket.Thrust * e.st.Throttle
	pitch := e.st.GimbalPitch * math.Pi / 180
	yaw := e.st.GimbalYaw * math.Pi / 180
	return transform.Vec3{
		X: t * math.Sin(pitch),
		Y: t * math.Cos(pitch) * math.Cos(yaw),
		Z: t * math.Sin(yaw),
	}
}

// aeroForce computes the aerodynamic force in body and world frames
// from the wind-relative velocity. With negligible horizontal airspeed
// the world force is forced purely vertical so residue never feeds the
// torque path.
func (e *Engine) aeroForce(altitude float64) (body, world transform.Vec3) {
	rel := e.wind.RelativeVelocity(e.st.Velocity, altitude)
	velBody := e.st.Orientation.WorldToBody(rel)

	if e.cfg.SimpleAero {
		speed := velBody.Norm()
		if speed < 0.1 {
			return transform.Vec3{}, transform.Vec3{}
		}
		q := 0.5 * atmosphere.Density(altitude) * speed
		body = velBody.Scale(-q * e.geom.CrossSectionalArea() * aero.SimpleAxialDrag)
	} else {
		body = aero.Force(velBody, altitude, e.geom.CrossSectionalArea())
	}

	world = e.st.Orientation.BodyToWorld(body)
	if math.Hypot(rel.X, rel.Z) < 0.1 {
		world.X, world.Z = 0, 0
	}
	return body, world
}

// consumeFuel burns propellant at the rating-derived mass flow,
// Δm = (thrust / (isp·g0)) · throttle · dt.
func (e *Engine) consumeFuel(dt float64) {
	if e.st.Throttle <= 0 || e.st.Fuel <= 0 || e.cfg.Rocket.ISP <= 0 {
		return
	}
	flow := e.cfg.Rocket.Thrust / (e.cfg.Rocket.ISP * atmosphere.Gravity)
	e.st.Fuel = math.Max(0, e.st.Fuel-flow*e.st.Throttle*dt)
	if e.st.Fuel == 0 {
		e.st.Throttle = 0
	}
}

func (e *Engine) updatePhase() {
	e.st.Phase = phaseForAltitude(e.st.Position.Y)
	if e.st.Phase == PhaseLandingBurn && !e.st.LegsDeployed &&
		e.st.Position.Y < e.cfg.LegsDeployAltitude {
		e.st.LegsDeployed = true
		e.log.Info("landing legs deployed", "altitude", e.st.Position.Y)
	}
}

// checkGroundContact finds the altitude of the vehicle's lowest point
// (the engine, offset from the COM along body-down) and, on contact,
// classifies the touchdown. Exactly one of landed/crashed is set;
// motion is zeroed and the state frozen.
func (e *Engine) checkGroundContact() {
	lowest := e.baseAltitude()
	if lowest > 0 {
		return
	}

	vertical := math.Abs(e.st.Velocity.Y)
	horizontal := math.Hypot(e.st.Velocity.X, e.st.Velocity.Z)
	tilt := dynamics.TiltAngle(e.st.Orientation) * 180 / math.Pi
	padDistance := math.Hypot(e.st.Position.X, e.st.Position.Z)

	e.st.TouchdownSpeed = e.st.Velocity.Norm()
	e.st.TouchdownTilt = tilt

	safe := vertical <= e.cfg.MaxLandingVertical &&
		horizontal <= e.cfg.MaxLandingHorizontal &&
		tilt <= e.cfg.MaxLandingTiltDeg &&
		padDistance <= e.cfg.PadRadius
	if safe {
		e.st.Landed = true
		e.st.Phase = PhaseLanded
	} else {
		e.st.Crashed = true
		e.st.Phase = PhaseCrashed
	}

	e.st.Position.Y -= lowest
	e.st.Velocity = transform.Vec3{}
	e.st.Acceleration = transform.Vec3{}
	e.st.AngularVelocity = transform.Vec3{}
	e.st.Throttle = 0

	e.log.Info("touchdown",
		"landed", e.st.Landed,
		"vertical_speed", vertical,
		"horizontal_speed", horizontal,
		"tilt_deg", tilt,
		"pad_distance", padDistance,
		"fuel", e.st.Fuel,
		"elapsed", e.elapsed,
	)
}

// baseAltitude is the ground clearance of the vehicle's lowest point,
// the COM offset along body-down.
func (e *Engine) baseAltitude() float64 {
	comY := e.geom.CenterOfMass(e.st.Fuel).Y
	bottom := e.st.Orientation.BodyToWorld(transform.Vec3{Y: -comY})
	return e.st.Position.Y + bottom.Y
}

// Snapshot builds the read-only client view of the current state.
func (e *Engine) Snapshot() Snapshot {
	st := e.st
	mass := e.geom.Mass(st.Fuel)
	area := e.geom.CrossSectionalArea()
	vtA, vtN := aero.TerminalVelocityRange(mass, area, st.Position.Y)
	// +Inf marks vacuum; JSON cannot carry it, report 0 instead.
	if math.IsInf(vtA, 0) {
		vtA = 0
	}
	if math.IsInf(vtN, 0) {
		vtN = 0
	}

	return Snapshot{
		Time:            e.elapsed,
		Position:        st.Position.Array(),
		Velocity:        st.Velocity.Array(),
		Acceleration:    st.Acceleration.Array(),
		Orientation:     [4]float64{st.Orientation.W, st.Orientation.X, st.Orientation.Y, st.Orientation.Z},
		AngularVelocity: st.AngularVelocity.Array(),

		Altitude:        st.Position.Y,
		BaseAltitude:    math.Max(0, e.baseAltitude()),
		Speed:           st.Velocity.Norm(),
		VerticalSpeed:   st.Velocity.Y,
		HorizontalSpeed: math.Hypot(st.Velocity.X, st.Velocity.Z),
		TiltDeg:         dynamics.TiltAngle(st.Orientation) * 180 / math.Pi,

		Mass: mass,
		Fuel: st.Fuel,

		Throttle:     st.Throttle,
		GimbalPitch:  st.GimbalPitch,
		GimbalYaw:    st.GimbalYaw,
		GridFinPitch: st.GridFinPitch,
		GridFinYaw:   st.GridFinYaw,
		LegsDeployed: st.LegsDeployed,

		Phase:   st.Phase,
		Landed:  st.Landed,
		Crashed: st.Crashed,

		TouchdownSpeed: st.TouchdownSpeed,
		TouchdownTilt:  st.TouchdownTilt,

		TerminalVelocityAxial:  vtA,
		TerminalVelocityNormal: vtN,

		Rocket: RocketInfo{
			Height:      e.cfg.Rocket.Height,
			Diameter:    e.cfg.Rocket.Diameter,
			DryMass:     e.cfg.Rocket.DryMass,
			InitialFuel: e.cfg.Rocket.FuelMass,
			Thrust:      e.cfg.Rocket.Thrust,
			ISP:         e.cfg.Rocket.ISP,
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
