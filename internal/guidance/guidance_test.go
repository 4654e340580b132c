package guidance

import (
	"math"
	"testing"

	"github.com/rickfu415/landing-control/internal/engine"
)

func snapAt(altitude, verticalSpeed, mass float64) engine.Snapshot {
	return engine.Snapshot{
		Altitude:      altitude,
		BaseAltitude:  altitude,
		VerticalSpeed: verticalSpeed,
		Position:      [3]float64{0, altitude, 0},
		Velocity:      [3]float64{0, verticalSpeed, 0},
		Mass:          mass,
		Rocket:        engine.RocketInfo{Thrust: 845000, ISP: 282},
	}
}

func TestBurnAltitudeScaling(t *testing.T) {
	g := NewDefault()

	a50 := g.BurnAltitude(30000, 50, 845000)
	a100 := g.BurnAltitude(30000, 100, 845000)
	if a100 <= a50 {
		t.Errorf("burn altitude should grow with speed: %g vs %g", a50, a100)
	}
	// Quadratic in speed: doubling v quadruples the stopping distance.
	if math.Abs(a100/a50-4) > 1e-9 {
		t.Errorf("burn altitude ratio = %g, want 4", a100/a50)
	}

	// Lighter vehicle decelerates harder, ignites lower.
	light := g.BurnAltitude(28000, 80, 845000)
	heavy := g.BurnAltitude(40000, 80, 845000)
	if light >= heavy {
		t.Errorf("burn altitude should shrink with deceleration: light %g, heavy %g", light, heavy)
	}
}

func TestBurnAltitudeCannotStop(t *testing.T) {
	g := NewDefault()
	// Min throttle thrust 338 kN < weight of 100 t: no possible stop.
	got := g.BurnAltitude(100000, 80, 845000)
	if !math.IsInf(got, 1) {
		t.Errorf("burn altitude = %g, want +Inf", got)
	}

	// No ignition point exists: guidance reports coast all the way down.
	cmd := g.Update(snapAt(200, -80, 100000))
	if cmd.Phase != PhaseCoast || cmd.Throttle != 0 {
		t.Errorf("cannot-stop vehicle should coast, got %+v", cmd)
	}
}

func TestTargetDescentSpeedProfile(t *testing.T) {
	tests := []struct {
		altitude float64
		want     float64
	}{
		{5, 1.5},
		{10, 1.5},
		{100, 20},
		{400, 40},
		{10000, 100}, // capped
	}
	for _, tt := range tests {
		if got := TargetDescentSpeed(tt.altitude); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("target speed at %gm = %g, want %g", tt.altitude, got, tt.want)
		}
	}
}

func TestUpdatePhases(t *testing.T) {
	g := NewDefault()

	cmd := g.Update(snapAt(5000, -120, 30000))
	if cmd.Phase != PhaseEntry || cmd.Throttle != 0 {
		t.Errorf("entry: %+v", cmd)
	}

	// Below entry altitude but above the ignition point.
	cmd = g.Update(snapAt(2500, -30, 30000))
	if cmd.Phase != PhaseCoast || cmd.Throttle != 0 {
		t.Errorf("coast: %+v", cmd)
	}

	// Fast descent low down: well inside the burn envelope.
	cmd = g.Update(snapAt(300, -120, 30000))
	if cmd.Phase != PhaseLandingBurn {
		t.Errorf("burn phase: %+v", cmd)
	}
	if cmd.Throttle < 0.40 || cmd.Throttle > 1 {
		t.Errorf("burn throttle = %g, want within [0.40, 1]", cmd.Throttle)
	}
}

func TestBurnLatchesOn(t *testing.T) {
	g := NewDefault()
	cmd := g.Update(snapAt(300, -120, 30000))
	if cmd.Phase != PhaseLandingBurn {
		t.Fatalf("expected ignition, got %+v", cmd)
	}
	if g.BurnStartAltitude() != 300 {
		t.Errorf("burn start altitude = %g, want 300", g.BurnStartAltitude())
	}

	// Now descending slower than any coast condition would require:
	// the latch keeps the burn phase active.
	cmd = g.Update(snapAt(250, -5, 30000))
	if cmd.Phase != PhaseLandingBurn {
		t.Errorf("burn did not latch: %+v", cmd)
	}

	g.Reset()
	cmd = g.Update(snapAt(2500, -30, 30000))
	if cmd.Phase != PhaseCoast {
		t.Errorf("reset did not clear the latch: %+v", cmd)
	}
}

func TestThrottleRespondsToSpeedError(t *testing.T) {
	g := NewDefault()
	g.Update(snapAt(300, -120, 30000)) // ignite

	fast := g.throttleCommand(30000, 200, 80, 845000)
	slow := g.throttleCommand(30000, 200, 30, 845000)
	if fast <= slow {
		t.Errorf("faster descent should command more throttle: %g vs %g", fast, slow)
	}

	// Descending at exactly the target: thrust = m·g, hover throttle.
	target := TargetDescentSpeed(200)
	hover := g.throttleCommand(40000, 200, target, 845000)
	want := 40000 * 9.80665 / 845000
	if math.Abs(hover-want) > 1e-9 {
		t.Errorf("hover throttle = %g, want %g", hover, want)
	}
}

func TestThrottleFloorsAtEngineMinimum(t *testing.T) {
	g := NewDefault()
	// Very light vehicle barely needs thrust, still floors at min.
	got := g.throttleCommand(5000, 200, TargetDescentSpeed(200), 845000)
	if got != 0.40 {
		t.Errorf("throttle = %g, want engine minimum 0.40", got)
	}
}

func TestGimbalCorrectsLateralDrift(t *testing.T) {
	g := NewDefault()
	snap := snapAt(200, -40, 30000)
	g.Update(snap) // ignite

	// Drifting toward +X: guidance must tip thrust toward -X.
	snap.Velocity[0] = 10
	snap.Position[0] = 30
	snap.Throttle = 0.8
	cmd := g.Update(snap)
	if cmd.GimbalPitch >= 0 {
		t.Errorf("gimbal pitch = %g, want negative to arrest +X drift", cmd.GimbalPitch)
	}
	if math.Abs(cmd.GimbalPitch) > 5 || math.Abs(cmd.GimbalYaw) > 5 {
		t.Errorf("gimbal exceeded range: %+v", cmd)
	}
}

func TestGimbalCutoffNearGround(t *testing.T) {
	g := NewDefault()
	g.Update(snapAt(300, -120, 30000)) // ignite

	snap := snapAt(3, -1.2, 28000)
	snap.Velocity[0] = 2
	cmd := g.Update(snap)
	if cmd.GimbalPitch != 0 || cmd.GimbalYaw != 0 {
		t.Errorf("gimbal active below cutoff: %+v", cmd)
	}
}

func TestPIDFirstCallProportional(t *testing.T) {
	p := NewPID(1, 0, 0, 10, 100)
	if got := p.Update(1, 0, 0.02); got != 1.0 {
		t.Errorf("first-call P output = %g, want 1.0", got)
	}
}

func TestPIDIntegralClamp(t *testing.T) {
	p := NewPID(0, 1, 0, 2, 100)
	var out float64
	for i := 0; i < 1000; i++ {
		out = p.Update(10, 0, 0.1)
	}
	if out > 2+1e-9 {
		t.Errorf("integral output = %g, want clamped at 2", out)
	}
}

func TestPIDDerivativeDamping(t *testing.T) {
	p := NewPID(0, 0, 1, 10, 100)
	p.Update(0, 0, 0.1)
	// Error jumps 0 → 1 over 0.1 s: derivative = 10.
	if got := p.Update(1, 0, 0.1); math.Abs(got-10) > 1e-9 {
		t.Errorf("derivative output = %g, want 10", got)
	}
}

func TestPIDOutputBounds(t *testing.T) {
	p := NewPID(100, 0, 0, 10, 5)
	if got := p.Update(10, 0, 0.1); got != 5 {
		t.Errorf("output = %g, want clamp at 5", got)
	}
	if got := p.Update(-10, 0, 0.1); got != -5 {
		t.Errorf("output = %g, want clamp at -5", got)
	}
}

func TestPIDReset(t *testing.T) {
	p := NewPID(0, 1, 1, 10, 100)
	p.Update(5, 0, 0.1)
	p.Update(5, 0, 0.1)
	p.Reset()
	// After reset: integral = 1·0.1 = 0.1, derivative suppressed.
	if got := p.Update(1, 0, 0.1); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("post-reset output = %g, want 0.1", got)
	}
}

func TestAttitudeControllerIndependentAxes(t *testing.T) {
	a := NewAttitudeController()
	pitch, yaw, roll := a.Update(1, 0, 0, 0, 0, 0, 0.02)
	if pitch == 0 {
		t.Errorf("pitch axis inert")
	}
	if yaw != 0 || roll != 0 {
		t.Errorf("cross-axis leakage: yaw %g roll %g", yaw, roll)
	}
	a.Reset()
	_, yaw, _ = a.Update(0, 0, 2, 0, 0, 0, 0.02)
	if yaw == 0 {
		t.Errorf("yaw axis inert after reset")
	}
}
