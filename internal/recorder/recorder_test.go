package recorder

import (
	"math"
	"testing"

	"github.com/rickfu415/landing-control/internal/engine"
)

func snapAt(t, altitude, throttle float64) engine.Snapshot {
	return engine.Snapshot{
		Time:     t,
		Altitude: altitude,
		Position: [3]float64{0, altitude, 0},
		Throttle: throttle,
		Phase:    engine.PhaseDescent,
	}
}

func TestAdaptiveSampling(t *testing.T) {
	r := New()

	// 1 s of coasting at 10 ms ticks: ~5 coarse samples.
	for i := 0; i <= 100; i++ {
		r.Record(snapAt(float64(i)*0.01, 2000, 0))
	}
	coastCount := len(r.Samples())
	if coastCount < 4 || coastCount > 8 {
		t.Errorf("coast samples = %d, want ~5", coastCount)
	}

	// 1 s under power: roughly 4x denser.
	for i := 101; i <= 200; i++ {
		r.Record(snapAt(float64(i)*0.01, 1000, 0.8))
	}
	burnCount := len(r.Samples()) - coastCount
	if burnCount < 15 || burnCount > 25 {
		t.Errorf("burn samples = %d, want ~20", burnCount)
	}
}

func TestEventDetection(t *testing.T) {
	r := New()
	r.Record(snapAt(0, 4000, 0))
	r.Record(snapAt(0.01, 3999, 0.6)) // ignition

	s := snapAt(0.02, 499, 0.6)
	s.Phase = engine.PhaseLandingBurn
	r.Record(s)

	s = snapAt(0.03, 199, 0.6)
	s.Phase = engine.PhaseLandingBurn
	s.LegsDeployed = true
	r.Record(s)

	var types []string
	for _, ev := range r.Events() {
		types = append(types, ev.Type)
	}
	want := []string{EventEngineStart, EventLandingBurn, EventLegsDeploy}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestEngineStopNotEmittedAtTouchdown(t *testing.T) {
	r := New()
	r.Record(snapAt(0, 100, 0.8))

	final := snapAt(0.01, 0, 0)
	final.Landed = true
	final.Phase = engine.PhaseLanded
	final.TouchdownSpeed = 1.2
	r.Record(final)
	r.Touchdown(final)

	for _, ev := range r.Events() {
		if ev.Type == EventEngineStop {
			t.Errorf("spurious engine_stop at touchdown: %v", r.Events())
		}
	}
	last := r.Events()[len(r.Events())-1]
	if last.Type != EventTouchdown || last.Speed != 1.2 {
		t.Errorf("touchdown event = %+v", last)
	}
}

func TestStatistics(t *testing.T) {
	if got := New().Statistics(); got != (Statistics{}) {
		t.Fatalf("empty recorder statistics = %+v, want zero", got)
	}

	r := New()
	// Samples a second apart so every one survives the coarse interval.
	r.Record(engine.Snapshot{Time: 0, Fuel: 1000, Speed: 50, TiltDeg: 1})
	r.Record(engine.Snapshot{Time: 1, Fuel: 900, Throttle: 0.6, Speed: 80, TiltDeg: 2, GimbalPitch: 0.5})
	r.Record(engine.Snapshot{Time: 2, Fuel: 800, Throttle: 1.0, Speed: 40, TiltDeg: 3})
	r.Record(engine.Snapshot{Time: 3, Fuel: 700, Speed: 5, TiltDeg: 0.5})

	st := r.Statistics()
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"total_time", st.TotalTime, 3},
		{"initial_fuel", st.InitialFuel, 1000},
		{"final_fuel", st.FinalFuel, 700},
		{"fuel_used", st.FuelUsed, 300},
		{"fuel_efficiency", st.FuelEfficiency, 70},
		{"engine_usage_percent", st.EngineUsagePercent, 50},
		{"avg_throttle", st.AvgThrottle, 80},
		{"max_throttle", st.MaxThrottle, 100},
		{"gimbal_usage_percent", st.GimbalUsagePercent, 25},
		{"max_speed", st.MaxSpeed, 80},
		{"max_tilt_deg", st.MaxTiltDeg, 3},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %g, want %g", c.name, c.got, c.want)
		}
	}
	if st.Samples != 4 {
		t.Errorf("samples = %d, want 4", st.Samples)
	}
	// engine_start at t=1, engine_stop at t=3.
	if st.Events != 2 {
		t.Errorf("events = %d, want 2", st.Events)
	}
}

func TestReset(t *testing.T) {
	r := New()
	r.Record(snapAt(0, 2000, 0.5))
	r.Touchdown(snapAt(1, 0, 0))
	r.Reset()
	if len(r.Samples()) != 0 || len(r.Events()) != 0 {
		t.Errorf("reset left data: %d samples, %d events", len(r.Samples()), len(r.Events()))
	}
}
