// Package recorder captures flight telemetry: periodically sampled
// state snapshots plus discrete flight events, for replay and
// post-flight analysis.
package recorder

import (
	"math"

	"github.com/rickfu415/landing-control/internal/engine"
)

// Event types.
const (
	EventEngineStart = "engine_start"
	EventEngineStop  = "engine_stop"
	EventLandingBurn = "landing_burn"
	EventLegsDeploy  = "legs_deploy"
	EventTouchdown   = "touchdown"
)

// Event marks a discrete moment in the flight.
type Event struct {
	Time     float64 `json:"time"`
	Type     string  `json:"type"`
	Altitude float64 `json:"altitude"`
	Speed    float64 `json:"speed"`
}

// Recorder accumulates samples and events for one flight. Sampling is
// adaptive: the coarse interval applies while coasting, the fine one
// while the engine is burning (the interesting part of the descent).
type Recorder struct {
	coarse float64
	fine   float64

	samples []engine.Snapshot
	events  []Event

	lastSampled float64
	havePrev    bool
	prev        engine.Snapshot
}

// New returns a recorder with the default sampling intervals: 0.2 s
// coasting, 0.05 s under power.
func New() *Recorder {
	return &Recorder{coarse: 0.2, fine: 0.05}
}

// Record observes one tick's snapshot, detecting event transitions and
// sampling at the current interval.
func (r *Recorder) Record(snap engine.Snapshot) {
	r.detectEvents(snap)

	interval := r.coarse
	if snap.Throttle > 0 {
		interval = r.fine
	}
	if !r.havePrev || snap.Time-r.lastSampled >= interval {
		r.samples = append(r.samples, snap)
		r.lastSampled = snap.Time
	}

	r.prev = snap
	r.havePrev = true
}

func (r *Recorder) detectEvents(snap engine.Snapshot) {
	if !r.havePrev {
		return
	}
	if r.prev.Throttle == 0 && snap.Throttle > 0 {
		r.addEvent(EventEngineStart, snap)
	}
	if r.prev.Throttle > 0 && snap.Throttle == 0 && !snap.Landed && !snap.Crashed {
		r.addEvent(EventEngineStop, snap)
	}
	if r.prev.Phase != engine.PhaseLandingBurn && snap.Phase == engine.PhaseLandingBurn {
		r.addEvent(EventLandingBurn, snap)
	}
	if !r.prev.LegsDeployed && snap.LegsDeployed {
		r.addEvent(EventLegsDeploy, snap)
	}
}

func (r *Recorder) addEvent(typ string, snap engine.Snapshot) {
	r.events = append(r.events, Event{
		Time:     snap.Time,
		Type:     typ,
		Altitude: snap.Altitude,
		Speed:    snap.Speed,
	})
}

// Touchdown records the terminal event and the final sample. The
// snapshot's own touchdown fields carry the contact speed; the event's
// Speed field reports it rather than the (already zeroed) velocity.
func (r *Recorder) Touchdown(snap engine.Snapshot) {
	r.events = append(r.events, Event{
		Time:     snap.Time,
		Type:     EventTouchdown,
		Altitude: snap.Altitude,
		Speed:    snap.TouchdownSpeed,
	})
	r.samples = append(r.samples, snap)
	r.lastSampled = snap.Time
	r.prev = snap
	r.havePrev = true
}

// Statistics summarizes one flight from the recorded samples.
// Throttle figures are percentages; FuelEfficiency is the share of
// propellant still aboard at the end.
type Statistics struct {
	TotalTime          float64 `json:"total_time"`
	InitialFuel        float64 `json:"initial_fuel"`
	FinalFuel          float64 `json:"final_fuel"`
	FuelUsed           float64 `json:"fuel_used"`
	FuelEfficiency     float64 `json:"fuel_efficiency"`
	EngineUsagePercent float64 `json:"engine_usage_percent"`
	AvgThrottle        float64 `json:"avg_throttle"`
	MaxThrottle        float64 `json:"max_throttle"`
	MaxSpeed           float64 `json:"max_speed"`
	MaxTiltDeg         float64 `json:"max_tilt_deg"`
	GimbalUsagePercent float64 `json:"gimbal_usage_percent"`
	Samples            int     `json:"samples"`
	Events             int     `json:"events"`
}

// Statistics computes the flight summary over everything recorded so
// far. Zero value when nothing has been sampled yet.
func (r *Recorder) Statistics() Statistics {
	if len(r.samples) == 0 {
		return Statistics{}
	}

	first := r.samples[0]
	last := r.samples[len(r.samples)-1]
	st := Statistics{
		TotalTime:   last.Time,
		InitialFuel: first.Fuel,
		FinalFuel:   last.Fuel,
		FuelUsed:    first.Fuel - last.Fuel,
		Samples:     len(r.samples),
		Events:      len(r.events),
	}
	if first.Fuel > 0 {
		st.FuelEfficiency = last.Fuel / first.Fuel * 100
	}

	var burning, gimbaling int
	var throttleSum, maxThrottle float64
	for _, s := range r.samples {
		if s.Throttle > 0 {
			burning++
			throttleSum += s.Throttle
		}
		if math.Abs(s.GimbalPitch) > 0.1 || math.Abs(s.GimbalYaw) > 0.1 {
			gimbaling++
		}
		maxThrottle = math.Max(maxThrottle, s.Throttle)
		st.MaxSpeed = math.Max(st.MaxSpeed, s.Speed)
		st.MaxTiltDeg = math.Max(st.MaxTiltDeg, s.TiltDeg)
	}

	n := float64(len(r.samples))
	st.EngineUsagePercent = float64(burning) / n * 100
	st.GimbalUsagePercent = float64(gimbaling) / n * 100
	st.MaxThrottle = maxThrottle * 100
	if burning > 0 {
		st.AvgThrottle = throttleSum / float64(burning) * 100
	}
	return st
}

// Samples returns the recorded snapshots in time order.
func (r *Recorder) Samples() []engine.Snapshot {
	return r.samples
}

// Events returns the recorded events in time order.
func (r *Recorder) Events() []Event {
	return r.events
}

// Reset discards all recorded data.
func (r *Recorder) Reset() {
	r.samples = nil
	r.events = nil
	r.lastSampled = 0
	r.havePrev = false
	r.prev = engine.Snapshot{}
}
