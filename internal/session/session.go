// Package session wraps one engine instance per client: a locked
// tick driver, control-mode handling, telemetry recording, and
// post-flight scoring. A Registry keys live sessions by id.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickfu415/landing-control/internal/engine"
	"github.com/rickfu415/landing-control/internal/guidance"
	"github.com/rickfu415/landing-control/internal/metrics"
	"github.com/rickfu415/landing-control/internal/recorder"
	"github.com/rickfu415/landing-control/internal/scoring"
)

// Mode selects who flies the vehicle.
type Mode string

const (
	// ModeManual: the client supplies every input.
	ModeManual Mode = "manual"
	// ModeAutonomous: guidance supplies every input.
	ModeAutonomous Mode = "autonomous"
	// ModeAssisted: guidance supplies throttle, the client steers.
	ModeAssisted Mode = "assisted"
)

// ValidMode reports whether m names a control mode.
func ValidMode(m Mode) bool {
	return m == ModeManual || m == ModeAutonomous || m == ModeAssisted
}

// Options configures a new session.
type Options struct {
	Mode          Mode
	StartAltitude float64 // m, default 4000
	TickInterval  time.Duration
	TimeStep      float64 // simulated seconds per tick, default 0.02
	Logger        *slog.Logger
}

// Session drives one engine at a fixed rate on its own goroutine. All
// engine access goes through the session mutex, so HTTP handlers and
// the tick loop never race.
type Session struct {
	ID      string
	Mode    Mode
	Created time.Time

	mu       sync.Mutex
	eng      *engine.Engine
	guid     *guidance.System
	rec      *recorder.Recorder
	last     engine.Snapshot
	score    scoring.Breakdown
	finished bool
	paused   bool

	tickInterval  time.Duration
	timeStep      float64
	startAltitude float64
	log           *slog.Logger

	subsMu sync.Mutex
	subs   map[chan engine.Snapshot]struct{}

	// Loop lifecycle, guarded by mu. gen identifies the current tick
	// loop; a superseded loop sees the mismatch and exits.
	cancel context.CancelFunc
	done   chan struct{}
	gen    int
	closed bool
}

// New builds a session around the given engine and starts its tick
// loop.
func New(eng *engine.Engine, opts Options) *Session {
	if opts.StartAltitude == 0 {
		opts.StartAltitude = 4000
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = 20 * time.Millisecond
	}
	if opts.TimeStep == 0 {
		opts.TimeStep = 0.02
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if !ValidMode(opts.Mode) {
		opts.Mode = ModeManual
	}

	s := &Session{
		ID:            uuid.NewString(),
		Mode:          opts.Mode,
		Created:       time.Now(),
		eng:           eng,
		guid:          guidance.NewDefault(),
		rec:           recorder.New(),
		tickInterval:  opts.TickInterval,
		timeStep:      opts.TimeStep,
		startAltitude: opts.StartAltitude,
		subs:          make(map[chan engine.Snapshot]struct{}),
	}
	s.log = opts.Logger.With("session_id", s.ID)

	eng.Reset(opts.StartAltitude)
	s.last = eng.Snapshot()

	s.mu.Lock()
	s.startLoop()
	s.mu.Unlock()
	return s
}

// startLoop launches a fresh tick goroutine. Callers must hold s.mu.
func (s *Session) startLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.gen++
	go s.run(ctx, s.done, s.gen)
}

func (s *Session) run(ctx context.Context, done chan struct{}, gen int) {
	defer close(done)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.tick(gen) {
				return
			}
		}
	}
}

// tick advances one step; returns true when the flight ends or the
// loop has been superseded by a reset. A paused session holds its
// state and broadcasts nothing.
func (s *Session) tick(gen int) bool {
	s.mu.Lock()
	if gen != s.gen || s.finished {
		s.mu.Unlock()
		return true
	}
	if s.paused {
		s.mu.Unlock()
		return false
	}

	if s.Mode != ModeManual {
		cmd := s.guid.Update(s.last)
		in := engine.Input{Throttle: &cmd.Throttle}
		if s.Mode == ModeAutonomous {
			in.GimbalPitch = &cmd.GimbalPitch
			in.GimbalYaw = &cmd.GimbalYaw
		}
		s.eng.SetInput(in)
	}

	start := time.Now()
	snap := s.eng.Step(s.timeStep)
	metrics.ObserveTickDuration(time.Since(start))
	s.rec.Record(snap)
	metrics.IncTicks()
	s.last = snap

	terminal := snap.Landed || snap.Crashed
	if terminal {
		s.finished = true
		s.rec.Touchdown(snap)
		s.score = scoring.Score(snap, snap.Time)
		metrics.IncLanding(snap.Landed)
		s.log.Info("flight finished",
			"landed", snap.Landed,
			"score", s.score.Total,
			"touchdown_speed", snap.TouchdownSpeed,
			"elapsed", snap.Time,
		)
	}
	s.mu.Unlock()

	s.broadcast(snap)
	return terminal
}

func (s *Session) broadcast(snap engine.Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Slow consumer: drop the frame rather than stall the loop.
		}
	}
}

// Subscribe registers a snapshot channel. The caller must Unsubscribe
// when done.
func (s *Session) Subscribe() chan engine.Snapshot {
	ch := make(chan engine.Snapshot, 16)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe.
func (s *Session) Unsubscribe(ch chan engine.Snapshot) {
	s.subsMu.Lock()
	delete(s.subs, ch)
	s.subsMu.Unlock()
}

// SetInput forwards a control command. Guidance owns the fields the
// current mode reserves: autonomous sessions ignore client input
// entirely, assisted sessions ignore client throttle.
func (s *Session) SetInput(in engine.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.Mode {
	case ModeAutonomous:
		return
	case ModeAssisted:
		in.Throttle = nil
	}
	s.eng.SetInput(in)
}

// Snapshot returns the current state, including input applied since
// the last tick.
func (s *Session) Snapshot() engine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Snapshot()
}

// Pause suspends the tick loop without losing state.
func (s *Session) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume continues a paused flight. No-op on a running or finished
// session.
func (s *Session) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Paused reports whether the tick loop is suspended.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Finished reports whether the flight has ended, with its score.
func (s *Session) Finished() (bool, scoring.Breakdown) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished, s.score
}

// Flight returns the recorded telemetry. Valid at any point in the
// flight; complete after Finished reports true.
func (s *Session) Flight() ([]engine.Snapshot, []recorder.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Samples(), s.rec.Events()
}

// Statistics summarizes the recorded flight so far.
func (s *Session) Statistics() recorder.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Statistics()
}

// Reset restarts the flight from the configured altitude. A finished
// session becomes live again: its exited tick loop is replaced with a
// fresh one.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasFinished := s.finished
	s.eng.Reset(s.startAltitude)
	s.guid.Reset()
	s.rec.Reset()
	s.finished = false
	s.paused = false
	s.score = scoring.Breakdown{}
	s.last = s.eng.Snapshot()

	if wasFinished && !s.closed {
		// The old loop exits at touchdown (or on the generation bump,
		// if it has one tick still in flight).
		s.cancel()
		s.startLoop()
	}
}

// Close stops the tick loop and waits for it to exit. Safe to call
// more than once and concurrently with Reset.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}
