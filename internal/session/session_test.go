package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickfu415/landing-control/internal/engine"
	"github.com/rickfu415/landing-control/internal/geometry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg, err := geometry.Preset("falcon9_block5_landing")
	require.NoError(t, err)
	eng, err := engine.New(engine.Config{Rocket: cfg, Logger: testLogger()})
	require.NoError(t, err)
	return eng
}

func newSession(t *testing.T, mode Mode, altitude float64) *Session {
	t.Helper()
	s := New(testEngine(t), Options{
		Mode:          mode,
		StartAltitude: altitude,
		TickInterval:  time.Millisecond,
		TimeStep:      0.02,
		Logger:        testLogger(),
	})
	t.Cleanup(s.Close)
	return s
}

func TestSessionTicks(t *testing.T) {
	s := newSession(t, ModeManual, 4000)
	first := s.Snapshot()

	require.Eventually(t, func() bool {
		return s.Snapshot().Time > first.Time
	}, time.Second, 5*time.Millisecond, "tick loop never advanced time")

	assert.Less(t, s.Snapshot().Altitude, 4000.0)
}

func TestPauseHoldsState(t *testing.T) {
	s := newSession(t, ModeManual, 4000)

	require.Eventually(t, func() bool {
		return s.Snapshot().Time > 0
	}, time.Second, 5*time.Millisecond)

	s.Pause()
	assert.True(t, s.Paused())
	frozen := s.Snapshot().Time
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, s.Snapshot().Time)

	s.Resume()
	assert.False(t, s.Paused())
	require.Eventually(t, func() bool {
		return s.Snapshot().Time > frozen
	}, time.Second, 5*time.Millisecond)
}

func TestSessionIDsUnique(t *testing.T) {
	a := newSession(t, ModeManual, 4000)
	b := newSession(t, ModeManual, 4000)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}

func TestManualModeAppliesInput(t *testing.T) {
	s := newSession(t, ModeManual, 4000)
	throttle := 0.9
	s.SetInput(engine.Input{Throttle: &throttle})
	assert.Equal(t, 0.9, s.Snapshot().Throttle)
}

func TestAutonomousModeIgnoresInput(t *testing.T) {
	s := newSession(t, ModeAutonomous, 5000)
	throttle := 1.0
	s.SetInput(engine.Input{Throttle: &throttle})
	// At 5000 m guidance is in the entry phase: throttle stays 0.
	assert.Equal(t, 0.0, s.Snapshot().Throttle)
}

func TestAssistedModeIgnoresThrottleOnly(t *testing.T) {
	s := newSession(t, ModeAssisted, 5000)
	throttle := 1.0
	pitch := 3.0
	s.SetInput(engine.Input{Throttle: &throttle, GimbalPitch: &pitch})
	snap := s.Snapshot()
	assert.Equal(t, 0.0, snap.Throttle)
	assert.Equal(t, 3.0, snap.GimbalPitch)
}

func TestAutonomousFliesToTouchdown(t *testing.T) {
	if testing.Short() {
		t.Skip("full descent takes a while")
	}
	s := newSession(t, ModeAutonomous, 2500)

	require.Eventually(t, func() bool {
		done, _ := s.Finished()
		return done
	}, 90*time.Second, 100*time.Millisecond, "flight never finished")

	snap := s.Snapshot()
	require.True(t, snap.Landed, "autonomous descent crashed: touchdown %.2f m/s, tilt %.2f deg",
		snap.TouchdownSpeed, snap.TouchdownTilt)
	_, score := s.Finished()
	assert.Greater(t, score.Total, 0)

	// Recorder saw the whole flight.
	samples, events := s.Flight()
	assert.NotEmpty(t, samples)
	var sawTouchdown bool
	for _, ev := range events {
		if ev.Type == "touchdown" {
			sawTouchdown = true
		}
	}
	assert.True(t, sawTouchdown, "missing touchdown event: %v", events)
}

func TestSubscribeReceivesFrames(t *testing.T) {
	s := newSession(t, ModeManual, 4000)
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	select {
	case snap := <-ch:
		assert.Greater(t, snap.Time, 0.0)
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
}

func TestReset(t *testing.T) {
	s := newSession(t, ModeManual, 4000)
	require.Eventually(t, func() bool {
		return s.Snapshot().Time > 0.1
	}, time.Second, 5*time.Millisecond)

	s.Reset()
	snap := s.Snapshot()
	assert.InDelta(t, 4000, snap.Altitude, 50) // loop may have ticked already
	done, _ := s.Finished()
	assert.False(t, done)
	samples, _ := s.Flight()
	assert.LessOrEqual(t, len(samples), 2)
}

// TestResetAfterTouchdownRestartsLoop: a session that finished has no
// live tick goroutine; Reset must start a new one. Starting from 25 m
// at terminal velocity the flight ends within a tick, so a second
// Finished proves the restarted loop is actually stepping.
func TestResetAfterTouchdownRestartsLoop(t *testing.T) {
	s := newSession(t, ModeManual, 25)
	require.Eventually(t, func() bool {
		done, _ := s.Finished()
		return done
	}, time.Second, time.Millisecond)

	s.Reset()
	done, _ := s.Finished()
	assert.False(t, done)

	require.Eventually(t, func() bool {
		done, _ := s.Finished()
		return done
	}, time.Second, time.Millisecond, "tick loop not restarted after reset")
}

// TestConcurrentResetAndClose exercises the loop handoff under the
// race detector: a DELETE racing a reset on a just-finished session.
func TestConcurrentResetAndClose(t *testing.T) {
	for i := 0; i < 20; i++ {
		s := newSession(t, ModeManual, 25)
		require.Eventually(t, func() bool {
			done, _ := s.Finished()
			return done
		}, time.Second, time.Millisecond)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.Reset() }()
		go func() { defer wg.Done(); s.Close() }()
		wg.Wait()

		// Close again: must be idempotent whatever order won above.
		s.Close()
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(2)
	a := newSession(t, ModeManual, 4000)
	b := newSession(t, ModeManual, 4000)

	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	assert.Equal(t, 2, r.Len())

	// Cap reached.
	c := newSession(t, ModeManual, 4000)
	assert.Error(t, r.Add(c))

	got, err := r.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	r.Remove(a.ID)
	_, err = r.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, r.Len())

	// Removing twice is a no-op.
	r.Remove(a.ID)

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
}
