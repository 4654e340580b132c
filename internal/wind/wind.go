// Package wind models a stochastic horizontal wind field: Beaufort
// scale base speed, exponential decay with altitude, and smooth
// time-varying magnitude/direction with random turbulence on top.
package wind

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rickfu415/landing-control/internal/transform"
)

// beaufortScale maps Beaufort levels 1-9 to their speed band in m/s.
// The band midpoint is the model's base speed.
var beaufortScale = [10][2]float64{
	1: {0.5, 1.5},   // light air
	2: {1.6, 3.3},   // light breeze
	3: {3.4, 5.4},   // gentle breeze
	4: {5.5, 7.9},   // moderate breeze
	5: {8.0, 10.7},  // fresh breeze
	6: {10.8, 13.8}, // strong breeze
	7: {13.9, 17.1}, // near gale
	8: {17.2, 20.7}, // gale
	9: {20.8, 24.4}, // strong gale
}

// LevelSpeed returns the base wind speed for a Beaufort level, the
// midpoint of its band.
func LevelSpeed(level int) (float64, error) {
	if level < 1 || level > 9 {
		return 0, fmt.Errorf("wind level must be between 1 and 9, got %d", level)
	}
	band := beaufortScale[level]
	return (band[0] + band[1]) / 2, nil
}

// Config controls the wind model. The zero value disables wind.
type Config struct {
	Enabled            bool
	Level              int     // Beaufort 1-9; 0 disables
	BaseDirection      float64 // radians, 0 = +X, toward +Z
	ScaleHeight        float64 // m, altitude decay constant
	TurbulenceStrength float64 // 0-1
	VariationPeriod    float64 // s, period of the smooth variation
	DirectionVariation float64 // radians, max smooth direction swing

	// Seed fixes the random source for reproducible runs. Zero means
	// an unseeded (time-derived) source.
	Seed int64
}

// DefaultConfig returns the standard wind parameters for a given
// Beaufort level (0 disables wind entirely).
func DefaultConfig(level int) Config {
	return Config{
		Enabled:            level > 0,
		Level:              level,
		ScaleHeight:        1500,
		TurbulenceStrength: 0.3,
		VariationPeriod:    30,
		DirectionVariation: math.Pi / 3,
	}
}

// Model is the mutable wind state for one session. Not safe for
// concurrent use; each session owns its own instance.
type Model struct {
	cfg  Config
	time float64
	rng  *rand.Rand

	speedPhase     float64
	directionPhase float64
	speedAmplitude float64
	directionAmpl  float64
}

// New creates a wind model. The random phases are drawn immediately,
// so two models with the same nonzero seed produce identical wind.
func New(cfg Config) *Model {
	m := &Model{cfg: cfg}
	if cfg.Seed != 0 {
		m.rng = rand.New(rand.NewSource(cfg.Seed))
	} else {
		m.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	m.initVariations()
	return m
}

func (m *Model) initVariations() {
	m.speedPhase = m.rng.Float64() * 2 * math.Pi
	m.directionPhase = m.rng.Float64() * 2 * math.Pi
	m.speedAmplitude = m.cfg.TurbulenceStrength * 0.2
	m.directionAmpl = m.cfg.DirectionVariation * m.cfg.TurbulenceStrength
}

// Config returns the model configuration.
func (m *Model) Config() Config {
	return m.cfg
}

// Advance moves the model's internal clock forward. Skipped entirely
// when wind is disabled.
func (m *Model) Advance(dt float64) {
	if !m.cfg.Enabled {
		return
	}
	m.time += dt
}

// Reset rewinds the clock and redraws the random phase parameters. A
// seeded model re-seeds first, so each run after a reset replays the
// same wind as a freshly built model.
func (m *Model) Reset() {
	m.time = 0
	if m.cfg.Seed != 0 {
		m.rng = rand.New(rand.NewSource(m.cfg.Seed))
	}
	m.initVariations()
}

// uniform returns a draw from [-1, 1).
func (m *Model) uniform() float64 {
	return m.rng.Float64()*2 - 1
}

// Velocity returns the wind vector at the given altitude in the world
// frame. The vertical component is always zero.
func (m *Model) Velocity(altitude float64) transform.Vec3 {
	if !m.cfg.Enabled || m.cfg.Level <= 0 {
		return transform.Vec3{}
	}
	if altitude < 0 {
		altitude = 0
	}

	baseSpeed, err := LevelSpeed(m.cfg.Level)
	if err != nil {
		return transform.Vec3{}
	}

	timeFactor := 2 * math.Pi * m.time / m.cfg.VariationPeriod

	// Smooth sinusoidal magnitude modulation plus high-frequency noise.
	magnitude := 1 + m.speedAmplitude*math.Sin(timeFactor+m.speedPhase)
	magnitude += m.uniform() * m.cfg.TurbulenceStrength * 0.1

	speed := baseSpeed * magnitude * math.Exp(-altitude/m.cfg.ScaleHeight)
	if speed < 0 {
		speed = 0
	}

	// Direction wanders at a different frequency than the magnitude.
	direction := m.cfg.BaseDirection
	direction += m.directionAmpl * math.Sin(timeFactor*0.7+m.directionPhase)
	direction += m.uniform() * m.cfg.TurbulenceStrength * 0.2

	return transform.Vec3{
		X: speed * math.Cos(direction),
		Z: speed * math.Sin(direction),
	}
}

// Speed returns the wind speed magnitude at the given altitude.
func (m *Model) Speed(altitude float64) float64 {
	return m.Velocity(altitude).Norm()
}

// RelativeVelocity returns the vehicle velocity relative to the air
// mass, v - wind(h).
func (m *Model) RelativeVelocity(velocity transform.Vec3, altitude float64) transform.Vec3 {
	if !m.cfg.Enabled {
		return velocity
	}
	return velocity.Sub(m.Velocity(altitude))
}
