// Package scoring grades a completed landing. The score is a weighted
// sum of five buckets with a fixed maximum; a crash always scores 0.
package scoring

import (
	"math"

	"github.com/rickfu415/landing-control/internal/engine"
)

// Bucket maxima. They sum to MaxScore.
const (
	AccuracyMax = 3000
	VelocityMax = 2000
	FuelMax     = 2000
	AttitudeMax = 1500
	TimeMax     = 1500

	MaxScore = AccuracyMax + VelocityMax + FuelMax + AttitudeMax + TimeMax
)

// Grading references. Accuracy and attitude degrade linearly to zero
// at the landing safety thresholds; time holds full marks up to the
// fast reference and decays to zero at the slow one.
const (
	padRadius        = 25.0 // m
	maxSafeSpeed     = 2.0  // m/s vertical at touchdown
	maxSafeTilt      = 5.0  // degrees
	fastLandingTime  = 60.0 // s
	slowLandingTime  = 300.0
)

// Breakdown itemizes one landing's score.
type Breakdown struct {
	Accuracy int `json:"accuracy"`
	Velocity int `json:"velocity"`
	Fuel     int `json:"fuel"`
	Attitude int `json:"attitude"`
	Time     int `json:"time"`
	Total    int `json:"total"`
}

// Score grades the final state of a flight. Pure: same inputs, same
// score.
func Score(final engine.Snapshot, elapsed float64) Breakdown {
	if !final.Landed {
		return Breakdown{}
	}

	distance := math.Hypot(final.Position[0], final.Position[2])
	b := Breakdown{
		Accuracy: bucket(AccuracyMax, distance, padRadius),
		Velocity: bucket(VelocityMax, final.TouchdownSpeed, maxSafeSpeed),
		Attitude: bucket(AttitudeMax, final.TouchdownTilt, maxSafeTilt),
		Fuel:     fuelBucket(final),
		Time:     timeBucket(elapsed),
	}
	b.Total = b.Accuracy + b.Velocity + b.Fuel + b.Attitude + b.Time
	return b
}

// bucket scales a maximum by how far below the limit the value landed.
func bucket(max int, value, limit float64) int {
	if limit <= 0 {
		return 0
	}
	frac := 1 - value/limit
	return int(math.Round(float64(max) * clamp01(frac)))
}

func fuelBucket(final engine.Snapshot) int {
	if final.Rocket.InitialFuel <= 0 {
		return 0
	}
	return int(math.Round(FuelMax * clamp01(final.Fuel/final.Rocket.InitialFuel)))
}

func timeBucket(elapsed float64) int {
	if elapsed <= fastLandingTime {
		return TimeMax
	}
	frac := 1 - (elapsed-fastLandingTime)/(slowLandingTime-fastLandingTime)
	return int(math.Round(TimeMax * clamp01(frac)))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
