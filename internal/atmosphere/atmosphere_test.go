package atmosphere

import (
	"math"
	"testing"
)

// TestDensityAnchors checks the model against the ISA reference points
// the rest of the simulation depends on.
func TestDensityAnchors(t *testing.T) {
	tests := []struct {
		name     string
		altitude float64
		want     float64
		tol      float64
	}{
		{name: "sea level", altitude: 0, want: 1.225, tol: 0.005},
		{name: "negative altitude clamps to sea level", altitude: -100, want: 1.225, tol: 0.005},
		// ISA tables: ~0.3639 kg/m³ at the tropopause.
		{name: "tropopause", altitude: 11000, want: 0.3639, tol: 0.01},
		{name: "above vacuum cutoff", altitude: 90000, want: 0, tol: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Density(tt.altitude)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Density(%g) = %.4f, want %.4f ± %g", tt.altitude, got, tt.want, tt.tol)
			}
		})
	}
}

func TestTemperatureProfile(t *testing.T) {
	if got := Temperature(0); math.Abs(got-288.15) > 1e-9 {
		t.Errorf("Temperature(0) = %g, want 288.15", got)
	}
	// Constant above the tropopause.
	if got := Temperature(20000); got != 216.65 {
		t.Errorf("Temperature(20000) = %g, want 216.65", got)
	}
	// Continuity at the boundary.
	below := Temperature(TropopauseAltitude)
	if math.Abs(below-TropopauseTemp) > 0.01 {
		t.Errorf("temperature discontinuous at tropopause: %g vs %g", below, TropopauseTemp)
	}
}

func TestPressureContinuityAtTropopause(t *testing.T) {
	below := Pressure(TropopauseAltitude - 1)
	above := Pressure(TropopauseAltitude + 1)
	// Both formulas should agree to well under 0.1% across the seam.
	if math.Abs(below-above)/below > 1e-3 {
		t.Errorf("pressure jump at tropopause: below=%g above=%g", below, above)
	}
}

func TestSpeedOfSoundSeaLevel(t *testing.T) {
	// ~340 m/s at 15°C.
	got := SpeedOfSound(0)
	if math.Abs(got-340.3) > 1.0 {
		t.Errorf("SpeedOfSound(0) = %g, want ~340.3", got)
	}
}

// TestDensityMonotonic guards the integrator's assumption that density
// only decreases with altitude.
func TestDensityMonotonic(t *testing.T) {
	prev := Density(0)
	for h := 500.0; h <= 80000; h += 500 {
		d := Density(h)
		if d > prev {
			t.Fatalf("density increased at %gm: %g > %g", h, d, prev)
		}
		prev = d
	}
}
