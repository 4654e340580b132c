package geometry

import (
	"fmt"
	"math"
	"sort"
)

// Standard gravity, shared with the atmosphere package; duplicated
// here to keep the preset solver free of package cycles.
const gravity = 9.80665

// estimateTerminalVelocity is the coarse terminal-velocity estimate
// used only to size landing fuel: simplified ISA density power law and
// a fixed subsonic axial Cd. The flight model uses the full solver in
// the aero package instead.
func estimateTerminalVelocity(totalMass, diameter, altitude float64) float64 {
	const (
		seaLevelDensity = 1.225
		seaLevelTemp    = 288.15
		tempLapse       = 0.0065
		cd              = 0.6
	)
	tempAtAlt := seaLevelTemp - tempLapse*altitude
	density := seaLevelDensity * math.Pow(tempAtAlt/seaLevelTemp, 4.256)
	area := math.Pi * (diameter / 2) * (diameter / 2)
	return math.Sqrt(2 * totalMass * gravity / (density * area * cd))
}

// LandingFuel sizes the landing propellant for a vehicle: fuel to kill
// terminal velocity from 5000 m, accounting for gravity losses and the
// mass change during the burn, plus an allowance for the throttled
// descent after the main burn, times a safety margin. Iterated to a
// fixed point (terminal velocity depends on total mass, which depends
// on fuel). The result is capped so the min-throttle thrust-to-weight
// ratio stays above one at full load; an overfueled vehicle could
// never check its descent once lit. Rounded to the nearest 100 kg.
func LandingFuel(dryMass, thrustKN, isp, diameter, safetyMargin float64) float64 {
	const (
		initialAltitude = 5000.0
		// Throttled-descent allowance: roughly the time spent
		// tracking the target speed profile below the main burn,
		// at hover duty cycle.
		descentTime = 25.0
		minThrottle = 0.40
	)

	thrustN := thrustKN * 1000
	massFlow := thrustN / (isp * gravity)

	fuel := 1000.0
	for i := 0; i < 15; i++ {
		totalMass := dryMass + fuel
		vTerm := estimateTerminalVelocity(totalMass, diameter, initialAltitude)

		avgMass := dryMass + fuel/2
		avgAccel := thrustN/avgMass - gravity
		burnTime := vTerm / avgAccel
		hoverDuty := avgMass * gravity / thrustN
		fuel = massFlow * (burnTime + hoverDuty*descentTime)
	}

	fuel *= safetyMargin
	if maxFuel := minThrottle*thrustN/(gravity*1.05) - dryMass; fuel > maxFuel {
		fuel = maxFuel
	}
	return math.Round(fuel/100) * 100
}

// presets maps preset names to config constructors. Dimensions are
// first-stage values from public sources; fuel masses come from
// LandingFuel with a 10% margin.
var presets = map[string]func() Config{
	"falcon9_block5_landing": func() Config {
		return preset(47.7, 3.66, 22200, 845, 282, 20.0, 23.85)
	},
	"starship_super_heavy": func() Config {
		// Landing on 3 of 33 Raptors.
		return preset(69.0, 9.0, 200000, 6900, 330, 30.0, 34.5)
	},
	"long_march5_core": func() Config {
		return preset(33.0, 5.0, 18000, 700, 310, 15.0, 16.5)
	},
	"long_march9_first_stage": func() Config {
		return preset(50.0, 10.6, 150000, 4800, 335, 22.0, 25.0)
	},
	"soyuz_first_stage": func() Config {
		return preset(27.8, 2.95, 6545, 838, 263, 12.0, 13.9)
	},
	"soyuz_booster": func() Config {
		return preset(19.6, 2.68, 3784, 838, 263, 8.0, 9.8)
	},
	"proton_m_first_stage": func() Config {
		return preset(21.2, 4.15, 31000, 1014, 285, 9.0, 10.6)
	},
	"angara_a5_first_stage": func() Config {
		return preset(25.0, 3.6, 9500, 2080, 311, 11.0, 12.5)
	},
	"zhuque2_first_stage": func() Config {
		return preset(30.0, 3.35, 8000, 670, 290, 13.0, 15.0)
	},
	"zhuque3_first_stage": func() Config {
		return preset(40.0, 4.5, 25000, 670, 290, 18.0, 20.0)
	},
}

func preset(height, diameter, dryMass, thrustKN, isp, comHeight, fuelCOMHeight float64) Config {
	return Config{
		Height:        height,
		Diameter:      diameter,
		DryMass:       dryMass,
		FuelMass:      LandingFuel(dryMass, thrustKN, isp, diameter, 1.10),
		COMHeight:     comHeight,
		FuelCOMHeight: fuelCOMHeight,
		Thrust:        thrustKN * 1000,
		ISP:           isp,
	}
}

// Preset returns the named vehicle configuration. An unknown name is a
// configuration error; callers decide whether to fail or substitute a
// default.
func Preset(name string) (Config, error) {
	fn, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown rocket preset %q (available: %v)", name, PresetNames())
	}
	return fn(), nil
}

// PresetNames returns the available preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
