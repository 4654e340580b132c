// Package atmosphere implements the International Standard Atmosphere
// (ISA) profile used by the aerodynamics model, valid from sea level
// to 80 km. All functions are pure: altitude in meters above sea
// level, clamped to >= 0.
package atmosphere

import "math"

// ISA constants.
const (
	SeaLevelPressure    = 101325.0 // Pa
	SeaLevelDensity     = 1.225    // kg/m³
	SeaLevelTemperature = 288.15   // K

	// Troposphere lapse, tropopause at 11 km.
	TemperatureLapseRate = 0.0065  // K/m
	TropopauseAltitude   = 11000.0 // m
	TropopauseTemp       = 216.65  // K

	// Vacuum cutoff: density is forced to zero above this.
	VacuumAltitude = 80000.0 // m

	MolarMassAir      = 0.0289644 // kg/mol
	GasConstant       = 8.31446   // J/(mol·K)
	SpecificHeatRatio = 1.4       // γ for air
)

// Gravity is standard gravitational acceleration (m/s²). The
// barometric formula and the rest of the simulation share this value.
const Gravity = 9.80665

// Temperature returns air temperature in Kelvin: linear lapse up to
// the tropopause, constant 216.65 K above it.
func Temperature(altitude float64) float64 {
	if altitude < 0 {
		altitude = 0
	}
	if altitude > TropopauseAltitude {
		return TropopauseTemp
	}
	return SeaLevelTemperature - TemperatureLapseRate*altitude
}

// Pressure returns static pressure in Pascals. Below the tropopause it
// uses the barometric formula for a linear temperature gradient; above
// it decays exponentially from the 11 km reference value.
func Pressure(altitude float64) float64 {
	if altitude < 0 {
		altitude = 0
	}
	if altitude > TropopauseAltitude {
		pTropopause := Pressure(TropopauseAltitude)
		return pTropopause * math.Exp(-Gravity*MolarMassAir*(altitude-TropopauseAltitude)/(GasConstant*TropopauseTemp))
	}
	temperature := Temperature(altitude)
	exponent := Gravity * MolarMassAir / (GasConstant * TemperatureLapseRate)
	return SeaLevelPressure * math.Pow(temperature/SeaLevelTemperature, exponent)
}

// Density returns air density in kg/m³ from the ideal gas law,
// ρ = pM/RT. Above 80 km the model reports vacuum (exactly zero).
func Density(altitude float64) float64 {
	if altitude < 0 {
		altitude = 0
	}
	if altitude > VacuumAltitude {
		return 0
	}
	return Pressure(altitude) * MolarMassAir / (GasConstant * Temperature(altitude))
}

// SpeedOfSound returns the local speed of sound in m/s,
// a = sqrt(γRT/M).
func SpeedOfSound(altitude float64) float64 {
	return math.Sqrt(SpecificHeatRatio * GasConstant * Temperature(altitude) / MolarMassAir)
}
