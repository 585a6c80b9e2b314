// Package physics implements the power estimation model: air density,
// effective grade inference, and the four-term power decomposition.
package physics

import "math"

// Atmospheric constants for the barometric air density model.
const (
	// SeaLevelPressure is standard atmospheric pressure at sea level in Pa.
	SeaLevelPressure = 101325.0

	// ScaleHeight is the exponential atmosphere scale height in meters.
	ScaleHeight = 7400.0

	// SpecificGasConstant is the specific gas constant for dry air in J/(kg·K).
	SpecificGasConstant = 287.05

	// DefaultTemperatureC is assumed when a ride carries no temperature reading.
	DefaultTemperatureC = 15.0
)

// AirDensity computes air density in kg/m³ from temperature (°C) and
// elevation (m) using the barometric formula. Always returns a finite
// positive value.
func AirDensity(temperatureC, elevationM float64) float64 {
	pressure := SeaLevelPressure * math.Exp(-elevationM/ScaleHeight)
	kelvin := temperatureC + 273.15
	return pressure / (SpecificGasConstant * kelvin)
}
