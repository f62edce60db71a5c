package env

import "math"

// Sample represents a single environmental measurement (BMP).
type Sample struct {
	Time float64 `json:"time"` // capture time, seconds

	Temperature float64 `json:"temp_c"`      // °C
	Pressure    float64 `json:"pressure_pa"` // Pa
}

// Standard-atmosphere constants for the pressure-to-altitude conversion.
const (
	seaLevelPressure = 101325.0 // Pa
	tempLapseRate    = 0.0065   // K/m
	seaLevelTemp     = 288.15   // K
	barometricExp    = 0.190295 // R·L/(g·M)
)

// Altitude converts the sample's static pressure to barometric altitude
// in metres using the international standard atmosphere.
func (s Sample) Altitude() float64 {
	return seaLevelTemp / tempLapseRate *
		(1 - math.Pow(s.Pressure/seaLevelPressure, barometricExp))
}
