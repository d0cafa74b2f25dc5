// Package units provides shared constants and conversions for reported speeds,
// accelerations and distances. Internally everything is SI (m, m/s, m/s²).
package units

import "strings"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const (
	metersPerMile = 1609.344
	mpsToMPH      = 3600 / metersPerMile
	mpsToKMPH     = 3.6
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units fall back to m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * mpsToMPH
	case KMPH, KPH:
		return speedMPS * mpsToKMPH
	default:
		return speedMPS
	}
}

// ConvertToMPS converts a speed in the given units back to meters per second.
func ConvertToMPS(speed float64, fromUnits string) float64 {
	switch fromUnits {
	case MPH:
		return speed / mpsToMPH
	case KMPH, KPH:
		return speed / mpsToKMPH
	default:
		return speed
	}
}

// ConvertDistance converts meters to the distance unit paired with the
// target speed unit: miles for mph, kilometres for km/h, meters otherwise.
func ConvertDistance(meters float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return meters / metersPerMile
	case KMPH, KPH:
		return meters / 1000
	default:
		return meters
	}
}

// SpeedLabel returns the display label for a speed unit.
func SpeedLabel(unit string) string {
	switch unit {
	case MPH:
		return "mph"
	case KMPH, KPH:
		return "km/h"
	default:
		return "m/s"
	}
}

// DistanceLabel returns the display label for the distance unit paired with
// the given speed unit.
func DistanceLabel(unit string) string {
	switch unit {
	case MPH:
		return "mi"
	case KMPH, KPH:
		return "km"
	default:
		return "m"
	}
}
