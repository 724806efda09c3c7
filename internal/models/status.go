package models

import "strconv"

// Tier is the severity bucket a reading maps to. Values double as the badge
// color used by dashboard views.
type Tier string

const (
	TierSuccess   Tier = "success"
	TierWarning   Tier = "warning"
	TierDanger    Tier = "danger"
	TierSecondary Tier = "secondary"
	TierDefault   Tier = "primary"
)

// Status is a derived severity/label pair for a reading.
type Status struct {
	Tier  Tier   `json:"tier"`
	Label string `json:"label"`
}

// Gas (PPM), sound (dB), temperature (°C) and humidity (%) thresholds match
// the firmware's sensor calibration.
const (
	gasDanger   = 500
	gasWarning  = 300
	soundDanger = 80
	soundWarn   = 60
	tempMin     = 15
	tempMax     = 30
	humidityMin = 30
	humidityMax = 80

	// occupiedMaxDistance closes the parking partition at a single cutoff:
	// 0 < d <= 15 occupied, d > 15 free, d == 0 sensor out of range.
	occupiedMaxDistance = 15
)

// ParkingSpaceStatus maps an ultrasonic distance in cm to an occupancy label.
func ParkingSpaceStatus(distance float64) string {
	switch {
	case distance == 0:
		return "unknown"
	case distance > 0 && distance <= occupiedMaxDistance:
		return "occupied"
	default:
		return "free"
	}
}

// Classify derives the status for a reading. Pure: the same (feedKey, value)
// pair always yields the same status. Unknown keys fall through to the
// default tier with the formatted raw value as label.
func Classify(feedKey string, value float64) Status {
	switch feedKey {
	case KeyGasSensor:
		switch {
		case value > gasDanger:
			return Status{TierDanger, "bad air quality"}
		case value > gasWarning:
			return Status{TierWarning, "moderate air quality"}
		default:
			return Status{TierSuccess, "good air quality"}
		}
	case KeySoundSensor:
		switch {
		case value > soundDanger:
			return Status{TierDanger, "loud"}
		case value > soundWarn:
			return Status{TierWarning, "moderate noise"}
		default:
			return Status{TierSuccess, "quiet"}
		}
	case KeyTemperature:
		if value < tempMin || value > tempMax {
			return Status{TierWarning, "out of range"}
		}
		return Status{TierSuccess, "normal"}
	case KeyHumidity:
		if value < humidityMin || value > humidityMax {
			return Status{TierWarning, "out of range"}
		}
		return Status{TierSuccess, "normal"}
	case KeyMotionDetector:
		if value == 1 {
			return Status{TierWarning, "presence detected"}
		}
		return Status{TierSuccess, "no presence"}
	case KeyUltrasonicDistance, KeyUltrasonicDistance2:
		switch ParkingSpaceStatus(value) {
		case "occupied":
			return Status{TierDanger, "occupied"}
		case "free":
			return Status{TierSuccess, "free"}
		default:
			return Status{TierSecondary, "unknown"}
		}
	default:
		return Status{TierDefault, FormatValue(value)}
	}
}

// FormatValue renders a numeric reading without trailing zeros.
func FormatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
