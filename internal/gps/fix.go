package gps

import (
	"math"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/state"
)

const metersPerSecondToKnots = 1.943844

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "2025-12-06"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	AltitudeM  float64 `json:"alt_m"`       // above mean sea level
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.

	at time.Time
}

// FixFromVehicle builds the fix an ideal receiver would report for v at
// wall time at.
func FixFromVehicle(v state.VehicleState, at time.Time) Fix {
	at = at.UTC()
	course := math.Atan2(v.VEast, v.VNorth) * 180 / math.Pi
	if course < 0 {
		course += 360
	}
	return Fix{
		Time:       at.Format("15:04:05"),
		Date:       at.Format("2006-01-02"),
		Latitude:   v.Lat,
		Longitude:  v.Lon,
		AltitudeM:  v.Alt,
		SpeedKnots: math.Hypot(v.VNorth, v.VEast) * metersPerSecondToKnots,
		CourseDeg:  course,
		Validity:   "A",
		at:         at,
	}
}
