package gps

import (
	"fmt"
	"math"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

const talker = "GP"

// GGA renders a position fix sentence, including the leading '$' and the
// checksum, without line terminator.
func GGA(f Fix) string {
	lat, ns := formatCoord(f.Latitude, 2, "N", "S")
	lon, ew := formatCoord(f.Longitude, 3, "E", "W")
	body := strings.Join([]string{
		talker + nmea.TypeGGA,
		f.at.Format("150405.00"),
		lat, ns, lon, ew,
		"1",   // GPS fix
		"10",  // satellites
		"0.9", // HDOP
		fmt.Sprintf("%.1f", f.AltitudeM), "M",
		"0.0", "M",
		"", "",
	}, ",")
	return seal(body)
}

// RMC renders the recommended minimum sentence.
func RMC(f Fix) string {
	lat, ns := formatCoord(f.Latitude, 2, "N", "S")
	lon, ew := formatCoord(f.Longitude, 3, "E", "W")
	body := strings.Join([]string{
		talker + nmea.TypeRMC,
		f.at.Format("150405.00"),
		f.Validity,
		lat, ns, lon, ew,
		fmt.Sprintf("%.2f", f.SpeedKnots),
		fmt.Sprintf("%.1f", f.CourseDeg),
		f.at.Format("020106"),
		"", "",
	}, ",")
	return seal(body)
}

func seal(body string) string {
	return "$" + body + "*" + nmea.Checksum(body)
}

// formatCoord writes degrees as NMEA (d)ddmm.mmmmm plus hemisphere.
func formatCoord(deg float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	whole := math.Floor(deg)
	minutes := (deg - whole) * 60
	// rounding can push minutes to 60.00000
	if minutes >= 59.999995 {
		whole++
		minutes = 0
	}
	return fmt.Sprintf("%0*d%08.5f", degDigits, int(whole), minutes), hemi
}
