package store

// Air-quality status buckets, derived from the AQI reading.
const (
	StatusGood          = "GOOD"
	StatusModerate      = "MODERATE"
	StatusUnhealthy     = "UNHEALTHY"
	StatusVeryUnhealthy = "VERY_UNHEALTHY"
	StatusSevere        = "SEVERE"
)

// StatusFor maps an AQI value to its status bucket. Total over all inputs:
// anything outside 1..4 is SEVERE.
func StatusFor(aqi int32) string {
	switch aqi {
	case 1:
		return StatusGood
	case 2:
		return StatusModerate
	case 3:
		return StatusUnhealthy
	case 4:
		return StatusVeryUnhealthy
	default:
		return StatusSevere
	}
}
