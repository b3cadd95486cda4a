package geo

import "math"

// MaxDistanceMeters caps any single leg. Coordinates far enough apart to hit
// the cap are almost always bad data, and an uncapped leg would dominate every
// ordering decision downstream.
const MaxDistanceMeters = 999999

// DefaultSpeedKmh is the assumed average driving speed for converting leg
// distance into travel minutes.
const DefaultSpeedKmh = 30.0

// Meters returns the great-circle distance between two coordinates, floored
// at zero and capped at MaxDistanceMeters.
func Meters(lat1, lng1, lat2, lng2 float64) float64 {
	const r = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	d := r * c
	if math.IsNaN(d) {
		// garbage coordinates must look maximally far, never free
		return MaxDistanceMeters
	}
	if d < 0 {
		return 0
	}
	if d > MaxDistanceMeters {
		return MaxDistanceMeters
	}
	return d
}

// TravelMinutes converts a leg distance in meters to driving minutes at the
// given average speed. Non-positive speeds fall back to DefaultSpeedKmh.
func TravelMinutes(meters, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return meters / 1000.0 / speedKmh * 60.0
}
