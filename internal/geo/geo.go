// Package geo holds the distance and bearing helpers shared by the poller,
// the trail designer, and the on-screen direction indicator.
// Inputs are not range-checked; callers pass sane coordinates.
package geo

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius used by HaversineMeters.
	EarthRadiusMeters = 6371000.0

	// MetersPerDegree approximates one degree of latitude in meters. It turns
	// a PlanarDistance into rough meters at small scales.
	MetersPerDegree = 111320.0
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// PlanarDistance is the Euclidean distance in degree space. Only good for
// ranking and for thresholds expressed in small degree offsets.
func PlanarDistance(a, b Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// HaversineMeters returns the great-circle distance between a and b in meters.
func HaversineMeters(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// BearingDegrees returns the initial bearing from one point to another,
// clockwise from north, in [0, 360). Identical points yield 0.
func BearingDegrees(from, to Point) float64 {
	if from == to {
		return 0
	}
	lat1 := toRadians(from.Lat)
	lat2 := toRadians(to.Lat)
	dLng := toRadians(to.Lng - from.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := toDegrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// Within reports whether b lies within radiusMeters of a.
func Within(a, b Point, radiusMeters float64) bool {
	return HaversineMeters(a, b) <= radiusMeters
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
