package spatial

import (
	"github.com/golang/geo/s2"

	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// Constants
const (
	EarthRadiusMiles  = 3959.0    // radius used for all mileage math
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters

	MetersPerMile = 1609.344
)

// Unit selects the unit a distance is reported in
type Unit int

const (
	Miles Unit = iota
	Kilometers
)

// Radius returns the Earth radius expressed in the unit
func (u Unit) Radius() float64 {
	if u == Kilometers {
		return EarthRadiusKm
	}
	return EarthRadiusMiles
}

func (u Unit) String() string {
	if u == Kilometers {
		return "km"
	}
	return "mi"
}

// GeoPoint is a WGS84 coordinate pair
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p GeoPoint) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Latitude, p.Longitude)
}

// Haversine calculates the great-circle distance between two points, rounded
// to 4 decimal places so that long sums do not pick up float noise.
func Haversine(a, b GeoPoint, unit Unit) float64 {
	return stats.Round(rawDistance(a, b, unit), 4)
}

// HaversineMiles is Haversine in miles
func HaversineMiles(a, b GeoPoint) float64 {
	return Haversine(a, b, Miles)
}

// HaversineMeters returns the unrounded distance in meters
func HaversineMeters(a, b GeoPoint) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusMeters
}

func rawDistance(a, b GeoPoint, unit Unit) float64 {
	return a.latLng().Distance(b.latLng()).Radians() * unit.Radius()
}

// TotalDistance sums the segment distances of an ordered path, rounded to 2
// decimal places. Paths with fewer than 2 points have no length.
func TotalDistance(points []GeoPoint, unit Unit) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i], unit)
	}
	return stats.Round(total, 2)
}

// Midpoint calculates the midpoint between two points
func Midpoint(a, b GeoPoint) GeoPoint {
	// Use S2 interpolation
	mid := s2.Interpolate(0.5, s2.PointFromLatLng(a.latLng()), s2.PointFromLatLng(b.latLng()))
	midLatLng := s2.LatLngFromPoint(mid)

	return GeoPoint{Latitude: midLatLng.Lat.Degrees(), Longitude: midLatLng.Lng.Degrees()}
}
