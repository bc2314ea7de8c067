package spatial

import (
	"math"
	"time"

	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// TimedPoint is a GeoPoint with a Unix millisecond timestamp
type TimedPoint struct {
	GeoPoint
	TimestampMs int64 `json:"timestamp_ms"`
}

// Stop is a period where the vehicle stayed within a small radius
type Stop struct {
	Location        GeoPoint `json:"location"`
	StartTimeMs     int64    `json:"start_time_ms"`
	EndTimeMs       int64    `json:"end_time_ms"`
	DurationMinutes float64  `json:"duration_minutes"`
}

// Default stop detection thresholds
const (
	DefaultStopMinDuration = 15 * time.Minute
	DefaultStopRadiusM     = 100.0
)

// Bounds is an axis-aligned latitude/longitude box
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Centroid calculates the arithmetic centroid of a set of points
func Centroid(points []GeoPoint) GeoPoint {
	if len(points) == 0 {
		return GeoPoint{}
	}

	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Latitude
		lons[i] = p.Longitude
	}
	return GeoPoint{Latitude: stats.Mean(lats), Longitude: stats.Mean(lons)}
}

// BoundingBox calculates the bounding box of a set of points
func BoundingBox(points []GeoPoint) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	b := Bounds{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
	for _, p := range points {
		b.MinLat = math.Min(b.MinLat, p.Latitude)
		b.MinLon = math.Min(b.MinLon, p.Longitude)
		b.MaxLat = math.Max(b.MaxLat, p.Latitude)
		b.MaxLon = math.Max(b.MaxLon, p.Longitude)
	}
	return b
}

// Smooth applies a centered moving average over window points. Points closer
// than window/2 to either end are kept as they are.
func Smooth(points []GeoPoint, window int) []GeoPoint {
	if window < 1 || len(points) <= window {
		return points
	}

	half := window / 2
	out := make([]GeoPoint, len(points))
	for i := range points {
		if i < half || i >= len(points)-half {
			out[i] = points[i]
			continue
		}
		out[i] = Centroid(points[i-half : i+half+1])
	}
	return out
}

// DetectStops finds periods of at least minDuration where consecutive points
// stay within radiusM meters of the point that opened the period.
func DetectStops(points []TimedPoint, minDuration time.Duration, radiusM float64) []Stop {
	if len(points) < 2 {
		return nil
	}

	var stops []Stop
	start := 0
	for i := 1; i < len(points); i++ {
		if HaversineMeters(points[start].GeoPoint, points[i].GeoPoint) <= radiusM {
			continue
		}

		elapsed := time.Duration(points[i-1].TimestampMs-points[start].TimestampMs) * time.Millisecond
		if elapsed >= minDuration {
			stops = append(stops, Stop{
				Location:        points[start].GeoPoint,
				StartTimeMs:     points[start].TimestampMs,
				EndTimeMs:       points[i-1].TimestampMs,
				DurationMinutes: stats.Round(elapsed.Minutes(), 2),
			})
		}
		start = i
	}
	return stops
}
