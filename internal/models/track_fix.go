package models

import (
	"time"

	"github.com/jengzang/ifta-backend-go/internal/analysis/foundation"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// TrackFix is an accepted GPS sample persisted for a trip
type TrackFix struct {
	ID           int64             `json:"id" db:"id"`
	TripID       string            `json:"trip_id" db:"trip_id"`
	Seq          int               `json:"seq" db:"seq"` // 0-based order within the trip
	Latitude     float64           `json:"latitude" db:"latitude"`
	Longitude    float64           `json:"longitude" db:"longitude"`
	TimestampMs  int64             `json:"timestamp_ms" db:"timestamp_ms"`
	Jurisdiction jurisdiction.Code `json:"jurisdiction" db:"jurisdiction"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// Tracked converts the row into the sampling pipeline's fix type
func (f TrackFix) Tracked() foundation.TrackedFix {
	return foundation.TrackedFix{
		Point:        spatial.GeoPoint{Latitude: f.Latitude, Longitude: f.Longitude},
		TimestampMs:  f.TimestampMs,
		Jurisdiction: f.Jurisdiction,
	}
}

// TrackedFixes converts a slice of rows
func TrackedFixes(rows []TrackFix) []foundation.TrackedFix {
	out := make([]foundation.TrackedFix, len(rows))
	for i, r := range rows {
		out[i] = r.Tracked()
	}
	return out
}
