package mileage

import (
	"github.com/jengzang/ifta-backend-go/internal/analysis/foundation"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// Crossing holds a jurisdiction boundary crossing between two samples
type Crossing struct {
	CrossingTS int64             `json:"crossing_ts"` // timestamp of the first fix in the new jurisdiction
	From       jurisdiction.Code `json:"from"`
	To         jurisdiction.Code `json:"to"`
	Location   spatial.GeoPoint  `json:"location"` // midpoint of the crossing segment
	DistanceMi float64           `json:"distance_mi"`
}

// Summary is the full mileage picture of one trip
type Summary struct {
	TotalMiles        float64        `json:"total_miles"`
	ByJurisdiction    ByJurisdiction `json:"miles_by_jurisdiction"`
	AttributedMiles   float64        `json:"attributed_miles"`
	UnattributedMiles float64        `json:"unattributed_miles"`
	Crossings         []Crossing     `json:"crossings"`
}

// DetectCrossings detects boundary crossings between consecutive fixes.
// Transitions into or out of Unknown are not crossings.
func DetectCrossings(fixes []foundation.TrackedFix) []Crossing {
	var crossings []Crossing
	for i := 1; i < len(fixes); i++ {
		if c := detectCrossing(fixes[i-1], fixes[i]); c != nil {
			crossings = append(crossings, *c)
		}
	}
	return crossings
}

// detectCrossing detects if there's a boundary crossing between two fixes
func detectCrossing(prev, curr foundation.TrackedFix) *Crossing {
	if prev.Jurisdiction == curr.Jurisdiction || !prev.Jurisdiction.Valid() || !curr.Jurisdiction.Valid() {
		return nil
	}

	return &Crossing{
		CrossingTS: curr.TimestampMs,
		From:       prev.Jurisdiction,
		To:         curr.Jurisdiction,
		Location:   spatial.Midpoint(prev.Point, curr.Point),
		DistanceMi: spatial.HaversineMiles(prev.Point, curr.Point),
	}
}

// Summarize computes total distance, per-jurisdiction miles and crossings.
// The gap between TotalMiles and AttributedMiles is the distance dropped
// because one or both ends of a segment had no known jurisdiction.
func Summarize(fixes []foundation.TrackedFix) Summary {
	points := make([]spatial.GeoPoint, len(fixes))
	for i, f := range fixes {
		points[i] = f.Point
	}

	byJurisdiction := Bucket(fixes)
	total := spatial.TotalDistance(points, spatial.Miles)
	attributed := stats.Round(byJurisdiction.Total(), 2)

	unattributed := stats.Round(total-attributed, 2)
	if unattributed < 0 {
		// rounding of individual buckets can overshoot the path total by a cent
		unattributed = 0
	}

	return Summary{
		TotalMiles:        total,
		ByJurisdiction:    byJurisdiction,
		AttributedMiles:   attributed,
		UnattributedMiles: unattributed,
		Crossings:         DetectCrossings(fixes),
	}
}
