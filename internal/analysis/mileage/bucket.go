// Package mileage attributes trip distance to jurisdictions.
package mileage

import (
	"github.com/jengzang/ifta-backend-go/internal/analysis/foundation"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// ByJurisdiction maps jurisdictions to miles
type ByJurisdiction map[jurisdiction.Code]float64

// Total returns the sum of all jurisdiction miles
func (m ByJurisdiction) Total() float64 {
	return stats.SumMap(m)
}

// Bucket attributes the distance between consecutive fixes to jurisdictions.
// A segment inside one jurisdiction goes entirely to it; a segment whose ends
// lie in different jurisdictions is split evenly, since the true crossing
// point is unknown. The share of an Unknown end is dropped. Values are
// rounded to 2 decimal places. Fewer than 2 fixes give an empty map.
func Bucket(fixes []foundation.TrackedFix) ByJurisdiction {
	out := ByJurisdiction{}
	if len(fixes) < 2 {
		return out
	}

	for i := 1; i < len(fixes); i++ {
		prev, curr := fixes[i-1], fixes[i]
		d := spatial.HaversineMiles(prev.Point, curr.Point)

		if prev.Jurisdiction == curr.Jurisdiction {
			addMiles(out, curr.Jurisdiction, d)
			continue
		}

		addMiles(out, prev.Jurisdiction, d/2)
		addMiles(out, curr.Jurisdiction, d/2)
	}

	return stats.RoundMap(out, 2)
}

func addMiles(m ByJurisdiction, code jurisdiction.Code, miles float64) {
	if !code.Valid() {
		return
	}
	m[code] += miles
}
