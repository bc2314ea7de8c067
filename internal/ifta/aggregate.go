package ifta

import (
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// TripSummary is the part of a closed trip the quarterly report needs
type TripSummary struct {
	TotalMiles          float64
	MilesByJurisdiction map[jurisdiction.Code]float64
	StartJurisdiction   jurisdiction.Code
}

// Purchase is the part of a fuel purchase the quarterly report needs
type Purchase struct {
	Jurisdiction      jurisdiction.Code
	Gallons           float64
	TotalCost         float64
	TaxIncludedAtPump bool
}

// Aggregate folds a quarter's trips and purchases into engine input. Trips
// with a total but no per-jurisdiction breakdown are attributed to their
// start jurisdiction when it is known. Only purchases with tax included at
// the pump earn a tax-paid credit. Rates are left for the caller to attach.
func Aggregate(trips []TripSummary, purchases []Purchase) Input {
	in := Input{
		Miles:       make(map[jurisdiction.Code]float64),
		Fuel:        make(map[jurisdiction.Code]float64),
		TaxPaidFuel: make(map[jurisdiction.Code]float64),
	}

	for _, t := range trips {
		if len(t.MilesByJurisdiction) == 0 {
			if t.TotalMiles > 0 && t.StartJurisdiction.Valid() {
				in.Miles[t.StartJurisdiction] += t.TotalMiles
			}
			continue
		}
		for code, miles := range t.MilesByJurisdiction {
			if code.Valid() {
				in.Miles[code] += miles
			}
		}
	}

	for _, p := range purchases {
		if !p.Jurisdiction.Valid() || p.Gallons <= 0 {
			continue
		}
		in.Fuel[p.Jurisdiction] += p.Gallons
		if p.TaxIncludedAtPump {
			in.TaxPaidFuel[p.Jurisdiction] += p.Gallons
		}
	}

	stats.RoundMap(in.Miles, 2)
	stats.RoundMap(in.Fuel, 2)
	stats.RoundMap(in.TaxPaidFuel, 2)
	return in
}

// Efficiency summarizes fuel economy and cost for a period
type Efficiency struct {
	MPG           float64 `json:"mpg"`
	CostPerMile   float64 `json:"cost_per_mile"`
	CostPerGallon float64 `json:"cost_per_gallon"`
}

// ComputeEfficiency derives MPG (2 dp) and costs (3 dp), zero when a
// denominator is zero
func ComputeEfficiency(miles, gallons, cost float64) Efficiency {
	var e Efficiency
	if gallons > 0 {
		e.MPG = stats.Round(miles/gallons, 2)
		e.CostPerGallon = stats.Round(cost/gallons, 3)
	}
	if miles > 0 {
		e.CostPerMile = stats.Round(cost/miles, 3)
	}
	return e
}

// TotalCost sums purchase costs rounded to cents
func TotalCost(purchases []Purchase) float64 {
	costs := make([]float64, len(purchases))
	for i, p := range purchases {
		costs[i] = p.TotalCost
	}
	return stats.Round(stats.Sum(costs), 2)
}
