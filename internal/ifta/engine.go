// Package ifta computes quarterly IFTA fuel tax figures. Every function here
// is a pure function of its inputs; callers load trips, purchases and rates
// and hand over immutable snapshots.
package ifta

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
)

// Input is the aggregated activity of one reporting period.
// All figures are in miles, gallons and currency per gallon.
type Input struct {
	Miles map[jurisdiction.Code]float64
	Fuel  map[jurisdiction.Code]float64
	// TaxPaidFuel holds the gallons bought with tax included at the pump.
	// A nil map means every purchased gallon was tax-paid.
	TaxPaidFuel map[jurisdiction.Code]float64
	Rates       map[jurisdiction.Code]float64
}

// JurisdictionLine is the IFTA computation for one jurisdiction
type JurisdictionLine struct {
	Jurisdiction   jurisdiction.Code `json:"jurisdiction"`
	Miles          float64           `json:"miles"`
	FuelGallons    float64           `json:"fuel_gallons"`
	TaxPaidGallons float64           `json:"tax_paid_gallons"`
	TaxRate        float64           `json:"tax_rate"`
	TaxableGallons float64           `json:"taxable_gallons"`
	TaxDue         float64           `json:"tax_due"`
	TaxPaidAtPump  float64           `json:"tax_paid_at_pump"`
	Liability      float64           `json:"liability"` // positive = owed, negative = credit
}

// Result is the IFTA computation for one period
type Result struct {
	FleetMPG            float64                                `json:"fleet_mpg"`
	TotalMiles          float64                                `json:"total_miles"`
	TotalGallons        float64                                `json:"total_gallons"`
	TotalTaxableGallons float64                                `json:"total_taxable_gallons"`
	TotalTaxPaid        float64                                `json:"total_tax_paid"`
	TotalLiability      float64                                `json:"total_liability"`
	NetLiability        float64                                `json:"net_liability"`
	PerJurisdiction     map[jurisdiction.Code]JurisdictionLine `json:"per_jurisdiction"`
}

// Compute runs the IFTA method: fleet MPG over all miles and gallons, taxable
// gallons per jurisdiction from fleet MPG, minus credit for tax paid at the
// pump. Missing rates and fuel count as zero and divisions by zero yield zero,
// so a partial quarter still produces a report. Every figure is rounded to 2
// decimal places; fleet MPG is rounded only for output, taxable gallons use
// the exact ratio.
func Compute(in Input) Result {
	totalMiles := sum(in.Miles)
	totalGallons := sum(in.Fuel)

	fleetMPG := decimal.Zero
	if totalGallons.IsPositive() {
		fleetMPG = totalMiles.DivRound(totalGallons, 16)
	}

	res := Result{
		FleetMPG:        round(fleetMPG),
		TotalMiles:      round(totalMiles),
		TotalGallons:    round(totalGallons),
		PerJurisdiction: make(map[jurisdiction.Code]JurisdictionLine),
	}

	var totalTaxable, totalPaid, totalLiability decimal.Decimal
	for _, code := range reportJurisdictions(in) {
		miles := decimal.NewFromFloat(in.Miles[code])
		fuel := decimal.NewFromFloat(in.Fuel[code])
		rate := decimal.NewFromFloat(in.Rates[code])

		taxPaidGallons := fuel
		if in.TaxPaidFuel != nil {
			taxPaidGallons = decimal.NewFromFloat(in.TaxPaidFuel[code])
		}

		taxable := decimal.Zero
		if fleetMPG.IsPositive() {
			taxable = miles.DivRound(fleetMPG, 16)
		}
		taxDue := rate.Mul(taxable)
		paid := taxPaidGallons.Mul(rate)
		liability := taxDue.Sub(paid)

		res.PerJurisdiction[code] = JurisdictionLine{
			Jurisdiction:   code,
			Miles:          round(miles),
			FuelGallons:    round(fuel),
			TaxPaidGallons: round(taxPaidGallons),
			TaxRate:        rate.InexactFloat64(),
			TaxableGallons: round(taxable),
			TaxDue:         round(taxDue),
			TaxPaidAtPump:  round(paid),
			Liability:      round(liability),
		}

		totalTaxable = totalTaxable.Add(taxable)
		totalPaid = totalPaid.Add(paid)
		totalLiability = totalLiability.Add(liability)
	}

	res.TotalTaxableGallons = round(totalTaxable)
	res.TotalTaxPaid = round(totalPaid)
	res.TotalLiability = round(totalLiability)
	res.NetLiability = res.TotalLiability
	return res
}

// Lines returns the per-jurisdiction lines ordered by miles descending, then
// by jurisdiction code
func (r Result) Lines() []JurisdictionLine {
	lines := make([]JurisdictionLine, 0, len(r.PerJurisdiction))
	for _, l := range r.PerJurisdiction {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Miles != lines[j].Miles {
			return lines[i].Miles > lines[j].Miles
		}
		return lines[i].Jurisdiction < lines[j].Jurisdiction
	})
	return lines
}

// reportJurisdictions returns the sorted union of jurisdictions with miles or
// fuel. Entries with neither are left out.
func reportJurisdictions(in Input) []jurisdiction.Code {
	seen := make(map[jurisdiction.Code]bool)
	for code, miles := range in.Miles {
		if miles != 0 {
			seen[code] = true
		}
	}
	for code, gallons := range in.Fuel {
		if gallons != 0 {
			seen[code] = true
		}
	}

	codes := make([]jurisdiction.Code, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func sum(m map[jurisdiction.Code]float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
