package ifta

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
)

func scenario() Input {
	return Input{
		Miles: map[jurisdiction.Code]float64{"CA": 300, "NV": 100},
		Fuel:  map[jurisdiction.Code]float64{"CA": 50, "NV": 10},
		Rates: map[jurisdiction.Code]float64{"CA": 0.40, "NV": 0.27},
	}
}

func TestComputeEndToEnd(t *testing.T) {
	res := Compute(scenario())

	assert.Equal(t, 400.0, res.TotalMiles)
	assert.Equal(t, 60.0, res.TotalGallons)
	assert.Equal(t, 6.67, res.FleetMPG)

	ca := res.PerJurisdiction["CA"]
	assert.Equal(t, 45.0, ca.TaxableGallons)
	assert.Equal(t, 20.0, ca.TaxPaidAtPump)
	assert.Equal(t, 18.0, ca.TaxDue)
	assert.Equal(t, -2.0, ca.Liability)
	assert.Equal(t, 0.40, ca.TaxRate)
	assert.Equal(t, 50.0, ca.FuelGallons)

	nv := res.PerJurisdiction["NV"]
	assert.Equal(t, 15.0, nv.TaxableGallons)
	assert.Equal(t, 2.7, nv.TaxPaidAtPump)
	assert.Equal(t, 1.35, nv.Liability)

	assert.Equal(t, -0.65, res.TotalLiability)
	assert.Equal(t, res.TotalLiability, res.NetLiability)
	assert.Equal(t, 60.0, res.TotalTaxableGallons)
	assert.Equal(t, 22.7, res.TotalTaxPaid)
}

func TestComputeIdempotent(t *testing.T) {
	first, err := json.Marshal(Compute(scenario()))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Compute(scenario()))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, again))
	}
}

func TestComputeZeroGuard(t *testing.T) {
	res := Compute(Input{})
	assert.Zero(t, res.FleetMPG)
	assert.Zero(t, res.TotalMiles)
	assert.Zero(t, res.TotalLiability)
	assert.Empty(t, res.PerJurisdiction)

	res = Compute(Input{
		Miles: map[jurisdiction.Code]float64{"TX": 250},
		Rates: map[jurisdiction.Code]float64{"TX": 0.15},
	})
	assert.Zero(t, res.FleetMPG)
	tx := res.PerJurisdiction["TX"]
	assert.Equal(t, 250.0, tx.Miles)
	assert.Zero(t, tx.TaxableGallons)
	assert.Zero(t, tx.Liability)
	assert.False(t, math.IsNaN(res.TotalLiability))
}

func TestComputeMissingRateDefaultsToZero(t *testing.T) {
	res := Compute(Input{
		Miles: map[jurisdiction.Code]float64{"AK": 100, "WA": 100},
		Fuel:  map[jurisdiction.Code]float64{"WA": 40},
		Rates: map[jurisdiction.Code]float64{"WA": 0.375},
	})

	ak := res.PerJurisdiction["AK"]
	assert.Zero(t, ak.TaxRate)
	assert.Zero(t, ak.Liability)
	assert.Equal(t, 20.0, ak.TaxableGallons)

	wa := res.PerJurisdiction["WA"]
	assert.Equal(t, 20.0, wa.TaxableGallons)
	assert.Equal(t, 15.0, wa.TaxPaidAtPump)
	assert.Equal(t, -7.5, wa.Liability)
}

func TestComputeJurisdictionSet(t *testing.T) {
	res := Compute(Input{
		Miles: map[jurisdiction.Code]float64{"CA": 100, "OR": 0},
		Fuel:  map[jurisdiction.Code]float64{"NV": 20, "AZ": 0},
		Rates: map[jurisdiction.Code]float64{"CA": 0.4, "NV": 0.27, "UT": 0.294},
	})

	assert.Len(t, res.PerJurisdiction, 2)
	assert.Contains(t, res.PerJurisdiction, jurisdiction.Code("CA"))
	assert.Contains(t, res.PerJurisdiction, jurisdiction.Code("NV"))
	assert.NotContains(t, res.PerJurisdiction, jurisdiction.Code("UT"), "a rate alone is not activity")
	assert.NotContains(t, res.PerJurisdiction, jurisdiction.Code("OR"))
}

func TestComputeTaxPaidFuelGating(t *testing.T) {
	in := scenario()
	in.TaxPaidFuel = map[jurisdiction.Code]float64{"CA": 30}

	res := Compute(in)
	ca := res.PerJurisdiction["CA"]
	assert.Equal(t, 30.0, ca.TaxPaidGallons)
	assert.Equal(t, 12.0, ca.TaxPaidAtPump)
	assert.Equal(t, 6.0, ca.Liability)

	nv := res.PerJurisdiction["NV"]
	assert.Zero(t, nv.TaxPaidAtPump)
	assert.Equal(t, 4.05, nv.Liability)

	assert.Equal(t, 6.67, res.FleetMPG, "all fuel still counts toward fleet MPG")
	assert.Equal(t, 10.05, res.NetLiability)
}

func TestResultLinesOrder(t *testing.T) {
	res := Compute(Input{
		Miles: map[jurisdiction.Code]float64{"NV": 100, "CA": 300, "AZ": 100},
		Fuel:  map[jurisdiction.Code]float64{"UT": 10},
	})

	var order []jurisdiction.Code
	for _, l := range res.Lines() {
		order = append(order, l.Jurisdiction)
	}
	assert.Equal(t, []jurisdiction.Code{"CA", "AZ", "NV", "UT"}, order)
}

func TestAggregate(t *testing.T) {
	trips := []TripSummary{
		{TotalMiles: 200, MilesByJurisdiction: map[jurisdiction.Code]float64{"CA": 150, "NV": 50}},
		{TotalMiles: 150, MilesByJurisdiction: map[jurisdiction.Code]float64{"CA": 150}},
		{TotalMiles: 40, StartJurisdiction: "AZ"},
		{TotalMiles: 25, StartJurisdiction: jurisdiction.Unknown},
		{TotalMiles: 0, StartJurisdiction: "UT"},
		{TotalMiles: 50, MilesByJurisdiction: map[jurisdiction.Code]float64{"NV": 45, jurisdiction.Unknown: 5}},
	}
	purchases := []Purchase{
		{Jurisdiction: "CA", Gallons: 30, TotalCost: 150, TaxIncludedAtPump: true},
		{Jurisdiction: "CA", Gallons: 20, TotalCost: 100, TaxIncludedAtPump: false},
		{Jurisdiction: "NV", Gallons: 10, TotalCost: 45, TaxIncludedAtPump: true},
		{Jurisdiction: jurisdiction.Unknown, Gallons: 5, TotalCost: 20},
	}

	in := Aggregate(trips, purchases)
	assert.Equal(t, map[jurisdiction.Code]float64{"CA": 300, "NV": 95, "AZ": 40}, in.Miles)
	assert.Equal(t, map[jurisdiction.Code]float64{"CA": 50, "NV": 10}, in.Fuel)
	assert.Equal(t, map[jurisdiction.Code]float64{"CA": 30, "NV": 10}, in.TaxPaidFuel)
	assert.Nil(t, in.Rates)

	assert.Equal(t, 315.0, TotalCost(purchases))
}

func TestComputeEfficiency(t *testing.T) {
	e := ComputeEfficiency(400, 60, 270)
	assert.Equal(t, 6.67, e.MPG)
	assert.Equal(t, 0.675, e.CostPerMile)
	assert.Equal(t, 4.5, e.CostPerGallon)

	assert.Equal(t, Efficiency{}, ComputeEfficiency(0, 0, 0))
}

func TestCSV(t *testing.T) {
	q := Quarter{Year: 2025, Number: 2}
	res := Compute(scenario())

	rows := CSVRows(q, res)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2", "2025", "CA", "300.00", "50.00", "6.67", "45.00", "0.400", "20.00", "-2.00"}, rows[0])
	assert.Equal(t, []string{"2", "2025", "NV", "100.00", "10.00", "6.67", "15.00", "0.270", "2.70", "1.35"}, rows[1])

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, q, res))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Quarter,Year,Jurisdiction,Miles,Gallons Purchased,Fleet MPG,Taxable Gallons,Tax Rate,Tax Paid At Pump,Liability", lines[0])
	assert.Equal(t, "ifta_Q2_2025.csv", CSVFilename(q))
}

func TestQuarter(t *testing.T) {
	q := Quarter{Year: 2024, Number: 1}
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), q.Start())
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999_000_000, time.UTC), q.End())

	start, end := Quarter{Year: 2024, Number: 4}.Range()
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 999_000_000, time.UTC).UnixMilli(), end)

	assert.Equal(t, Quarter{2025, 1}, Quarter{2024, 4}.Next())
	assert.Equal(t, Quarter{2023, 4}, Quarter{2024, 1}.Previous())
	assert.Equal(t, "Q3 2024", Quarter{2024, 3}.String())

	assert.Equal(t, Quarter{2024, 3}, QuarterOf(time.Date(2024, 9, 30, 23, 0, 0, 0, time.UTC)))
	assert.True(t, Quarter{2024, 2}.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, Quarter{2024, 2}.Contains(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)))
}

func TestParseQuarter(t *testing.T) {
	for _, s := range []string{"2025-Q3", "Q3 2025", "2025Q3", " q3-2025 "} {
		q, err := ParseQuarter(s)
		require.NoError(t, err, s)
		assert.Equal(t, Quarter{Year: 2025, Number: 3}, q, s)
	}

	for _, s := range []string{"", "2025", "Q5 2025", "Qx 2025", "2025 Q1 extra"} {
		_, err := ParseQuarter(s)
		assert.Error(t, err, s)
	}

	_, err := NewQuarter(2025, 0)
	assert.Error(t, err)
}

func TestTotalsUseUnroundedLines(t *testing.T) {
	// fleet MPG 1: each line owes half a cent
	res := Compute(Input{
		Miles: map[jurisdiction.Code]float64{"CA": 1, "NV": 1},
		Fuel:  map[jurisdiction.Code]float64{"OR": 2},
		Rates: map[jurisdiction.Code]float64{"CA": 0.005, "NV": 0.005},
	})

	assert.Equal(t, 0.01, res.PerJurisdiction["CA"].Liability)
	assert.Equal(t, 0.01, res.PerJurisdiction["NV"].Liability)
	assert.Equal(t, 0.01, res.TotalLiability)
}
