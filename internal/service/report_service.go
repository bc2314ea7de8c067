package service

import (
	"context"
	"io"
	"time"

	"github.com/jengzang/ifta-backend-go/internal/ifta"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/stats"
	"github.com/jengzang/ifta-backend-go/internal/units"
)

// ReportLine is a jurisdiction line with its figures in display units
type ReportLine struct {
	ifta.JurisdictionLine
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Volume   float64 `json:"volume"`
	Display  struct {
		Distance string `json:"distance"`
		Volume   string `json:"volume"`
	} `json:"display"`
}

// QuarterlyReport is the IFTA return of one quarter. Summary and line
// amounts are in miles and gallons; Distance and Volume follow Units.
type QuarterlyReport struct {
	Quarter         ifta.Quarter    `json:"quarter"`
	Units           units.System    `json:"units"`
	Summary         ifta.Result     `json:"summary"`
	Lines           []ReportLine    `json:"lines"`
	TotalDistance   float64         `json:"total_distance"`
	TotalVolume     float64         `json:"total_volume"`
	FleetEfficiency string          `json:"fleet_efficiency"`
	Efficiency      ifta.Efficiency `json:"efficiency"`
	TotalFuelCost   float64         `json:"total_fuel_cost"`
	TripCount       int             `json:"trip_count"`
	PurchaseCount   int             `json:"purchase_count"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// ReportService builds quarterly IFTA reports
type ReportService struct {
	trips *repository.TripRepository
	fuel  *repository.FuelRepository
	rates *TaxRateService
	now   func() time.Time
}

// NewReportService creates a new report service
func NewReportService(trips *repository.TripRepository, fuel *repository.FuelRepository, rates *TaxRateService) *ReportService {
	return &ReportService{trips: trips, fuel: fuel, rates: rates, now: time.Now}
}

// Input loads a quarter's closed trips, purchases and rates as engine input
func (s *ReportService) Input(ctx context.Context, q ifta.Quarter) (ifta.Input, []models.Trip, []models.FuelPurchase, error) {
	start, end := q.Range()

	trips, err := s.trips.ListClosedInRange(ctx, start, end)
	if err != nil {
		return ifta.Input{}, nil, nil, err
	}
	purchases, err := s.fuel.ListInRange(ctx, start, end)
	if err != nil {
		return ifta.Input{}, nil, nil, err
	}
	rates, err := s.rates.Snapshot(ctx, q)
	if err != nil {
		return ifta.Input{}, nil, nil, err
	}

	in := ifta.Aggregate(tripSummaries(trips), fuelPurchases(purchases))
	in.Rates = rates
	return in, trips, purchases, nil
}

// Quarterly computes the report of q presented in system
func (s *ReportService) Quarterly(ctx context.Context, q ifta.Quarter, system units.System) (*QuarterlyReport, error) {
	in, trips, purchases, err := s.Input(ctx, q)
	if err != nil {
		return nil, err
	}

	res := ifta.Compute(in)
	cost := ifta.TotalCost(fuelPurchases(purchases))

	report := &QuarterlyReport{
		Quarter:         q,
		Units:           system,
		Summary:         res,
		TotalDistance:   stats.Round(system.Distance(res.TotalMiles), 2),
		TotalVolume:     stats.Round(system.Volume(res.TotalGallons), 2),
		FleetEfficiency: units.FormatEfficiency(res.FleetMPG, system),
		Efficiency:      ifta.ComputeEfficiency(res.TotalMiles, res.TotalGallons, cost),
		TotalFuelCost:   cost,
		TripCount:       len(trips),
		PurchaseCount:   len(purchases),
		GeneratedAt:     s.now().UTC(),
	}

	for _, l := range res.Lines() {
		line := ReportLine{
			JurisdictionLine: l,
			Name:             l.Jurisdiction.Name(),
			Distance:         stats.Round(system.Distance(l.Miles), 2),
			Volume:           stats.Round(system.Volume(l.FuelGallons), 2),
		}
		line.Display.Distance = units.FormatDistance(l.Miles, system)
		line.Display.Volume = units.FormatVolume(l.FuelGallons, system)
		report.Lines = append(report.Lines, line)
	}
	if report.Lines == nil {
		report.Lines = []ReportLine{}
	}
	return report, nil
}

// WriteCSV writes the quarter's IFTA return as CSV
func (s *ReportService) WriteCSV(ctx context.Context, q ifta.Quarter, w io.Writer) error {
	in, _, _, err := s.Input(ctx, q)
	if err != nil {
		return err
	}
	return ifta.WriteCSV(w, q, ifta.Compute(in))
}

func tripSummaries(trips []models.Trip) []ifta.TripSummary {
	out := make([]ifta.TripSummary, len(trips))
	for i, t := range trips {
		out[i] = ifta.TripSummary{
			TotalMiles:          t.TotalMiles,
			MilesByJurisdiction: t.MilesByJurisdiction,
			StartJurisdiction:   t.StartJurisdiction,
		}
	}
	return out
}

func fuelPurchases(purchases []models.FuelPurchase) []ifta.Purchase {
	out := make([]ifta.Purchase, len(purchases))
	for i, p := range purchases {
		out[i] = ifta.Purchase{
			Jurisdiction:      p.Jurisdiction,
			Gallons:           p.Gallons,
			TotalCost:         p.TotalCost,
			TaxIncludedAtPump: p.TaxIncludedAtPump,
		}
	}
	return out
}
