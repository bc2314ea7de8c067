package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jengzang/ifta-backend-go/internal/database"
	"github.com/jengzang/ifta-backend-go/internal/ifta"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
)

const dateLayout = "2006-01-02"

// SetRateRequest sets the rate of one jurisdiction from a date
type SetRateRequest struct {
	Rate           float64 `json:"rate"`
	EffectiveDate  string  `json:"effective_date"` // YYYY-MM-DD, defaults to today
	ExpirationDate *string `json:"expiration_date"`
}

// RateLine is one entry of a rate snapshot
type RateLine struct {
	Jurisdiction jurisdiction.Code `json:"jurisdiction"`
	Name         string            `json:"name"`
	Rate         float64           `json:"rate"`
}

// TaxRateService handles business logic for fuel tax rates
type TaxRateService struct {
	repo *repository.TaxRateRepository
	now  func() time.Time
}

// NewTaxRateService creates a new tax rate service
func NewTaxRateService(repo *repository.TaxRateRepository) *TaxRateService {
	return &TaxRateService{repo: repo, now: time.Now}
}

// Snapshot returns the rates in effect on the last day of q. Stored rates
// take precedence over the built-in table, which fills the gaps.
func (s *TaxRateService) Snapshot(ctx context.Context, q ifta.Quarter) (map[jurisdiction.Code]float64, error) {
	defaults, err := database.DefaultTaxRates()
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.Snapshot(ctx, q.End().Format(dateLayout))
	if err != nil {
		return nil, err
	}

	rates := defaults.Rates
	for code, rate := range stored {
		rates[code] = rate
	}
	return rates, nil
}

// SnapshotLines returns Snapshot as a list ordered by jurisdiction code
func (s *TaxRateService) SnapshotLines(ctx context.Context, q ifta.Quarter) ([]RateLine, error) {
	rates, err := s.Snapshot(ctx, q)
	if err != nil {
		return nil, err
	}

	lines := make([]RateLine, 0, len(rates))
	for code, rate := range rates {
		lines = append(lines, RateLine{Jurisdiction: code, Name: code.Name(), Rate: rate})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Jurisdiction < lines[j].Jurisdiction })
	return lines, nil
}

// SetRate stores a manual rate for the jurisdiction named by code
func (s *TaxRateService) SetRate(ctx context.Context, code string, req SetRateRequest) (*models.TaxRate, error) {
	j := jurisdiction.Normalize(code)
	if !j.Valid() {
		return nil, fmt.Errorf("%w: unknown jurisdiction %q", ErrInvalidTaxRate, code)
	}
	if req.Rate < 0 || math.IsNaN(req.Rate) || math.IsInf(req.Rate, 0) {
		return nil, fmt.Errorf("%w: rate must be a non-negative number", ErrInvalidTaxRate)
	}

	effective := req.EffectiveDate
	if effective == "" {
		effective = s.now().UTC().Format(dateLayout)
	}
	from, err := time.Parse(dateLayout, effective)
	if err != nil {
		return nil, fmt.Errorf("%w: effective date %q", ErrInvalidTaxRate, effective)
	}
	if req.ExpirationDate != nil {
		until, err := time.Parse(dateLayout, *req.ExpirationDate)
		if err != nil {
			return nil, fmt.Errorf("%w: expiration date %q", ErrInvalidTaxRate, *req.ExpirationDate)
		}
		if until.Before(from) {
			return nil, fmt.Errorf("%w: expiration before effective date", ErrInvalidTaxRate)
		}
	}

	rate := &models.TaxRate{
		Jurisdiction:   j,
		Rate:           req.Rate,
		EffectiveDate:  effective,
		ExpirationDate: req.ExpirationDate,
		Source:         models.TaxRateSourceManual,
	}
	if err := s.repo.Upsert(ctx, rate); err != nil {
		return nil, err
	}
	return rate, nil
}

// List retrieves stored rates, optionally for one jurisdiction
func (s *TaxRateService) List(ctx context.Context, code string) ([]models.TaxRate, error) {
	var j jurisdiction.Code
	if code != "" {
		j = jurisdiction.Normalize(code)
		if !j.Valid() {
			return nil, fmt.Errorf("%w: unknown jurisdiction %q", ErrInvalidTaxRate, code)
		}
	}
	return s.repo.List(ctx, j)
}
