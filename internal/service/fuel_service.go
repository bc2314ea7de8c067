package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/ifta"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// CreateFuelPurchaseRequest is a fuel purchase as entered by the driver.
// The jurisdiction may be omitted when coordinates are given.
type CreateFuelPurchaseRequest struct {
	PurchasedAt       int64    `json:"purchased_at"` // Unix ms, 0 means now
	Jurisdiction      string   `json:"jurisdiction"`
	Gallons           float64  `json:"gallons"`
	PricePerGallon    float64  `json:"price_per_gallon"`
	TotalCost         *float64 `json:"total_cost"`
	TaxIncludedAtPump *bool    `json:"tax_included_at_pump"` // defaults to true
	Odometer          *float64 `json:"odometer"`
	Location          string   `json:"location"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Notes             string   `json:"notes"`
}

// FuelService handles business logic for fuel purchases
type FuelService struct {
	repo     *repository.FuelRepository
	resolver geocode.Resolver
	now      func() time.Time
}

// NewFuelService creates a new fuel service
func NewFuelService(repo *repository.FuelRepository, resolver geocode.Resolver) *FuelService {
	return &FuelService{repo: repo, resolver: resolver, now: time.Now}
}

// Create validates and stores a purchase
func (s *FuelService) Create(ctx context.Context, req CreateFuelPurchaseRequest) (*models.FuelPurchase, error) {
	if !(req.Gallons > 0) || math.IsInf(req.Gallons, 0) {
		return nil, fmt.Errorf("%w: gallons must be positive", ErrInvalidFuelPurchase)
	}
	if !(req.PricePerGallon > 0) || math.IsInf(req.PricePerGallon, 0) {
		return nil, fmt.Errorf("%w: price per gallon must be positive", ErrInvalidFuelPurchase)
	}
	if req.TotalCost != nil && *req.TotalCost < 0 {
		return nil, fmt.Errorf("%w: total cost must not be negative", ErrInvalidFuelPurchase)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, fmt.Errorf("%w: latitude and longitude go together", ErrInvalidFuelPurchase)
	}

	code := jurisdiction.Normalize(req.Jurisdiction)
	if !code.Valid() && req.Latitude != nil && s.resolver != nil {
		p := spatial.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if resolved, err := s.resolver.Resolve(ctx, p); err == nil {
			code = resolved
		}
	}
	if !code.Valid() {
		return nil, fmt.Errorf("%w: unknown jurisdiction %q", ErrInvalidFuelPurchase, req.Jurisdiction)
	}

	p := &models.FuelPurchase{
		ID:                uuid.New().String(),
		PurchasedAt:       req.PurchasedAt,
		Jurisdiction:      code,
		Gallons:           req.Gallons,
		PricePerGallon:    req.PricePerGallon,
		TotalCost:         stats.Round(req.Gallons*req.PricePerGallon, 2),
		TaxIncludedAtPump: true,
		Odometer:          req.Odometer,
		Location:          req.Location,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Notes:             req.Notes,
	}
	if p.PurchasedAt <= 0 {
		p.PurchasedAt = s.now().UnixMilli()
	}
	if req.TotalCost != nil {
		p.TotalCost = stats.Round(*req.TotalCost, 2)
	}
	if req.TaxIncludedAtPump != nil {
		p.TaxIncludedAtPump = *req.TaxIncludedAtPump
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get retrieves a purchase by ID
func (s *FuelService) Get(ctx context.Context, id string) (*models.FuelPurchase, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrFuelPurchaseNotFound
	}
	return p, nil
}

// List retrieves purchases. A year, or a year and quarter, narrow the time
// range; the jurisdiction filter accepts names as well as codes.
func (s *FuelService) List(ctx context.Context, filter models.FuelFilter) ([]models.FuelPurchase, int64, error) {
	if filter.Quarter != 0 {
		q, err := ifta.NewQuarter(filter.Year, filter.Quarter)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFuelPurchase, err)
		}
		filter.StartTime, filter.EndTime = q.Range()
	} else if filter.Year != 0 {
		first, err := ifta.NewQuarter(filter.Year, 1)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFuelPurchase, err)
		}
		filter.StartTime = first.Start().UnixMilli()
		filter.EndTime = ifta.Quarter{Year: filter.Year, Number: 4}.End().UnixMilli()
	}

	if filter.Jurisdiction != "" {
		code := jurisdiction.Normalize(filter.Jurisdiction)
		if !code.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown jurisdiction %q", ErrInvalidFuelPurchase, filter.Jurisdiction)
		}
		filter.Jurisdiction = string(code)
	}

	return s.repo.List(ctx, filter)
}

// Delete removes a purchase
func (s *FuelService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrFuelPurchaseNotFound
	}
	return nil
}
