package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func newFuelService(t *testing.T) *FuelService {
	return NewFuelService(repository.NewFuelRepository(setupDB(t)), boundaryResolver())
}

func TestFuelCreate(t *testing.T) {
	ctx := context.Background()
	s := newFuelService(t)

	p, err := s.Create(ctx, CreateFuelPurchaseRequest{
		PurchasedAt:    time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC).UnixMilli(),
		Jurisdiction:   "Nevada",
		Gallons:        120.5,
		PricePerGallon: 4.199,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, jurisdiction.Code("NV"), p.Jurisdiction)
	assert.Equal(t, 505.98, p.TotalCost)
	assert.True(t, p.TaxIncludedAtPump)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Gallons, got.Gallons)
	assert.Equal(t, p.TotalCost, got.TotalCost)

	p, err = s.Create(ctx, CreateFuelPurchaseRequest{
		Gallons:           50,
		PricePerGallon:    5,
		TotalCost:         ptr(249.999),
		TaxIncludedAtPump: ptr(false),
		Latitude:          ptr(39.0),
		Longitude:         ptr(-120.5),
	})
	require.NoError(t, err)
	assert.Equal(t, jurisdiction.Code("CA"), p.Jurisdiction, "resolved from coordinates")
	assert.Equal(t, 250.0, p.TotalCost)
	assert.False(t, p.TaxIncludedAtPump)
	assert.NotZero(t, p.PurchasedAt)
}

func TestFuelCreateValidation(t *testing.T) {
	s := newFuelService(t)

	tests := []struct {
		name string
		req  CreateFuelPurchaseRequest
	}{
		{"Zero gallons", CreateFuelPurchaseRequest{Jurisdiction: "CA", PricePerGallon: 4}},
		{"Negative gallons", CreateFuelPurchaseRequest{Jurisdiction: "CA", Gallons: -1, PricePerGallon: 4}},
		{"Zero price", CreateFuelPurchaseRequest{Jurisdiction: "CA", Gallons: 10}},
		{"Negative total", CreateFuelPurchaseRequest{Jurisdiction: "CA", Gallons: 10, PricePerGallon: 4, TotalCost: ptr(-1.0)}},
		{"Unknown jurisdiction", CreateFuelPurchaseRequest{Jurisdiction: "Atlantis", Gallons: 10, PricePerGallon: 4}},
		{"No jurisdiction", CreateFuelPurchaseRequest{Gallons: 10, PricePerGallon: 4}},
		{"Half a location", CreateFuelPurchaseRequest{Gallons: 10, PricePerGallon: 4, Latitude: ptr(39.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidFuelPurchase)
		})
	}
}

func TestFuelListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newFuelService(t)

	dates := []time.Time{
		time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	var ids []string
	for i, d := range dates {
		code := "CA"
		if i%2 == 1 {
			code = "NV"
		}
		p, err := s.Create(ctx, CreateFuelPurchaseRequest{
			PurchasedAt: d.UnixMilli(), Jurisdiction: code, Gallons: 10, PricePerGallon: 4,
		})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	list, total, err := s.List(ctx, models.FuelFilter{Year: 2025, Quarter: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	_, total, err = s.List(ctx, models.FuelFilter{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	list, total, err = s.List(ctx, models.FuelFilter{Jurisdiction: "nevada"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, p := range list {
		assert.Equal(t, jurisdiction.Code("NV"), p.Jurisdiction)
	}

	_, _, err = s.List(ctx, models.FuelFilter{Year: 2025, Quarter: 5})
	assert.ErrorIs(t, err, ErrInvalidFuelPurchase)

	require.NoError(t, s.Delete(ctx, ids[0]))
	assert.ErrorIs(t, s.Delete(ctx, ids[0]), ErrFuelPurchaseNotFound)
	_, err = s.Get(ctx, ids[0])
	assert.ErrorIs(t, err, ErrFuelPurchaseNotFound)
}
