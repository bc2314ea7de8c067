package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/ifta-backend-go/internal/analysis"
	"github.com/jengzang/ifta-backend-go/internal/config"
	"github.com/jengzang/ifta-backend-go/internal/database"
	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

func TestNewResolverStatic(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Geocode.Provider = "static"
	cfg.Geocode.StaticJurisdiction = "nevada"

	r, rdb, err := NewResolver(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, rdb)

	code, err := r.Resolve(context.Background(), spatial.GeoPoint{Latitude: 39, Longitude: -119})
	require.NoError(t, err)
	assert.Equal(t, jurisdiction.Code("NV"), code)
}

func TestNewResolverWithoutAPIKey(t *testing.T) {
	cfg := config.DefaultConfig()

	r, _, err := NewResolver(cfg, zerolog.Nop())
	require.NoError(t, err)

	code, err := r.Resolve(context.Background(), spatial.GeoPoint{Latitude: 39, Longitude: -119})
	require.NoError(t, err)
	assert.Equal(t, jurisdiction.Unknown, code)
}

func TestNewResolverCaches(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Geocode.APIKey = "AIza-test-key"

	r, _, err := NewResolver(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &geocode.CachedResolver{}, r)

	cfg.Geocode.Cache = "none"
	r, _, err = NewResolver(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &geocode.GoogleResolver{}, r)

	mr := miniredis.RunT(t)
	cfg.Geocode.Cache = "redis"
	cfg.Redis.Addr = mr.Addr()
	r, rdb, err := NewResolver(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, rdb)
	defer rdb.Close()
	assert.IsType(t, &geocode.CachedResolver{}, r)

	mr.Close()
	_, _, err = NewResolver(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "redis")
}

func TestNew(t *testing.T) {
	db, err := database.Setup(database.Config{Path: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	cfg := config.DefaultConfig()
	cfg.Geocode.Provider = "static"
	cfg.Geocode.StaticJurisdiction = "CA"

	a, err := New(cfg, db, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Services.Tracking)
	assert.NotNil(t, a.Services.Reports)
	assert.Contains(t, analysis.Skills(), "trip_mileage")
	assert.Contains(t, analysis.Skills(), "jurisdiction_backfill")

	active, err := a.Services.Tracking.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active)
}
