package geocode

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// Cache stores resolved jurisdictions by location. Lookup first tries the
// point's own cell, then any fresh entry within the reuse radius.
type Cache interface {
	Lookup(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, bool, error)
	Store(ctx context.Context, p spatial.GeoPoint, code jurisdiction.Code) error
}

// CacheOptions configures a cache
type CacheOptions struct {
	TTL           time.Duration
	ReuseRadiusM  float64
	CellPrecision uint
}

// DefaultCacheOptions keeps entries 5 minutes in ~150 m cells and reuses
// them up to 500 m away
var DefaultCacheOptions = CacheOptions{
	TTL:           5 * time.Minute,
	ReuseRadiusM:  500,
	CellPrecision: spatial.DefaultCellPrecision,
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.TTL <= 0 {
		o.TTL = DefaultCacheOptions.TTL
	}
	if o.ReuseRadiusM < 0 {
		o.ReuseRadiusM = 0
	}
	if o.CellPrecision == 0 {
		o.CellPrecision = DefaultCacheOptions.CellPrecision
	}
	return o
}

// CachedResolver puts a Cache in front of a Resolver. Provider failures
// resolve to Unknown and are logged rather than returned, so a flaky
// geocoder never blocks fix recording.
type CachedResolver struct {
	next   Resolver
	cache  Cache
	logger zerolog.Logger
}

// NewCachedResolver wraps next with cache
func NewCachedResolver(next Resolver, cache Cache, logger zerolog.Logger) *CachedResolver {
	return &CachedResolver{
		next:   next,
		cache:  cache,
		logger: logger.With().Str("component", "geocode").Logger(),
	}
}

// Resolve returns the cached jurisdiction for p or asks the wrapped resolver
func (r *CachedResolver) Resolve(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, error) {
	code, ok, err := r.cache.Lookup(ctx, p)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Geocode cache lookup failed")
	}
	if ok {
		return code, nil
	}

	code, err = r.next.Resolve(ctx, p)
	if err != nil {
		r.logger.Warn().Err(err).
			Float64("lat", p.Latitude).
			Float64("lon", p.Longitude).
			Msg("Reverse geocode failed, using Unknown")
		return jurisdiction.Unknown, nil
	}

	// Unknown answers are retried on the next fix
	if !code.Valid() {
		return jurisdiction.Unknown, nil
	}

	if err := r.cache.Store(ctx, p, code); err != nil {
		r.logger.Warn().Err(err).Msg("Geocode cache store failed")
	}
	return code, nil
}
