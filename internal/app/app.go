// Package app wires configuration, storage and services together for the
// server and the command line tools.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/analysis"
	"github.com/jengzang/ifta-backend-go/internal/api"
	"github.com/jengzang/ifta-backend-go/internal/config"
	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/pkg/session"

	// registers the recompute analyzers
	_ "github.com/jengzang/ifta-backend-go/internal/analysis/recompute"
)

// App holds the wired application
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	DB       *sqlx.DB
	Resolver geocode.Resolver
	Services api.Services

	redis *redis.Client
}

// New builds services over an open, migrated database
func New(cfg *config.Config, db *sqlx.DB, logger zerolog.Logger) (*App, error) {
	resolver, rdb, err := NewResolver(cfg, logger)
	if err != nil {
		return nil, err
	}

	trips := repository.NewTripRepository(db)
	fixes := repository.NewFixRepository(db)
	fuel := repository.NewFuelRepository(db)
	rates := service.NewTaxRateService(repository.NewTaxRateRepository(db))

	tracking := service.NewTrackingService(
		trips,
		fixes,
		resolver,
		session.NewIssuer(cfg.Server.JWTSecret, cfg.Tracking.SessionTTL),
		service.TrackingOptions{
			Thresholds:        cfg.Tracking.Thresholds,
			StatsRefreshEvery: cfg.Tracking.StatsRefreshEvery,
		},
		logger,
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Resolver: resolver,
		Services: api.Services{
			Trips:    service.NewTripService(trips, fixes),
			Tracking: tracking,
			Fuel:     service.NewFuelService(fuel, resolver),
			TaxRates: rates,
			Reports:  service.NewReportService(trips, fuel, rates),
			Tasks: service.NewAnalysisTaskService(repository.NewAnalysisTaskRepository(db), analysis.Deps{
				DB:       db,
				Resolver: resolver,
				Logger:   logger,
			}),
		},
		redis: rdb,
	}, nil
}

// Close waits for running tasks and releases the cache connection. The
// database is owned by the caller.
func (a *App) Close() error {
	a.Services.Tasks.Wait()
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// NewResolver builds the jurisdiction resolver described by cfg. The Redis
// client is returned when the redis cache is in use so the caller can close
// it.
func NewResolver(cfg *config.Config, logger zerolog.Logger) (geocode.Resolver, *redis.Client, error) {
	gc := cfg.Geocode
	log := logger.With().Str("component", "geocode").Logger()

	switch {
	case gc.Provider == "static":
		log.Info().Str("jurisdiction", gc.StaticJurisdiction).Msg("Using static jurisdiction")
		return geocode.NewStaticResolver(gc.StaticJurisdiction), nil, nil
	case gc.APIKey == "":
		// fixes are stored as UNK and fixed later by jurisdiction_backfill
		log.Warn().Msg("No Google Maps API key configured, jurisdictions will be unknown")
		return geocode.NewStaticResolver(""), nil, nil
	}

	google, err := geocode.NewGoogleResolver(gc.APIKey, gc.Timeout)
	if err != nil {
		return nil, nil, err
	}

	opts := geocode.CacheOptions{
		TTL:           gc.CacheTTL,
		ReuseRadiusM:  gc.ReuseRadiusM,
		CellPrecision: gc.CellPrecision,
	}

	switch gc.Cache {
	case "none":
		return google, nil, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis geocode cache")
		return geocode.NewCachedResolver(google, geocode.NewRedisCache(rdb, cfg.Redis.KeyPrefix, opts), logger), rdb, nil
	default:
		return geocode.NewCachedResolver(google, geocode.NewMemoryCache(opts), logger), nil, nil
	}
}
