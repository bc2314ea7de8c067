package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/ifta-backend-go/internal/database"
	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/pkg/session"
)

// The CA/NV line is approximated by a meridian just east of Lake Tahoe
const boundaryLon = -119.995

func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Setup(database.Config{Path: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func boundaryResolver() geocode.Resolver {
	return geocode.ResolverFunc(func(_ context.Context, p spatial.GeoPoint) (jurisdiction.Code, error) {
		if p.Longitude < boundaryLon {
			return "CA", nil
		}
		return "NV", nil
	})
}

func unknownResolver() geocode.Resolver {
	return geocode.ResolverFunc(func(context.Context, spatial.GeoPoint) (jurisdiction.Code, error) {
		return jurisdiction.Unknown, nil
	})
}

func newTrackingService(db *sqlx.DB, resolver geocode.Resolver) *TrackingService {
	return NewTrackingService(
		repository.NewTripRepository(db),
		repository.NewFixRepository(db),
		resolver,
		session.NewIssuer("test-secret", time.Hour),
		TrackingOptions{},
		zerolog.Nop(),
	)
}

// drive records n fixes heading east along 39°N, one every minute,
// starting at lon -120.2 in steps of 0.01° (~0.54 mi)
func drive(t *testing.T, s *TrackingService, tripID string, startMs int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		res, err := s.RecordFix(context.Background(), tripID, RawFix{
			Latitude:    39.0,
			Longitude:   -120.2 + float64(i)*0.01,
			TimestampMs: startMs + int64(i)*60_000,
		})
		require.NoError(t, err)
		require.Equal(t, "accepted", res.Decision, "fix %d", i)
	}
}
