package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

const t0 = int64(1_746_000_000_000) // 2025-04-30

func TestTrackingLifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	s := newTrackingService(db, boundaryResolver())

	started, err := s.Start(ctx, StartRequest{Latitude: 39.0, Longitude: -120.2, Address: "Truckee"})
	require.NoError(t, err)
	assert.NotEmpty(t, started.SessionToken)
	assert.True(t, started.Trip.IsActive)
	assert.Equal(t, jurisdiction.Code("CA"), started.Trip.StartJurisdiction)
	tripID := started.Trip.ID

	_, err = s.Start(ctx, StartRequest{Latitude: 39.0, Longitude: -120.2})
	assert.ErrorIs(t, err, ErrTripAlreadyActive)

	require.NoError(t, s.Authorize(started.SessionToken, tripID))
	assert.ErrorIs(t, s.Authorize(started.SessionToken, "other-trip"), ErrInvalidSession)
	assert.ErrorIs(t, s.Authorize("garbage", tripID), ErrInvalidSession)

	drive(t, s, tripID, t0, 41)

	trips := repository.NewTripRepository(db)
	trip, err := trips.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 40, trip.FixCount, "stats refresh every 10 accepted fixes")
	assert.Greater(t, trip.TotalMiles, 0.0)

	stopped, err := s.Stop(ctx, tripID, StopRequest{Address: "Reno"})
	require.NoError(t, err)
	assert.False(t, stopped.IsActive)
	assert.Equal(t, 41, stopped.FixCount)
	require.NotNil(t, stopped.EndedAt)
	assert.Equal(t, jurisdiction.Code("NV"), stopped.EndJurisdiction)
	require.NotNil(t, stopped.EndLon)
	assert.InDelta(t, -119.8, *stopped.EndLon, 1e-9)

	// 40 segments of ~0.537 mi
	assert.InDelta(t, 21.5, stopped.TotalMiles, 0.2)
	ca := stopped.MilesByJurisdiction["CA"]
	nv := stopped.MilesByJurisdiction["NV"]
	assert.Greater(t, ca, 0.0)
	assert.Greater(t, nv, 0.0)
	assert.InDelta(t, stopped.TotalMiles, ca+nv, 0.05)

	stored, err := trips.GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, stopped.TotalMiles, stored.TotalMiles)

	_, err = s.RecordFix(ctx, tripID, RawFix{Latitude: 39.0, Longitude: -119.7, TimestampMs: t0 + 3_600_000})
	assert.ErrorIs(t, err, ErrNoActiveTrip)
	_, err = s.Stop(ctx, tripID, StopRequest{})
	assert.ErrorIs(t, err, ErrNoActiveTrip)
	_, err = s.Stop(ctx, "missing", StopRequest{})
	assert.ErrorIs(t, err, ErrTripNotFound)

	_, err = s.Start(ctx, StartRequest{Latitude: 39.5, Longitude: -119.8})
	assert.NoError(t, err, "a new trip can start once the previous one stopped")
}

func TestRecordFixDecisions(t *testing.T) {
	ctx := context.Background()
	s := newTrackingService(setupDB(t), boundaryResolver())

	started, err := s.Start(ctx, StartRequest{Latitude: 39.0, Longitude: -120.2})
	require.NoError(t, err)
	id := started.Trip.ID

	res, err := s.RecordFix(ctx, id, RawFix{Latitude: 39.0, Longitude: -120.2, TimestampMs: t0})
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Decision)
	require.NotNil(t, res.Fix)
	assert.Equal(t, 0, res.Fix.Seq)
	assert.Equal(t, jurisdiction.Code("CA"), res.Fix.Jurisdiction)

	res, err = s.RecordFix(ctx, id, RawFix{Latitude: 39.0001, Longitude: -120.2, TimestampMs: t0 + 5_000})
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Decision)
	assert.Nil(t, res.Fix)

	// ~5 mi in 2 s
	res, err = s.RecordFix(ctx, id, RawFix{Latitude: 39.0, Longitude: -120.107, TimestampMs: t0 + 2_000})
	require.NoError(t, err)
	assert.Equal(t, "rejected_noise", res.Decision)

	res, err = s.RecordFix(ctx, id, RawFix{Latitude: 39.0, Longitude: -120.19, TimestampMs: t0 + 60_000})
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Decision)
	assert.Equal(t, 1, res.Fix.Seq)

	_, err = s.RecordFix(ctx, id, RawFix{Latitude: 91, Longitude: 0})
	assert.ErrorIs(t, err, ErrInvalidFix)
	_, err = s.RecordFix(ctx, "not-a-trip", RawFix{Latitude: 39, Longitude: -120})
	assert.ErrorIs(t, err, ErrNoActiveTrip)
}

func TestStopWithoutFixesUsesStart(t *testing.T) {
	ctx := context.Background()
	s := newTrackingService(setupDB(t), boundaryResolver())

	started, err := s.Start(ctx, StartRequest{Latitude: 39.5, Longitude: -119.8})
	require.NoError(t, err)

	trip, err := s.Stop(ctx, started.Trip.ID, StopRequest{})
	require.NoError(t, err)
	assert.Zero(t, trip.TotalMiles)
	assert.Empty(t, trip.MilesByJurisdiction)
	assert.Equal(t, jurisdiction.Code("NV"), trip.EndJurisdiction)
	require.NotNil(t, trip.EndLat)
	assert.Equal(t, 39.5, *trip.EndLat)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	first := newTrackingService(db, boundaryResolver())
	none, err := first.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	started, err := first.Start(ctx, StartRequest{Latitude: 39.0, Longitude: -120.2})
	require.NoError(t, err)
	id := started.Trip.ID
	drive(t, first, id, t0, 3)

	// simulated restart
	second := newTrackingService(db, boundaryResolver())
	_, err = second.RecordFix(ctx, id, RawFix{Latitude: 39.0, Longitude: -120.0, TimestampMs: t0 + 600_000})
	assert.ErrorIs(t, err, ErrNoActiveTrip)

	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, id, restored.ID)

	// the cursor resumes after the last stored fix at lon -120.18
	res, err := second.RecordFix(ctx, id, RawFix{Latitude: 39.0, Longitude: -120.18, TimestampMs: t0 + 130_000})
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Decision)

	res, err = second.RecordFix(ctx, id, RawFix{Latitude: 39.0, Longitude: -120.17, TimestampMs: t0 + 180_000})
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Decision)
	assert.Equal(t, 3, res.Fix.Seq)

	trip, err := second.Stop(ctx, id, StopRequest{})
	require.NoError(t, err)
	assert.Equal(t, 4, trip.FixCount)
}

func TestUnknownJurisdictionIsRecorded(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	s := newTrackingService(db, unknownResolver())

	started, err := s.Start(ctx, StartRequest{Latitude: 39.0, Longitude: -120.2})
	require.NoError(t, err)
	assert.Equal(t, jurisdiction.Unknown, started.Trip.StartJurisdiction)

	drive(t, s, started.Trip.ID, t0, 3)
	trip, err := s.Stop(ctx, started.Trip.ID, StopRequest{})
	require.NoError(t, err)
	assert.Greater(t, trip.TotalMiles, 1.0)
	assert.Empty(t, trip.MilesByJurisdiction, "unknown shares are not attributed")
}

// slowPointResolver blocks lookups at latitude 45 until release is closed
func slowPointResolver(entered chan<- struct{}, release <-chan struct{}) geocode.Resolver {
	next := boundaryResolver()
	return geocode.ResolverFunc(func(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, error) {
		if p.Latitude != 45 {
			return next.Resolve(ctx, p)
		}
		entered <- struct{}{}
		<-release
		return "OR", nil
	})
}

func recordWithin(t *testing.T, s *TrackingService, tripID string, fix RawFix) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := s.RecordFix(context.Background(), tripID, fix)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RecordFix blocked behind a geocode lookup")
	}
}

func TestSlowGeocodeDoesNotBlockFixes(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	s := newTrackingService(db, slowPointResolver(entered, release))

	started, err := s.Start(ctx, StartRequest{Latitude: 39.0, Longitude: -120.2})
	require.NoError(t, err)
	tripID := started.Trip.ID

	startErr := make(chan error, 1)
	go func() {
		_, err := s.Start(ctx, StartRequest{Latitude: 45, Longitude: -120.2})
		startErr <- err
	}()
	<-entered
	recordWithin(t, s, tripID, RawFix{Latitude: 39.0, Longitude: -120.2, TimestampMs: t0})
	release <- struct{}{}
	assert.ErrorIs(t, <-startErr, ErrTripAlreadyActive)

	lat, lon := 45.0, -120.2
	stopped := make(chan error, 1)
	var endCode jurisdiction.Code
	go func() {
		trip, err := s.Stop(ctx, tripID, StopRequest{Latitude: &lat, Longitude: &lon})
		if err == nil {
			endCode = trip.EndJurisdiction
		}
		stopped <- err
	}()
	<-entered
	recordWithin(t, s, tripID, RawFix{Latitude: 39.0, Longitude: -120.19, TimestampMs: t0 + 60_000})
	close(release)
	require.NoError(t, <-stopped)
	assert.Equal(t, jurisdiction.Code("OR"), endCode)

	trip, err := repository.NewTripRepository(db).GetByID(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, trip.FixCount)
}
