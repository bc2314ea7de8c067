package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/analysis/foundation"
	"github.com/jengzang/ifta-backend-go/internal/analysis/mileage"
	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/internal/stats"
	"github.com/jengzang/ifta-backend-go/pkg/session"
)

// DefaultStatsRefreshEvery is the number of accepted fixes between refreshes
// of a trip's running mileage
const DefaultStatsRefreshEvery = 10

// StartRequest starts a trip at the given location
type StartRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Notes     string  `json:"notes"`
}

// StartResult is the new trip and the token its device must present
type StartResult struct {
	Trip         *models.Trip `json:"trip"`
	SessionToken string       `json:"session_token"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
}

// RawFix is an unfiltered GPS reading
type RawFix struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	TimestampMs int64   `json:"timestamp_ms"` // Unix ms, 0 means now
}

// FixResult reports what happened to a RawFix
type FixResult struct {
	Decision string           `json:"decision"`
	Fix      *models.TrackFix `json:"fix,omitempty"`
}

// StopRequest ends a trip. Without an explicit location the last recorded
// fix is used as the end of the trip.
type StopRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
	Notes     string   `json:"notes"`
}

// TrackingOptions configures a TrackingService
type TrackingOptions struct {
	Thresholds        foundation.Thresholds
	StatsRefreshEvery int
}

// trackingSession is the in-memory state of the active trip
type trackingSession struct {
	mu           sync.Mutex
	tripID       string
	cursor       foundation.Cursor
	sinceRefresh int
	closed       bool
}

// TrackingService runs the live tracking pipeline: sampling, noise
// rejection, jurisdiction tagging and persistence of accepted fixes.
type TrackingService struct {
	trips    *repository.TripRepository
	fixes    *repository.FixRepository
	resolver geocode.Resolver
	issuer   *session.Issuer
	opts     TrackingOptions
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex // guards sessions, serializes start and stop
	sessions map[string]*trackingSession
}

// NewTrackingService creates a new tracking service
func NewTrackingService(
	trips *repository.TripRepository,
	fixes *repository.FixRepository,
	resolver geocode.Resolver,
	issuer *session.Issuer,
	opts TrackingOptions,
	logger zerolog.Logger,
) *TrackingService {
	if opts.Thresholds == (foundation.Thresholds{}) {
		opts.Thresholds = foundation.DefaultThresholds
	}
	if opts.StatsRefreshEvery <= 0 {
		opts.StatsRefreshEvery = DefaultStatsRefreshEvery
	}

	return &TrackingService{
		trips:    trips,
		fixes:    fixes,
		resolver: resolver,
		issuer:   issuer,
		opts:     opts,
		logger:   logger.With().Str("component", "tracking").Logger(),
		now:      time.Now,
		sessions: make(map[string]*trackingSession),
	}
}

// Start creates the active trip and opens its tracking session
func (s *TrackingService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	p := spatial.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude}
	if !validPoint(p) {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidFix)
	}
	startCode := s.resolve(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.trips.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrTripAlreadyActive
	}

	trip := &models.Trip{
		ID:                  uuid.New().String(),
		StartedAt:           s.now().UnixMilli(),
		StartLat:            req.Latitude,
		StartLon:            req.Longitude,
		StartAddress:        req.Address,
		StartJurisdiction:   startCode,
		MilesByJurisdiction: models.JurisdictionMiles{},
		IsActive:            true,
		Notes:               req.Notes,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.issuer.Issue(trip.ID)
	if err != nil {
		return nil, err
	}

	s.sessions[trip.ID] = &trackingSession{tripID: trip.ID}

	s.logger.Info().
		Str("trip_id", trip.ID).
		Str("jurisdiction", string(trip.StartJurisdiction)).
		Msg("Trip started")

	res := &StartResult{Trip: trip, SessionToken: token}
	if !expiresAt.IsZero() {
		res.ExpiresAt = &expiresAt
	}
	return res, nil
}

// RecordFix offers a raw fix to the trip's sampling cursor. Accepted fixes
// are tagged with their jurisdiction and stored.
func (s *TrackingService) RecordFix(ctx context.Context, tripID string, raw RawFix) (*FixResult, error) {
	p := spatial.GeoPoint{Latitude: raw.Latitude, Longitude: raw.Longitude}
	if !validPoint(p) {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidFix)
	}
	ts := raw.TimestampMs
	if ts <= 0 {
		ts = s.now().UnixMilli()
	}

	sess := s.session(tripID)
	if sess == nil {
		return nil, ErrNoActiveTrip
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrNoActiveTrip
	}

	next, decision := sess.cursor.Offer(s.opts.Thresholds, p, ts)
	if decision != foundation.Accepted {
		s.logger.Debug().
			Str("trip_id", tripID).
			Str("decision", decision.String()).
			Msg("Fix not sampled")
		return &FixResult{Decision: decision.String()}, nil
	}

	fix := *next.Last
	fix.Jurisdiction = s.resolve(ctx, p)

	stored, err := s.fixes.Append(ctx, tripID, fix)
	if err != nil {
		return nil, err
	}

	sess.cursor = sess.cursor.Accept(fix)
	sess.sinceRefresh++
	if sess.sinceRefresh >= s.opts.StatsRefreshEvery {
		if err := s.refreshStats(ctx, tripID); err != nil {
			s.logger.Warn().Err(err).Str("trip_id", tripID).Msg("Failed to refresh trip stats")
		} else {
			sess.sinceRefresh = 0
		}
	}

	return &FixResult{Decision: decision.String(), Fix: stored}, nil
}

// Stop closes the trip with its final mileage
func (s *TrackingService) Stop(ctx context.Context, tripID string, req StopRequest) (*models.Trip, error) {
	var end *spatial.GeoPoint
	var endCode jurisdiction.Code
	if req.Latitude != nil && req.Longitude != nil {
		end = &spatial.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if !validPoint(*end) {
			return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidFix)
		}
		endCode = s.resolve(ctx, *end)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}
	if !trip.IsActive {
		return nil, ErrNoActiveTrip
	}

	// wait for any fix being recorded
	sess := s.sessions[tripID]
	if sess != nil {
		sess.mu.Lock()
		defer sess.mu.Unlock()
	}

	rows, err := s.fixes.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	summary := mileage.Summarize(models.TrackedFixes(rows))

	endedAt := s.now().UnixMilli()
	trip.EndedAt = &endedAt
	trip.TotalMiles = stats.Round(summary.TotalMiles, 2)
	trip.MilesByJurisdiction = models.JurisdictionMiles(summary.ByJurisdiction)
	trip.FixCount = len(rows)
	trip.EndAddress = req.Address
	if req.Notes != "" {
		trip.Notes = req.Notes
	}

	switch {
	case end != nil:
		trip.EndLat, trip.EndLon = req.Latitude, req.Longitude
		trip.EndJurisdiction = endCode
	case len(rows) > 0:
		last := rows[len(rows)-1]
		trip.EndLat, trip.EndLon = &last.Latitude, &last.Longitude
		trip.EndJurisdiction = last.Jurisdiction
	default:
		trip.EndLat, trip.EndLon = &trip.StartLat, &trip.StartLon
		trip.EndJurisdiction = trip.StartJurisdiction
	}

	closed, err := s.trips.Close(ctx, trip)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, ErrNoActiveTrip
	}
	trip.IsActive = false
	if sess != nil {
		sess.closed = true
	}
	delete(s.sessions, tripID)

	s.logger.Info().
		Str("trip_id", tripID).
		Float64("total_miles", trip.TotalMiles).
		Float64("unattributed_miles", summary.UnattributedMiles).
		Int("fixes", trip.FixCount).
		Msg("Trip stopped")

	return trip, nil
}

// Restore reopens the session of a trip left active by a previous run.
// It returns nil when no trip is active.
func (s *TrackingService) Restore(ctx context.Context) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, err := s.trips.GetActive(ctx)
	if err != nil || trip == nil {
		return nil, err
	}

	last, err := s.fixes.Last(ctx, trip.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.fixes.CountByTrip(ctx, trip.ID)
	if err != nil {
		return nil, err
	}

	sess := &trackingSession{tripID: trip.ID, sinceRefresh: count % s.opts.StatsRefreshEvery}
	if last != nil {
		fix := last.Tracked()
		sess.cursor = foundation.NewCursor(&fix)
	}
	s.sessions[trip.ID] = sess

	s.logger.Info().
		Str("trip_id", trip.ID).
		Int("fixes", count).
		Msg("Tracking session restored")
	return trip, nil
}

// Active returns the active trip, or nil
func (s *TrackingService) Active(ctx context.Context) (*models.Trip, error) {
	return s.trips.GetActive(ctx)
}

// Authorize checks that token was issued for tripID
func (s *TrackingService) Authorize(token, tripID string) error {
	got, err := s.issuer.Validate(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if got != tripID {
		return fmt.Errorf("%w: token belongs to another trip", ErrInvalidSession)
	}
	return nil
}

func (s *TrackingService) session(tripID string) *trackingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[tripID]
}

// refreshStats recomputes running mileage from the stored fixes
func (s *TrackingService) refreshStats(ctx context.Context, tripID string) error {
	rows, err := s.fixes.ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	summary := mileage.Summarize(models.TrackedFixes(rows))
	return s.trips.UpdateStats(ctx, tripID,
		stats.Round(summary.TotalMiles, 2),
		models.JurisdictionMiles(summary.ByJurisdiction),
		len(rows))
}

func (s *TrackingService) resolve(ctx context.Context, p spatial.GeoPoint) jurisdiction.Code {
	code, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Jurisdiction lookup failed")
		return jurisdiction.Unknown
	}
	return code
}

func validPoint(p spatial.GeoPoint) bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}
