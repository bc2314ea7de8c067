package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jengzang/ifta-backend-go/internal/analysis/foundation"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/models"
)

const fixColumns = `id, trip_id, seq, latitude, longitude, timestamp_ms, jurisdiction, created_at`

// FixRepository handles database operations for accepted trip fixes
type FixRepository struct {
	db *sqlx.DB
}

// NewFixRepository creates a new fix repository
func NewFixRepository(db *sqlx.DB) *FixRepository {
	return &FixRepository{db: db}
}

// Append stores fix as the next fix of the trip
func (r *FixRepository) Append(ctx context.Context, tripID string, fix foundation.TrackedFix) (*models.TrackFix, error) {
	query := `INSERT INTO trip_fixes (trip_id, seq, latitude, longitude, timestamp_ms, jurisdiction)
		SELECT ?, COALESCE(MAX(seq) + 1, 0), ?, ?, ?, ? FROM trip_fixes WHERE trip_id = ?`

	res, err := r.db.ExecContext(ctx, query,
		tripID, fix.Point.Latitude, fix.Point.Longitude, fix.TimestampMs, string(fix.Jurisdiction), tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to append fix: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	var f models.TrackFix
	if err := r.db.GetContext(ctx, &f, `SELECT `+fixColumns+` FROM trip_fixes WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to read appended fix: %w", err)
	}
	return &f, nil
}

// ListByTrip retrieves all fixes of a trip in recording order
func (r *FixRepository) ListByTrip(ctx context.Context, tripID string) ([]models.TrackFix, error) {
	fixes := []models.TrackFix{}
	query := `SELECT ` + fixColumns + ` FROM trip_fixes WHERE trip_id = ? ORDER BY seq`
	if err := r.db.SelectContext(ctx, &fixes, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to query fixes: %w", err)
	}
	return fixes, nil
}

// Last retrieves the most recent fix of a trip
func (r *FixRepository) Last(ctx context.Context, tripID string) (*models.TrackFix, error) {
	var f models.TrackFix
	query := `SELECT ` + fixColumns + ` FROM trip_fixes WHERE trip_id = ? ORDER BY seq DESC LIMIT 1`
	err := r.db.GetContext(ctx, &f, query, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last fix: %w", err)
	}
	return &f, nil
}

// CountByTrip counts the fixes of a trip
func (r *FixRepository) CountByTrip(ctx context.Context, tripID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM trip_fixes WHERE trip_id = ?`, tripID); err != nil {
		return 0, fmt.Errorf("failed to count fixes: %w", err)
	}
	return n, nil
}

// ListUnknown retrieves up to limit fixes without a known jurisdiction,
// starting after the given fix ID
func (r *FixRepository) ListUnknown(ctx context.Context, afterID int64, limit int) ([]models.TrackFix, error) {
	fixes := []models.TrackFix{}
	query := `SELECT ` + fixColumns + ` FROM trip_fixes
		WHERE jurisdiction = ? AND id > ? ORDER BY id LIMIT ?`
	if err := r.db.SelectContext(ctx, &fixes, query, string(jurisdiction.Unknown), afterID, limit); err != nil {
		return nil, fmt.Errorf("failed to query unknown fixes: %w", err)
	}
	return fixes, nil
}

// CountUnknown counts fixes without a known jurisdiction
func (r *FixRepository) CountUnknown(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM trip_fixes WHERE jurisdiction = ?`, string(jurisdiction.Unknown))
	if err != nil {
		return 0, fmt.Errorf("failed to count unknown fixes: %w", err)
	}
	return n, nil
}

// UpdateJurisdiction re-tags a stored fix
func (r *FixRepository) UpdateJurisdiction(ctx context.Context, id int64, code jurisdiction.Code) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE trip_fixes SET jurisdiction = ? WHERE id = ?`, string(code), id); err != nil {
		return fmt.Errorf("failed to update fix jurisdiction: %w", err)
	}
	return nil
}
