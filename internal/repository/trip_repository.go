package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jengzang/ifta-backend-go/internal/models"
)

const tripColumns = `id, started_at, ended_at,
		start_lat, start_lon, start_address, start_jurisdiction,
		end_lat, end_lon, end_address, end_jurisdiction,
		total_miles, miles_by_jurisdiction, fix_count, is_active, notes,
		created_at, updated_at`

// TripRepository handles database operations for trips
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// Create inserts a new trip
func (r *TripRepository) Create(ctx context.Context, t *models.Trip) error {
	if t.MilesByJurisdiction == nil {
		t.MilesByJurisdiction = models.JurisdictionMiles{}
	}

	query := `INSERT INTO trips (
			id, started_at, start_lat, start_lon, start_address, start_jurisdiction,
			total_miles, miles_by_jurisdiction, fix_count, is_active, notes
		) VALUES (
			:id, :started_at, :start_lat, :start_lon, :start_address, :start_jurisdiction,
			:total_miles, :miles_by_jurisdiction, :fix_count, :is_active, :notes
		)`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetByID retrieves a single trip by ID
func (r *TripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	var t models.Trip
	err := r.db.GetContext(ctx, &t, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &t, nil
}

// GetActive retrieves the active trip, if any
func (r *TripRepository) GetActive(ctx context.Context) (*models.Trip, error) {
	var t models.Trip
	err := r.db.GetContext(ctx, &t, `SELECT `+tripColumns+` FROM trips WHERE is_active = 1 LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}
	return &t, nil
}

// List retrieves trips with filtering and pagination
func (r *TripRepository) List(ctx context.Context, filter models.TripFilter) ([]models.Trip, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.StartTime > 0 {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.Active != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *filter.Active)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM trips"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	filter.Normalize()
	offset := (filter.Page - 1) * filter.PageSize
	query := `SELECT ` + tripColumns + ` FROM trips` + where + ` ORDER BY started_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, offset)

	trips := []models.Trip{}
	if err := r.db.SelectContext(ctx, &trips, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query trips: %w", err)
	}

	return trips, total, nil
}

// ListClosedInRange retrieves closed trips started within [startMs, endMs]
func (r *TripRepository) ListClosedInRange(ctx context.Context, startMs, endMs int64) ([]models.Trip, error) {
	trips := []models.Trip{}
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE is_active = 0 AND started_at >= ? AND started_at <= ?
		ORDER BY started_at`
	if err := r.db.SelectContext(ctx, &trips, query, startMs, endMs); err != nil {
		return nil, fmt.Errorf("failed to query trips in range: %w", err)
	}
	return trips, nil
}

// ListClosed retrieves a page of closed trips ordered by start time
func (r *TripRepository) ListClosed(ctx context.Context, limit, offset int) ([]models.Trip, error) {
	trips := []models.Trip{}
	query := `SELECT ` + tripColumns + ` FROM trips WHERE is_active = 0 ORDER BY started_at, id LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &trips, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to query closed trips: %w", err)
	}
	return trips, nil
}

// CountClosed counts closed trips
func (r *TripRepository) CountClosed(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM trips WHERE is_active = 0`); err != nil {
		return 0, fmt.Errorf("failed to count closed trips: %w", err)
	}
	return n, nil
}

// UpdateStats stores running mileage figures of a trip
func (r *TripRepository) UpdateStats(ctx context.Context, id string, totalMiles float64, byJurisdiction models.JurisdictionMiles, fixCount int) error {
	query := `UPDATE trips
		SET total_miles = ?, miles_by_jurisdiction = ?, fix_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, totalMiles, byJurisdiction, fixCount, id); err != nil {
		return fmt.Errorf("failed to update trip stats: %w", err)
	}
	return nil
}

// Close writes the end of an active trip and marks it inactive.
// It reports false when the trip was not active.
func (r *TripRepository) Close(ctx context.Context, t *models.Trip) (bool, error) {
	query := `UPDATE trips
		SET ended_at = :ended_at, end_lat = :end_lat, end_lon = :end_lon,
			end_address = :end_address, end_jurisdiction = :end_jurisdiction,
			total_miles = :total_miles, miles_by_jurisdiction = :miles_by_jurisdiction,
			fix_count = :fix_count, notes = :notes, is_active = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = :id AND is_active = 1`

	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return false, fmt.Errorf("failed to close trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes a trip and, by cascade, its fixes
func (r *TripRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}
