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

const fuelColumns = `id, purchased_at, jurisdiction, gallons, price_per_gallon, total_cost,
		tax_included_at_pump, odometer, location, latitude, longitude, notes, created_at`

// FuelRepository handles database operations for fuel purchases
type FuelRepository struct {
	db *sqlx.DB
}

// NewFuelRepository creates a new fuel purchase repository
func NewFuelRepository(db *sqlx.DB) *FuelRepository {
	return &FuelRepository{db: db}
}

// Create inserts a fuel purchase
func (r *FuelRepository) Create(ctx context.Context, p *models.FuelPurchase) error {
	query := `INSERT INTO fuel_purchases (
			id, purchased_at, jurisdiction, gallons, price_per_gallon, total_cost,
			tax_included_at_pump, odometer, location, latitude, longitude, notes
		) VALUES (
			:id, :purchased_at, :jurisdiction, :gallons, :price_per_gallon, :total_cost,
			:tax_included_at_pump, :odometer, :location, :latitude, :longitude, :notes
		)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to create fuel purchase: %w", err)
	}
	return nil
}

// GetByID retrieves a fuel purchase by ID
func (r *FuelRepository) GetByID(ctx context.Context, id string) (*models.FuelPurchase, error) {
	var p models.FuelPurchase
	err := r.db.GetContext(ctx, &p, `SELECT `+fuelColumns+` FROM fuel_purchases WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fuel purchase: %w", err)
	}
	return &p, nil
}

// List retrieves fuel purchases with filtering and pagination. The filter's
// time bounds are expected to be resolved by the caller.
func (r *FuelRepository) List(ctx context.Context, filter models.FuelFilter) ([]models.FuelPurchase, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.StartTime > 0 {
		conditions = append(conditions, "purchased_at >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "purchased_at <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.Jurisdiction != "" {
		conditions = append(conditions, "jurisdiction = ?")
		args = append(args, filter.Jurisdiction)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM fuel_purchases"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count fuel purchases: %w", err)
	}

	filter.Normalize()
	offset := (filter.Page - 1) * filter.PageSize
	query := `SELECT ` + fuelColumns + ` FROM fuel_purchases` + where + ` ORDER BY purchased_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, offset)

	purchases := []models.FuelPurchase{}
	if err := r.db.SelectContext(ctx, &purchases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query fuel purchases: %w", err)
	}
	return purchases, total, nil
}

// ListInRange retrieves every purchase made within [startMs, endMs]
func (r *FuelRepository) ListInRange(ctx context.Context, startMs, endMs int64) ([]models.FuelPurchase, error) {
	purchases := []models.FuelPurchase{}
	query := `SELECT ` + fuelColumns + ` FROM fuel_purchases
		WHERE purchased_at >= ? AND purchased_at <= ? ORDER BY purchased_at`
	if err := r.db.SelectContext(ctx, &purchases, query, startMs, endMs); err != nil {
		return nil, fmt.Errorf("failed to query fuel purchases in range: %w", err)
	}
	return purchases, nil
}

// Delete removes a fuel purchase
func (r *FuelRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fuel_purchases WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete fuel purchase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}
