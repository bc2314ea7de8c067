package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/models"
)

const taxRateColumns = `id, jurisdiction, rate, effective_date, expiration_date, source, created_at, updated_at`

// TaxRateRepository handles database operations for tax rates
type TaxRateRepository struct {
	db *sqlx.DB
}

// NewTaxRateRepository creates a new tax rate repository
func NewTaxRateRepository(db *sqlx.DB) *TaxRateRepository {
	return &TaxRateRepository{db: db}
}

// Snapshot returns, per jurisdiction, the latest rate effective on asOf
// (YYYY-MM-DD). Rates that expired before asOf are ignored.
func (r *TaxRateRepository) Snapshot(ctx context.Context, asOf string) (map[jurisdiction.Code]float64, error) {
	query := `SELECT t.jurisdiction, t.rate FROM tax_rates t
		WHERE t.effective_date = (
			SELECT MAX(t2.effective_date) FROM tax_rates t2
			WHERE t2.jurisdiction = t.jurisdiction
				AND t2.effective_date <= ?
				AND (t2.expiration_date IS NULL OR t2.expiration_date >= ?)
		)`

	var rows []struct {
		Jurisdiction jurisdiction.Code `db:"jurisdiction"`
		Rate         float64           `db:"rate"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, asOf, asOf); err != nil {
		return nil, fmt.Errorf("failed to query tax rate snapshot: %w", err)
	}

	rates := make(map[jurisdiction.Code]float64, len(rows))
	for _, row := range rows {
		rates[row.Jurisdiction] = row.Rate
	}
	return rates, nil
}

// Upsert inserts a rate or replaces the one with the same jurisdiction and
// effective date
func (r *TaxRateRepository) Upsert(ctx context.Context, rate *models.TaxRate) error {
	query := `INSERT INTO tax_rates (jurisdiction, rate, effective_date, expiration_date, source)
		VALUES (:jurisdiction, :rate, :effective_date, :expiration_date, :source)
		ON CONFLICT (jurisdiction, effective_date) DO UPDATE SET
			rate = excluded.rate,
			expiration_date = excluded.expiration_date,
			source = excluded.source,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.NamedExecContext(ctx, query, rate); err != nil {
		return fmt.Errorf("failed to upsert tax rate: %w", err)
	}
	return nil
}

// List retrieves stored rates, optionally for one jurisdiction, newest first
func (r *TaxRateRepository) List(ctx context.Context, code jurisdiction.Code) ([]models.TaxRate, error) {
	rates := []models.TaxRate{}
	query := `SELECT ` + taxRateColumns + ` FROM tax_rates`
	var args []interface{}
	if code != "" {
		query += ` WHERE jurisdiction = ?`
		args = append(args, string(code))
	}
	query += ` ORDER BY jurisdiction, effective_date DESC`

	if err := r.db.SelectContext(ctx, &rates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tax rates: %w", err)
	}
	return rates, nil
}
