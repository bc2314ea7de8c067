package models

import (
	"time"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
)

// TaxRate is a per-gallon diesel tax rate effective from a date
type TaxRate struct {
	ID             int64             `json:"id" db:"id"`
	Jurisdiction   jurisdiction.Code `json:"jurisdiction" db:"jurisdiction"`
	Rate           float64           `json:"rate" db:"rate"`                     // currency per gallon
	EffectiveDate  string            `json:"effective_date" db:"effective_date"` // YYYY-MM-DD
	ExpirationDate *string           `json:"expiration_date,omitempty" db:"expiration_date"`
	Source         string            `json:"source" db:"source"` // default, manual
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// TaxRate sources
const (
	TaxRateSourceDefault = "default"
	TaxRateSourceManual  = "manual"
)
