package models

import (
	"time"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
)

// FuelPurchase is one fuel purchase entered by the driver
type FuelPurchase struct {
	ID                string            `json:"id" db:"id"`
	PurchasedAt       int64             `json:"purchased_at" db:"purchased_at"` // Unix ms
	Jurisdiction      jurisdiction.Code `json:"jurisdiction" db:"jurisdiction"`
	Gallons           float64           `json:"gallons" db:"gallons"`
	PricePerGallon    float64           `json:"price_per_gallon" db:"price_per_gallon"`
	TotalCost         float64           `json:"total_cost" db:"total_cost"`
	TaxIncludedAtPump bool              `json:"tax_included_at_pump" db:"tax_included_at_pump"`
	Odometer          *float64          `json:"odometer,omitempty" db:"odometer"`
	Location          string            `json:"location,omitempty" db:"location"`
	Latitude          *float64          `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64          `json:"longitude,omitempty" db:"longitude"`
	Notes             string            `json:"notes,omitempty" db:"notes"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}

// FuelPurchasesResponse represents a paginated response of fuel purchases
type FuelPurchasesResponse struct {
	Data       []FuelPurchase `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}
