package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
)

// Trip is one tracked truck trip
type Trip struct {
	ID string `json:"id" db:"id"`

	// Temporal info
	StartedAt int64  `json:"started_at" db:"started_at"`        // Unix ms
	EndedAt   *int64 `json:"ended_at,omitempty" db:"ended_at"` // Unix ms, nil while active

	// Origin and destination
	StartLat          float64           `json:"start_lat" db:"start_lat"`
	StartLon          float64           `json:"start_lon" db:"start_lon"`
	StartAddress      string            `json:"start_address,omitempty" db:"start_address"`
	StartJurisdiction jurisdiction.Code `json:"start_jurisdiction" db:"start_jurisdiction"`
	EndLat            *float64          `json:"end_lat,omitempty" db:"end_lat"`
	EndLon            *float64          `json:"end_lon,omitempty" db:"end_lon"`
	EndAddress        string            `json:"end_address,omitempty" db:"end_address"`
	EndJurisdiction   jurisdiction.Code `json:"end_jurisdiction,omitempty" db:"end_jurisdiction"`

	// Mileage
	TotalMiles          float64           `json:"total_miles" db:"total_miles"`
	MilesByJurisdiction JurisdictionMiles `json:"miles_by_jurisdiction" db:"miles_by_jurisdiction"`
	FixCount            int               `json:"fix_count" db:"fix_count"`

	IsActive bool   `json:"is_active" db:"is_active"`
	Notes    string `json:"notes,omitempty" db:"notes"`

	// Metadata
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TripsResponse represents a paginated response of trips
type TripsResponse struct {
	Data       []Trip `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

// JurisdictionMiles is a jurisdiction -> miles map stored as a JSON column
type JurisdictionMiles map[jurisdiction.Code]float64

// Value implements driver.Valuer
func (m JurisdictionMiles) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *JurisdictionMiles) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = JurisdictionMiles{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into JurisdictionMiles", src)
	}

	out := JurisdictionMiles{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("failed to decode jurisdiction miles: %w", err)
		}
	}
	*m = out
	return nil
}
