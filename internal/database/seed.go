package database

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
)

//go:embed default_tax_rates.yaml
var defaultTaxRatesYAML []byte

// DefaultRateTable is the built-in tax rate table
type DefaultRateTable struct {
	EffectiveDate string                        `yaml:"effective_date"`
	Rates         map[jurisdiction.Code]float64 `yaml:"-"`
}

var (
	defaultRates     DefaultRateTable
	defaultRatesErr  error
	defaultRatesOnce sync.Once
)

// DefaultTaxRates returns the built-in rate table. The returned map is a copy.
func DefaultTaxRates() (DefaultRateTable, error) {
	defaultRatesOnce.Do(func() {
		var raw struct {
			EffectiveDate string             `yaml:"effective_date"`
			Rates         map[string]float64 `yaml:"rates"`
		}
		if err := yaml.Unmarshal(defaultTaxRatesYAML, &raw); err != nil {
			defaultRatesErr = fmt.Errorf("failed to parse default tax rates: %w", err)
			return
		}

		defaultRates.EffectiveDate = raw.EffectiveDate
		defaultRates.Rates = make(map[jurisdiction.Code]float64, len(raw.Rates))
		for k, v := range raw.Rates {
			code := jurisdiction.Normalize(k)
			if !code.Valid() {
				defaultRatesErr = fmt.Errorf("unknown jurisdiction in default tax rates: %q", k)
				return
			}
			defaultRates.Rates[code] = v
		}
	})
	if defaultRatesErr != nil {
		return DefaultRateTable{}, defaultRatesErr
	}

	out := DefaultRateTable{
		EffectiveDate: defaultRates.EffectiveDate,
		Rates:         make(map[jurisdiction.Code]float64, len(defaultRates.Rates)),
	}
	for k, v := range defaultRates.Rates {
		out.Rates[k] = v
	}
	return out, nil
}

// SeedDefaultRates inserts the built-in rate table when tax_rates is empty.
// It returns the number of rows inserted.
func SeedDefaultRates(conn *sqlx.DB) (int, error) {
	var count int
	if err := conn.Get(&count, "SELECT COUNT(*) FROM tax_rates"); err != nil {
		return 0, fmt.Errorf("failed to count tax rates: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	table, err := DefaultTaxRates()
	if err != nil {
		return 0, err
	}

	err = Transaction(conn, func(tx *sqlx.Tx) error {
		for code, rate := range table.Rates {
			_, err := tx.Exec(
				`INSERT INTO tax_rates (jurisdiction, rate, effective_date, source) VALUES (?, ?, ?, 'default')`,
				string(code), rate, table.EffectiveDate,
			)
			if err != nil {
				return fmt.Errorf("failed to seed tax rate for %s: %w", code, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(table.Rates), nil
}
