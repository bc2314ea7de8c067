package ifta

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVHeader is the column layout of the quarterly export
var CSVHeader = []string{
	"Quarter", "Year", "Jurisdiction", "Miles", "Gallons Purchased",
	"Fleet MPG", "Taxable Gallons", "Tax Rate", "Tax Paid At Pump", "Liability",
}

// CSVRows renders one row per jurisdiction in Lines order. Amounts use 2
// decimal places and tax rates 3.
func CSVRows(q Quarter, r Result) [][]string {
	lines := r.Lines()
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			strconv.Itoa(q.Number),
			strconv.Itoa(q.Year),
			string(l.Jurisdiction),
			money(l.Miles),
			money(l.FuelGallons),
			money(r.FleetMPG),
			money(l.TaxableGallons),
			strconv.FormatFloat(l.TaxRate, 'f', 3, 64),
			money(l.TaxPaidAtPump),
			money(l.Liability),
		})
	}
	return rows
}

// WriteCSV writes the header and rows of a quarterly report
func WriteCSV(w io.Writer, q Quarter, r Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(CSVRows(q, r)); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// CSVFilename is the conventional file name of a quarterly export
func CSVFilename(q Quarter) string {
	return fmt.Sprintf("ifta_Q%d_%d.csv", q.Number, q.Year)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
