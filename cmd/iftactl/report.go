package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/ifta-backend-go/internal/database"
	"github.com/jengzang/ifta-backend-go/internal/ifta"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/internal/units"
)

var (
	reportDB      string
	reportYear    int
	reportQuarter int
	reportCSV     bool
	reportUnits   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the quarterly IFTA report",
	Long:  `Compute the quarterly IFTA report from closed trips, fuel purchases and tax rates in the database.`,
	RunE:  runReport,
}

func init() {
	now := ifta.QuarterOf(time.Now())
	reportCmd.Flags().StringVar(&reportDB, "db", "", "Database path (defaults to the configured one)")
	reportCmd.Flags().IntVarP(&reportYear, "year", "y", now.Year, "Report year")
	reportCmd.Flags().IntVarP(&reportQuarter, "quarter", "q", now.Number, "Report quarter (1-4)")
	reportCmd.Flags().BoolVar(&reportCSV, "csv", false, "Write the filing CSV instead of a table")
	reportCmd.Flags().StringVarP(&reportUnits, "units", "u", "us", "Units for the table: us or metric")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	q, err := ifta.NewQuarter(reportYear, reportQuarter)
	if err != nil {
		return err
	}
	system, err := units.ParseSystem(reportUnits)
	if err != nil {
		return err
	}

	path := cfg.Database.Path
	if reportDB != "" {
		path = reportDB
	}
	db, err := database.Setup(database.Config{Path: path}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	rates := service.NewTaxRateService(repository.NewTaxRateRepository(db))
	reports := service.NewReportService(repository.NewTripRepository(db), repository.NewFuelRepository(db), rates)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if reportCSV {
		return reports.WriteCSV(ctx, q, cmd.OutOrStdout())
	}

	report, err := reports.Quarterly(ctx, q, system)
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), report)
}

func printReport(w io.Writer, r *service.QuarterlyReport) error {
	fmt.Fprintf(w, "IFTA report %s (%d trips, %d fuel purchases)\n\n", r.Quarter, r.TripCount, r.PurchaseCount)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Jurisdiction\tDistance\tFuel\tTaxable\tRate\tPaid\tLiability\t")
	for _, l := range r.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.3f\t%.2f\t%.2f\t\n",
			l.Jurisdiction, l.Display.Distance, l.Display.Volume,
			l.TaxableGallons, l.TaxRate, l.TaxPaidAtPump, l.Liability)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal distance   %s\n", units.FormatDistance(r.Summary.TotalMiles, r.Units))
	fmt.Fprintf(w, "Total fuel       %s\n", units.FormatVolume(r.Summary.TotalGallons, r.Units))
	fmt.Fprintf(w, "Fleet efficiency %s\n", r.FleetEfficiency)
	fmt.Fprintf(w, "Net liability    %.2f\n", r.Summary.NetLiability)
	return nil
}
