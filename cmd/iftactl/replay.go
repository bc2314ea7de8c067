package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jengzang/ifta-backend-go/internal/analysis/foundation"
	"github.com/jengzang/ifta-backend-go/internal/analysis/mileage"
	"github.com/jengzang/ifta-backend-go/internal/app"
	"github.com/jengzang/ifta-backend-go/internal/geocode"
	"github.com/jengzang/ifta-backend-go/internal/gps"
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/internal/units"
)

var (
	replayFile         string
	replayJurisdiction string
	replayUnits        string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay an NMEA log through sampling and mileage bucketing",
	Long: `Run every fix of an NMEA log through the live sampling policy and noise filter,
then bucket the accepted fixes into per-jurisdiction mileage. With --jurisdiction
every fix is tagged with that code; otherwise the configured geocoder is used.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "NMEA log file")
	replayCmd.Flags().StringVarP(&replayJurisdiction, "jurisdiction", "j", "", "Tag every fix with this jurisdiction")
	replayCmd.Flags().StringVarP(&replayUnits, "units", "u", "us", "Output units: us or metric")
	_ = replayCmd.MarkFlagRequired("file")
}

// ReplayResult is the outcome of replaying a log
type ReplayResult struct {
	Offered  int
	Accepted int
	Skipped  int
	Noise    int
	Summary  mileage.Summary
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	system, err := units.ParseSystem(replayUnits)
	if err != nil {
		return err
	}

	var resolver geocode.Resolver
	if replayJurisdiction != "" {
		code := jurisdiction.Normalize(replayJurisdiction)
		if !code.Valid() {
			return fmt.Errorf("unknown jurisdiction %q", replayJurisdiction)
		}
		resolver = geocode.StaticResolver{Code: code}
	} else {
		r, rdb, err := app.NewResolver(cfg, log)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close()
		}
		resolver = r
	}

	f, err := os.Open(replayFile)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := replay(ctx, f, resolver, cfg.Tracking.Thresholds, log)
	if err != nil {
		return err
	}
	printReplay(cmd.OutOrStdout(), res, system)
	return nil
}

// replay samples the fixes of an NMEA stream the way a live session does
func replay(ctx context.Context, r io.Reader, resolver geocode.Resolver, th foundation.Thresholds, log zerolog.Logger) (*ReplayResult, error) {
	res := &ReplayResult{}
	var cursor foundation.Cursor
	var accepted []foundation.TrackedFix

	err := gps.ReadFixes(ctx, r, gps.NewDecoder(), log, func(ctx context.Context, raw service.RawFix) error {
		res.Offered++
		p := spatial.GeoPoint{Latitude: raw.Latitude, Longitude: raw.Longitude}

		next, decision := cursor.Offer(th, p, raw.TimestampMs)
		switch decision {
		case foundation.Skipped:
			res.Skipped++
			return nil
		case foundation.RejectedNoise:
			res.Noise++
			return nil
		}

		fix := *next.Last
		code, err := resolver.Resolve(ctx, p)
		if err != nil {
			log.Warn().Err(err).Msg("Jurisdiction lookup failed")
			code = jurisdiction.Unknown
		}
		fix.Jurisdiction = code

		cursor = cursor.Accept(fix)
		accepted = append(accepted, fix)
		res.Accepted++
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Summary = mileage.Summarize(accepted)
	return res, nil
}

func printReplay(w io.Writer, res *ReplayResult, system units.System) {
	fmt.Fprintf(w, "Fixes: %d offered, %d accepted, %d skipped, %d rejected as noise\n",
		res.Offered, res.Accepted, res.Skipped, res.Noise)
	fmt.Fprintf(w, "Total distance: %s\n", units.FormatDistance(res.Summary.TotalMiles, system))

	codes := make([]jurisdiction.Code, 0, len(res.Summary.ByJurisdiction))
	for code := range res.Summary.ByJurisdiction {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, code := range codes {
		fmt.Fprintf(w, "  %s  %s\n", code, units.FormatDistance(res.Summary.ByJurisdiction[code], system))
	}
	if res.Summary.UnattributedMiles > 0 {
		fmt.Fprintf(w, "  unattributed  %s\n", units.FormatDistance(res.Summary.UnattributedMiles, system))
	}
	for _, c := range res.Summary.Crossings {
		fmt.Fprintf(w, "Crossing %s -> %s\n", c.From, c.To)
	}
}
