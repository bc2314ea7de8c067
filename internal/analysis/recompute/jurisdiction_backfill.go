package recompute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jengzang/ifta-backend-go/internal/analysis"
	"github.com/jengzang/ifta-backend-go/internal/analysis/mileage"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// SkillJurisdictionBackfill re-resolves fixes recorded without a jurisdiction
const SkillJurisdictionBackfill = "jurisdiction_backfill"

// JurisdictionBackfillAnalyzer re-tags UNK fixes, typically recorded while
// the geocoder was unreachable, then rebuckets the trips they belong to
type JurisdictionBackfillAnalyzer struct {
	*analysis.IncrementalAnalyzer
	trips *repository.TripRepository
	fixes *repository.FixRepository
}

// NewJurisdictionBackfillAnalyzer creates a new backfill analyzer
func NewJurisdictionBackfillAnalyzer(deps analysis.Deps) analysis.Analyzer {
	return &JurisdictionBackfillAnalyzer{
		IncrementalAnalyzer: analysis.NewIncrementalAnalyzer(deps, SkillJurisdictionBackfill, 200),
		trips:               repository.NewTripRepository(deps.DB),
		fixes:               repository.NewFixRepository(deps.DB),
	}
}

// Analyze resolves every UNK fix. Mode makes no difference: resolved fixes
// are never revisited.
func (a *JurisdictionBackfillAnalyzer) Analyze(ctx context.Context, taskID int64, mode string) error {
	if a.Resolver == nil {
		return errors.New("no geocode resolver configured")
	}
	a.Log.Info().Int64("task_id", taskID).Str("mode", mode).Msg("Starting analysis")

	total, err := a.fixes.CountUnknown(ctx)
	if err != nil {
		return err
	}

	var afterID int64
	resolved := 0
	affected := make(map[string]bool)

	processed, unresolved, err := a.ProcessInBatches(ctx, taskID, total, func(ctx context.Context, _, limit int) (int, error) {
		rows, err := a.fixes.ListUnknown(ctx, afterID, limit)
		if err != nil {
			return 0, err
		}
		failed := 0
		for _, f := range rows {
			afterID = f.ID
			p := spatial.GeoPoint{Latitude: f.Latitude, Longitude: f.Longitude}
			code, err := a.Resolver.Resolve(ctx, p)
			if err != nil || !code.Valid() {
				failed++
				continue
			}
			if err := a.fixes.UpdateJurisdiction(ctx, f.ID, code); err != nil {
				return failed, err
			}
			resolved++
			affected[f.TripID] = true
		}
		return failed, nil
	})
	if err != nil {
		return err
	}

	tripIDs := make([]string, 0, len(affected))
	for id := range affected {
		tripIDs = append(tripIDs, id)
	}
	sort.Strings(tripIDs)
	for _, id := range tripIDs {
		if err := a.rebucket(ctx, id); err != nil {
			return fmt.Errorf("failed to rebucket trip %s: %w", id, err)
		}
	}

	summary, _ := json.Marshal(map[string]interface{}{
		"fixes":      processed,
		"resolved":   resolved,
		"unresolved": unresolved,
		"trips":      len(tripIDs),
	})
	if err := a.MarkTaskAsCompleted(ctx, taskID, string(summary)); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	a.Log.Info().Int("resolved", resolved).Int("trips", len(tripIDs)).Msg("Analysis completed")
	return nil
}

func (a *JurisdictionBackfillAnalyzer) rebucket(ctx context.Context, tripID string) error {
	rows, err := a.fixes.ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	summary := mileage.Summarize(models.TrackedFixes(rows))
	return a.trips.UpdateStats(ctx, tripID,
		stats.Round(summary.TotalMiles, 2),
		models.JurisdictionMiles(summary.ByJurisdiction),
		len(rows))
}

func init() {
	analysis.RegisterAnalyzer(SkillJurisdictionBackfill, NewJurisdictionBackfillAnalyzer)
}
