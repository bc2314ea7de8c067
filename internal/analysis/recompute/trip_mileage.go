// Package recompute holds the recompute skills run as analysis tasks.
package recompute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jengzang/ifta-backend-go/internal/analysis"
	"github.com/jengzang/ifta-backend-go/internal/analysis/mileage"
	"github.com/jengzang/ifta-backend-go/internal/models"
	"github.com/jengzang/ifta-backend-go/internal/repository"
	"github.com/jengzang/ifta-backend-go/internal/stats"
)

// SkillTripMileage rebuckets closed trips from their stored fixes
const SkillTripMileage = "trip_mileage"

// TripMileageAnalyzer recomputes total and per-jurisdiction miles of closed
// trips. Incremental runs only write trips whose figures changed.
type TripMileageAnalyzer struct {
	*analysis.IncrementalAnalyzer
	trips *repository.TripRepository
	fixes *repository.FixRepository
}

// NewTripMileageAnalyzer creates a new trip mileage analyzer
func NewTripMileageAnalyzer(deps analysis.Deps) analysis.Analyzer {
	return &TripMileageAnalyzer{
		IncrementalAnalyzer: analysis.NewIncrementalAnalyzer(deps, SkillTripMileage, 100),
		trips:               repository.NewTripRepository(deps.DB),
		fixes:               repository.NewFixRepository(deps.DB),
	}
}

// Analyze rebuckets every closed trip
func (a *TripMileageAnalyzer) Analyze(ctx context.Context, taskID int64, mode string) error {
	a.Log.Info().Int64("task_id", taskID).Str("mode", mode).Msg("Starting analysis")

	total, err := a.trips.CountClosed(ctx)
	if err != nil {
		return err
	}

	updated := 0
	processed, failed, err := a.ProcessInBatches(ctx, taskID, total, func(ctx context.Context, offset, limit int) (int, error) {
		trips, err := a.trips.ListClosed(ctx, limit, offset)
		if err != nil {
			return 0, err
		}
		batchFailed := 0
		for i := range trips {
			changed, err := a.rebucket(ctx, &trips[i], mode == analysis.ModeFull)
			if err != nil {
				a.Log.Warn().Err(err).Str("trip_id", trips[i].ID).Msg("Failed to rebucket trip")
				batchFailed++
				continue
			}
			if changed {
				updated++
			}
		}
		return batchFailed, nil
	})
	if err != nil {
		return err
	}

	summary, _ := json.Marshal(map[string]interface{}{
		"trips":   processed,
		"updated": updated,
		"failed":  failed,
	})
	if err := a.MarkTaskAsCompleted(ctx, taskID, string(summary)); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	a.Log.Info().Int("trips", processed).Int("updated", updated).Msg("Analysis completed")
	return nil
}

// rebucket recomputes one trip and reports whether it was written
func (a *TripMileageAnalyzer) rebucket(ctx context.Context, trip *models.Trip, force bool) (bool, error) {
	rows, err := a.fixes.ListByTrip(ctx, trip.ID)
	if err != nil {
		return false, err
	}
	// trips without fixes keep whatever was entered for them
	if len(rows) == 0 {
		return false, nil
	}

	summary := mileage.Summarize(models.TrackedFixes(rows))
	totalMiles := stats.Round(summary.TotalMiles, 2)
	byJurisdiction := models.JurisdictionMiles(summary.ByJurisdiction)
	if byJurisdiction == nil {
		byJurisdiction = models.JurisdictionMiles{}
	}

	unchanged := trip.TotalMiles == totalMiles &&
		trip.FixCount == len(rows) &&
		sameMiles(trip.MilesByJurisdiction, byJurisdiction)
	if unchanged && !force {
		return false, nil
	}

	if err := a.trips.UpdateStats(ctx, trip.ID, totalMiles, byJurisdiction, len(rows)); err != nil {
		return false, err
	}
	return true, nil
}

func sameMiles(a, b models.JurisdictionMiles) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func init() {
	analysis.RegisterAnalyzer(SkillTripMileage, NewTripMileageAnalyzer)
}
