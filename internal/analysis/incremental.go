package analysis

import (
	"context"
	"fmt"
	"time"
)

// BatchFunc processes up to limit items starting at offset and reports how
// many of them failed. Keyset-paginated callers may ignore offset.
type BatchFunc func(ctx context.Context, offset, limit int) (failed int, err error)

// IncrementalAnalyzer provides base functionality for batched analysis
type IncrementalAnalyzer struct {
	*BaseAnalyzer
	BatchSize int // Number of records to process in each batch
}

// NewIncrementalAnalyzer creates a new incremental analyzer
func NewIncrementalAnalyzer(deps Deps, name string, batchSize int) *IncrementalAnalyzer {
	if batchSize <= 0 {
		batchSize = 1000 // Default batch size
	}

	return &IncrementalAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(deps, name),
		BatchSize:    batchSize,
	}
}

// ProcessInBatches runs fn over total items in batches, recording progress
// after each one. A failing batch is counted as failed and processing goes
// on with the next batch.
func (a *IncrementalAnalyzer) ProcessInBatches(ctx context.Context, taskID int64, total int, fn BatchFunc) (processed, failed int, err error) {
	if err := a.MarkTaskAsRunning(ctx, taskID); err != nil {
		return 0, 0, fmt.Errorf("failed to mark task as running: %w", err)
	}
	if err := a.UpdateTaskProgress(ctx, taskID, 0, total, 0); err != nil {
		return 0, 0, fmt.Errorf("failed to update progress: %w", err)
	}

	startTime := time.Now()
	for offset := 0; offset < total; offset += a.BatchSize {
		select {
		case <-ctx.Done():
			return processed, failed, ctx.Err()
		default:
		}

		size := a.BatchSize
		if offset+size > total {
			size = total - offset
		}

		batchFailed, err := fn(ctx, offset, size)
		if err != nil {
			a.Log.Warn().Err(err).Int("offset", offset).Msg("Batch failed")
			batchFailed = size
		}
		failed += batchFailed
		processed += size

		if err := a.UpdateTaskProgress(ctx, taskID, processed, total, failed); err != nil {
			return processed, failed, fmt.Errorf("failed to update progress: %w", err)
		}

		elapsed := time.Since(startTime).Seconds()
		a.Log.Debug().
			Int("processed", processed).
			Int("total", total).
			Int("eta_seconds", int(elapsed/float64(processed)*float64(total-processed))).
			Msg("Batch done")
	}

	return processed, failed, nil
}
