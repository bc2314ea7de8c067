package foundation

import (
	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// TrackedFix is an accepted GPS sample tagged with its jurisdiction
type TrackedFix struct {
	Point        spatial.GeoPoint  `json:"point"`
	TimestampMs  int64             `json:"timestamp_ms"`
	Jurisdiction jurisdiction.Code `json:"jurisdiction"`
}

// Decision is the outcome of offering a fix to a Cursor
type Decision int

const (
	// Accepted means the fix becomes the new sample
	Accepted Decision = iota
	// Skipped means neither the time nor the distance threshold was reached
	Skipped
	// RejectedNoise means the motion since the last sample is implausible
	RejectedNoise
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Skipped:
		return "skipped"
	case RejectedNoise:
		return "rejected_noise"
	}
	return "unknown"
}

// ShouldSample reports whether candidate should be taken as a new sample.
// The first fix of a trip is always taken; after that a fix is taken once
// either MinInterval has elapsed or it lies MinDistanceMi away from last.
func (t Thresholds) ShouldSample(last *TrackedFix, candidate spatial.GeoPoint, lastTimeMs, nowMs int64) bool {
	if last == nil || lastTimeMs == 0 {
		return true
	}

	elapsedMs := nowMs - lastTimeMs
	if elapsedMs >= t.MinInterval.Milliseconds() {
		return true
	}

	return spatial.HaversineMiles(last.Point, candidate) >= t.MinDistanceMi
}

// ShouldSample applies DefaultThresholds
func ShouldSample(last *TrackedFix, candidate spatial.GeoPoint, lastTimeMs, nowMs int64) bool {
	return DefaultThresholds.ShouldSample(last, candidate, lastTimeMs, nowMs)
}

// Cursor is the sampling state of one tracking session. It is a value: every
// operation returns a new Cursor and leaves the receiver untouched. A cursor
// must only be advanced by the session that owns it.
type Cursor struct {
	Last       *TrackedFix `json:"last,omitempty"`
	LastTimeMs int64       `json:"last_time_ms"`
}

// NewCursor returns a cursor positioned after fix, or an empty cursor
func NewCursor(fix *TrackedFix) Cursor {
	if fix == nil {
		return Cursor{}
	}
	f := *fix
	return Cursor{Last: &f, LastTimeMs: f.TimestampMs}
}

// Offer runs candidate through the sampling policy then the noise filter.
// The returned cursor is only advanced when the fix is accepted; its
// jurisdiction is left Unknown until the caller tags it with Accept.
func (c Cursor) Offer(t Thresholds, candidate spatial.GeoPoint, nowMs int64) (Cursor, Decision) {
	if !t.ShouldSample(c.Last, candidate, c.LastTimeMs, nowMs) {
		return c, Skipped
	}

	if c.Last != nil {
		elapsed := float64(nowMs-c.LastTimeMs) / 1000
		if t.IsNoisyJump(c.Last.Point, candidate, elapsed) {
			return c, RejectedNoise
		}
	}

	return c.Accept(TrackedFix{
		Point:        candidate,
		TimestampMs:  nowMs,
		Jurisdiction: jurisdiction.Unknown,
	}), Accepted
}

// Accept returns the cursor advanced to fix
func (c Cursor) Accept(fix TrackedFix) Cursor {
	return Cursor{Last: &fix, LastTimeMs: fix.TimestampMs}
}
