package foundation

import (
	"time"

	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// Thresholds defines configurable thresholds for sampling and noise rejection
type Thresholds struct {
	MinInterval    time.Duration `yaml:"min_interval"`     // 30 s
	MinDistanceMi  float64       `yaml:"min_distance_mi"`  // 0.497 mi (~0.8 km)
	JumpDistanceMi float64       `yaml:"jump_distance_mi"` // 1 mi
	JumpWindow     time.Duration `yaml:"jump_window"`      // 10 s
	MaxSpeedMph    float64       `yaml:"max_speed_mph"`    // 100 mph
}

// DefaultThresholds provides the default sampling and noise thresholds
var DefaultThresholds = Thresholds{
	MinInterval:    30 * time.Second,
	MinDistanceMi:  0.497,
	JumpDistanceMi: 1.0,
	JumpWindow:     10 * time.Second,
	MaxSpeedMph:    100.0,
}

// Noise reason codes
const (
	ReasonClock          = "CLOCK"
	ReasonJump           = "JUMP"
	ReasonExcessiveSpeed = "EXCESSIVE_SPEED"
)

// NoiseReasons lists every rule a candidate fix breaks relative to the last
// accepted fix. An empty result means the motion is plausible.
func (t Thresholds) NoiseReasons(last, candidate spatial.GeoPoint, elapsedSeconds float64) []string {
	// Rule 1: CLOCK - non-positive elapsed time
	if elapsedSeconds <= 0 {
		return []string{ReasonClock}
	}

	var reasons []string
	distanceMi := spatial.HaversineMiles(last, candidate)

	// Rule 2: JUMP - more than JumpDistanceMi within JumpWindow
	if distanceMi > t.JumpDistanceMi && elapsedSeconds < t.JumpWindow.Seconds() {
		reasons = append(reasons, ReasonJump)
	}

	// Rule 3: EXCESSIVE_SPEED - implied speed above MaxSpeedMph
	speedMph := distanceMi / elapsedSeconds * 3600
	if speedMph > t.MaxSpeedMph {
		reasons = append(reasons, ReasonExcessiveSpeed)
	}

	return reasons
}

// IsNoisyJump reports whether moving from last to candidate in elapsedSeconds
// is implausible under t
func (t Thresholds) IsNoisyJump(last, candidate spatial.GeoPoint, elapsedSeconds float64) bool {
	return len(t.NoiseReasons(last, candidate, elapsedSeconds)) > 0
}

// IsNoisyJump applies DefaultThresholds
func IsNoisyJump(last, candidate spatial.GeoPoint, elapsedSeconds float64) bool {
	return DefaultThresholds.IsNoisyJump(last, candidate, elapsedSeconds)
}
