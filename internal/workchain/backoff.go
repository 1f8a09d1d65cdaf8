package workchain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// BackoffConfig configures the delay between a failed attempt and its
// resubmission. Zero InitialDelayMS disables backoff entirely, which is the
// default: numerical restarts gain nothing from waiting, and scheduler
// failures are paced by the queue, not by us.
type BackoffConfig struct {
	InitialDelayMS int
	BackoffFactor  float64
	MaxDelayMS     int
	Jitter         bool
}

func (c BackoffConfig) sanitized() BackoffConfig {
	if c.InitialDelayMS < 0 {
		c.InitialDelayMS = 0
	}
	if c.MaxDelayMS < 0 {
		c.MaxDelayMS = 0
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 1.0
	}
	return c
}

// DelayForAttempt computes the pre-resubmission delay for a 1-indexed retry
// attempt. Jitter is deterministic per seed so identical runs replay with
// identical pacing.
func DelayForAttempt(attempt int, cfg BackoffConfig, jitterSeed string) time.Duration {
	cfg = cfg.sanitized()
	if attempt < 1 {
		attempt = 1
	}
	if cfg.InitialDelayMS <= 0 {
		return 0
	}

	baseMS := float64(cfg.InitialDelayMS) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.MaxDelayMS > 0 {
		baseMS = math.Min(baseMS, float64(cfg.MaxDelayMS))
	}
	if cfg.Jitter {
		baseMS *= 0.5 + jitterUnit(jitterSeed) // [0.5, 1.5)
	}
	if baseMS < 0 {
		baseMS = 0
	}
	return time.Duration(baseMS * float64(time.Millisecond))
}

func jitterUnit(seed string) float64 {
	sum := sha256.Sum256([]byte(seed))
	u := binary.BigEndian.Uint64(sum[:8])
	return float64(u) / float64(^uint64(0))
}

func backoffSeed(runID string, attempt int) string {
	return fmt.Sprintf("%s:%d", runID, attempt)
}
