package utils

import (
	"math"
	"math/rand"
	"time"
)

// CalculateExponentialBackoffWithJitter computes a jittered exponential backoff delay.
// - count: failure number (1-based)
// - base: delay after the first failure
// - max: upper bound of the returned delay
// The jitter spreads refreshes of the same rate pair across replicas by -12.5% to +12.5%.
func CalculateExponentialBackoffWithJitter(count int, base time.Duration, max time.Duration) time.Duration {
	if count <= 0 || base <= 0 {
		return 0
	}

	baseDelay := base * time.Duration(math.Pow(2, float64(count-1)))
	if baseDelay <= 0 || baseDelay > max {
		baseDelay = max
	}

	var jitter time.Duration
	if spread := int64(baseDelay / 4); spread > 0 {
		jitter = time.Duration(rand.Int63n(spread)) - (baseDelay / 8)
	}
	delay := baseDelay + jitter

	if delay > max {
		delay = max
	}
	return delay
}
