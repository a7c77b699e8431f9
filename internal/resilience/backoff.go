package resilience

import (
	"math/rand/v2"
	"time"
)

const defaultBackoffBase = 100 * time.Millisecond

// Backoff returns base doubled for every attempt after the first, spread by
// ±jitter (a fraction, 0.2 is 20%). Attempts below 1 count as 1.
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if base <= 0 {
		base = defaultBackoffBase
	}
	d := base << uint(max(attempt, 1)-1)
	if jitter <= 0 {
		return d
	}
	spread := float64(d) * jitter
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
