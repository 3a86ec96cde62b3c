// Package backoff centralizes retry delay calculation for the transport.
package backoff

import (
	"math/rand"
	"time"
)

// Delay returns the wait before retry attempt k (0-indexed):
// base * multiplier^k, capped at max, with optional uniform jitter in
// [0, jitter*delay). A jitter of 0 yields deterministic delays.
func Delay(attempt int, base, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Cap the exponent so the float math cannot overflow into negatives.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(base) * Pow(multiplier, attempt))
	if d < 0 || d > max {
		d = max
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		amount := time.Duration(float64(d) * jitter * rand.Float64())
		if d+amount > max {
			d = max
		} else {
			d += amount
		}
	}
	return d
}

// Pow is an integer-exponent power without pulling in math.Pow's edge cases.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}

func clampJitter(j float64) float64 {
	if j < 0 {
		return 0
	}
	if j > 1 {
		return 1
	}
	return j
}
