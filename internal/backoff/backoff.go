// Package backoff computes retry delays for the route client. The schedule
// is a pure value so timeout and retry semantics can be tested without real
// network delay.
package backoff

import (
	"math/rand"
	"time"
)

// Schedule describes a bounded exponential backoff with uniform jitter.
// The zero value is not useful; use Default or fill every field.
type Schedule struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Default returns the schedule used when the caller does not override it:
// 1s base, doubling per attempt, capped at 30s, 10% jitter.
func Default() Schedule {
	return Schedule{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Delay returns the pause before retry number attempt (0-based: the delay
// taken after the first failed attempt is Delay(0)).
func (s Schedule) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Cap the exponent so the float math cannot overflow.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(s.Initial) * pow(s.Multiplier, attempt))
	if d < 0 || d > s.Max {
		d = s.Max
	}

	jitter := clampJitter(s.Jitter)
	if jitter > 0 {
		amount := time.Duration(float64(d) * jitter * rand.Float64())
		if d+amount > s.Max {
			d = s.Max
		} else {
			d += amount
		}
	}
	return d
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

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
