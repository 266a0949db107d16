package worker

import (
	"math"
	"time"
)

// RetryPolicy spaces out repeated push attempts for a pending record.
// Delays grow geometrically with the attempt count and are capped at
// MaxDelay; after MaxRetries attempts the record is parked on the
// dead-letter list instead of being retried.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before the given attempt. Attempts count
// from 1; zero or negative inputs are treated as the first attempt.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	initial := p.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		d = initial
	}
	return d
}
