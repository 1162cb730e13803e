package transport

import "time"

// RetryPolicy implements the exponential-backoff retry policy of §4.2:
// starting at 1s, doubling, capped at 60s, with a caller-provided max
// attempts. The zero value means "try once, never retry".
type RetryPolicy struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// MaxAttemptsOrDefault returns at least 1 attempt.
func (p RetryPolicy) MaxAttemptsOrDefault() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the wait before the given retry attempt (1-indexed:
// attempt 1 is the first retry, following the initial attempt 0).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	max := p.MaxBackoff
	if max <= 0 {
		max = 60 * time.Second
	}
	wait := initial
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	if wait > max {
		wait = max
	}
	return wait
}

// DefaultRetryPolicy is a sensible default: up to 3 attempts total.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 60 * time.Second}
