package numbering

import "time"

// Backoff decides how long to wait before retrying an aborted allocation.
// attempt is 1-based and counts the attempts already made.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// NoDelay retries immediately. Serialization aborts are resolved by the
// store the moment the winning transaction commits, so waiting is optional.
type NoDelay struct{}

// Delay always returns zero
func (NoDelay) Delay(int) time.Duration { return 0 }

// ExponentialBackoff doubles the base delay per attempt, capped at Max
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns Base << (attempt-1), capped at Max
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base << (attempt - 1)
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
