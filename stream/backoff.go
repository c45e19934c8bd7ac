package stream

import (
	"time"
)

// Backoff bounds the reconnect attempts of a stream.
// The delay doubles after every failed attempt, up to MaxDelay.
// A connection only resets the attempt count once it stayed joined for MinUptime.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	MinUptime    time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		MaxAttempts:  8,
		MinUptime:    5 * time.Second,
	}
}

// Delay is the wait before attempt n, n starting at 1.
// A MaxDelay not above zero falls back to the default cap.
func (b Backoff) Delay(attempt int) time.Duration {
	limit := b.MaxDelay
	if limit <= 0 {
		limit = DefaultBackoff().MaxDelay
	}
	delay := min(b.InitialDelay, limit)
	for i := 1; i < attempt && delay < limit; i++ {
		if delay > limit/2 {
			return limit
		}
		delay *= 2
	}
	return delay
}

// Exhausted tells whether attempt exceeds the allowed retries. Zero MaxAttempts retries forever.
func (b Backoff) Exhausted(attempt int) bool {
	return b.MaxAttempts > 0 && attempt > b.MaxAttempts
}

// Healthy tells whether a connection that stayed joined for uptime counts as recovered.
func (b Backoff) Healthy(uptime time.Duration) bool {
	minUptime := b.MinUptime
	if minUptime <= 0 {
		minUptime = DefaultBackoff().MinUptime
	}
	return uptime >= minUptime
}
