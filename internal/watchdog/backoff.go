package watchdog

import (
	"context"
	"time"
)

// Backoff computes reconnect delays of min(base * 2^n, max) where n is the
// consecutive failure count. Not safe for concurrent use; each connection
// loop owns its own Backoff.
type Backoff struct {
	base     time.Duration
	max      time.Duration
	attempts int
}

// NewBackoff creates a Backoff. Non-positive inputs fall back to a 1s base
// and 60s cap.
func NewBackoff(base, maxDelay time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}
	return &Backoff{base: base, max: maxDelay}
}

// Next records one more failure and returns the delay before the next
// attempt: base*2 after the first failure, doubling per failure, capped at
// max.
func (b *Backoff) Next() time.Duration {
	b.attempts++

	delay := b.base
	for range b.attempts {
		if delay >= b.max {
			return b.max
		}
		delay *= 2
	}
	if delay > b.max {
		return b.max
	}
	return delay
}

// Reset clears the failure count after a successful connect.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the consecutive failure count.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Sleep waits for d or until ctx is canceled, whichever comes first.
// Returns ctx.Err() when canceled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
