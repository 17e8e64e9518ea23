package upstream

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that a provider did not answer within the fetch
// timeout. The orchestrator recovers it locally by failing over; it is never
// surfaced to callers directly.
type TimeoutError struct {
	Provider string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream: %s timed out after %s", e.Provider, e.Duration)
}

// Timeout marks the error for net.Error-style timeout checks.
func (e *TimeoutError) Timeout() bool { return true }

// UpstreamError reports a non-timeout failure from a provider: a transport
// error, a failure-class HTTP status, or an error object embedded in an
// otherwise-200 payload (weatherstack reports quota errors that way).
type UpstreamError struct {
	Provider   string
	Reason     string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("upstream: %s failed: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("upstream: %s returned status %d", e.Provider, e.StatusCode)
}

// IsTimeout reports whether err is a provider timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
