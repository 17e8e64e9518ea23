package watchdog

import "errors"

// Watchdog errors. All are recovered locally by reconnect/backoff or the
// next probe tick; none terminate the service.
var (
	// ErrStreamDisconnected means the heartbeat stream dropped.
	ErrStreamDisconnected = errors.New("watchdog: stream disconnected")

	// ErrStreamTimeout means no heartbeat arrived within the read timeout.
	ErrStreamTimeout = errors.New("watchdog: stream read timed out")

	// ErrHealthCheckFailed means a /health probe failed or answered non-2xx.
	ErrHealthCheckFailed = errors.New("watchdog: health check failed")
)
