// Package watchdog monitors a wx-relay proxy from the outside: a heartbeat
// client follows the proxy's snapshot stream with reconnect/backoff, a prober
// polls /health on a fixed interval, and alerts go to a pluggable Sink.
package watchdog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wxrelay/wxrelay/internal/status"
)

// EventKind classifies a watchdog alert.
type EventKind string

// Alert kinds.
const (
	EventStreamDisconnected EventKind = "stream_disconnected"
	EventStreamTimeout      EventKind = "stream_timeout"
	EventHealthCheckFailed  EventKind = "health_check_failed"
	EventStatusDegraded     EventKind = "status_degraded"
	EventStatusRecovered    EventKind = "status_recovered"
)

// Event is one alert delivered to a Sink.
type Event struct {
	Err      error
	Snapshot *status.Snapshot
	Kind     EventKind
	Message  string
}

// Sink receives watchdog alerts. Notify must not block; slow delivery stalls
// the heartbeat read loop.
type Sink interface {
	Notify(ctx context.Context, event Event)
}

// LogSink writes alerts to the log. Stands in for a paging integration.
type LogSink struct {
	logger *zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs the event. Recoveries log at info, everything else at warn.
func (s *LogSink) Notify(_ context.Context, event Event) {
	if s.logger == nil {
		return
	}

	logEvent := s.logger.Warn()
	if event.Kind == EventStatusRecovered {
		logEvent = s.logger.Info()
	}

	logEvent = logEvent.Str("kind", string(event.Kind)).Err(event.Err)
	if event.Snapshot != nil {
		logEvent = logEvent.
			Str("overall", string(event.Snapshot.Overall)).
			Uint64("generation", event.Snapshot.Generation)
	}
	logEvent.Msg(event.Message)
}
