package watchdog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wxrelay/wxrelay/internal/config"
	"github.com/wxrelay/wxrelay/internal/status"
)

// ConnectionState is the heartbeat client's connection lifecycle state.
type ConnectionState int32

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText lets the state serialize into the watchdog /health payload.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name; unknown names map to disconnected.
func (s *ConnectionState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "connecting":
		*s = StateConnecting
	case "connected":
		*s = StateConnected
	default:
		*s = StateDisconnected
	}
	return nil
}

// HeartbeatClient follows the proxy's snapshot stream. It reconnects with
// exponential backoff when the stream drops or goes silent, re-publishes
// every received snapshot on the relay hub, and raises sink alerts on
// disconnects and overall-status transitions.
type HeartbeatClient struct {
	dialer      *websocket.Dialer
	sink        Sink
	relay       *status.Publisher
	logger      *zerolog.Logger
	streamURL   string
	lastOverall status.Overall
	readTimeout time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	state       atomic.Int32
	failures    atomic.Int32
}

// NewHeartbeatClient creates a client from the watchdog config. relay may be
// nil when snapshots should not be re-served.
func NewHeartbeatClient(cfg config.WatchdogConfig, sink Sink, relay *status.Publisher, logger *zerolog.Logger) *HeartbeatClient {
	return &HeartbeatClient{
		streamURL: cfg.StreamURL(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.GetConnectTimeout(),
		},
		readTimeout: cfg.GetWSTimeout(),
		backoffBase: cfg.GetReconnectInterval(),
		backoffMax:  cfg.GetMaxBackoff(),
		sink:        sink,
		relay:       relay,
		logger:      logger,
	}
}

// State returns the current connection state.
func (c *HeartbeatClient) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// ConsecutiveFailures returns the current failed-connect streak.
func (c *HeartbeatClient) ConsecutiveFailures() int {
	return int(c.failures.Load())
}

func (c *HeartbeatClient) setState(s ConnectionState) {
	c.state.Store(int32(s))
}

// Run drives the connect/read/reconnect loop until ctx is canceled.
func (c *HeartbeatClient) Run(ctx context.Context) error {
	defer c.setState(StateDisconnected)

	backoff := NewBackoff(c.backoffBase, c.backoffMax)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			c.failures.Store(int32(backoff.Attempts() + 1))
			if err := c.waitRetry(ctx, backoff, fmt.Errorf("connect %s: %w", c.streamURL, err)); err != nil {
				return err
			}
			continue
		}

		c.setState(StateConnected)
		backoff.Reset()
		c.failures.Store(0)
		if c.logger != nil {
			c.logger.Info().Str("url", c.streamURL).Msg("heartbeat stream connected")
		}

		readErr := c.readLoop(ctx, conn)
		_ = conn.Close()
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.failures.Store(int32(backoff.Attempts() + 1))
		c.notifyDrop(ctx, readErr)
		if err := c.waitRetry(ctx, backoff, readErr); err != nil {
			return err
		}
	}
}

func (c *HeartbeatClient) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.streamURL, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// readLoop consumes snapshots until the stream fails. Every read carries a
// fresh deadline; a silent proxy is indistinguishable from a dead one.
func (c *HeartbeatClient) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock the pending read when ctx is canceled.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readDone:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return ErrStreamDisconnected
		}

		var snap status.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrStreamTimeout
			}
			return ErrStreamDisconnected
		}

		c.handleSnapshot(ctx, snap)
	}
}

func (c *HeartbeatClient) handleSnapshot(ctx context.Context, snap status.Snapshot) {
	if c.logger != nil {
		c.logger.Debug().
			Uint64("generation", snap.Generation).
			Str("overall", string(snap.Overall)).
			Msg("heartbeat received")
	}

	if c.relay != nil {
		c.relay.Publish(snap)
	}

	c.notifyTransition(ctx, snap)
}

// notifyTransition raises an alert when the proxy's overall status changes
// class: degradation alerts once per transition, recovery likewise.
func (c *HeartbeatClient) notifyTransition(ctx context.Context, snap status.Snapshot) {
	previous := c.lastOverall
	c.lastOverall = snap.Overall
	if c.sink == nil || previous == snap.Overall {
		return
	}

	switch {
	case snap.Overall == status.OverallHealthy && previous != "":
		c.sink.Notify(ctx, Event{
			Kind:     EventStatusRecovered,
			Message:  "proxy recovered",
			Snapshot: &snap,
		})
	case snap.Overall != status.OverallHealthy:
		c.sink.Notify(ctx, Event{
			Kind:     EventStatusDegraded,
			Message:  "proxy status degraded",
			Snapshot: &snap,
		})
	}
}

func (c *HeartbeatClient) notifyDrop(ctx context.Context, readErr error) {
	if c.sink == nil {
		return
	}

	kind := EventStreamDisconnected
	message := "heartbeat stream disconnected"
	if errors.Is(readErr, ErrStreamTimeout) {
		kind = EventStreamTimeout
		message = "heartbeat stream went silent"
	}
	c.sink.Notify(ctx, Event{Kind: kind, Message: message, Err: readErr})
}

func (c *HeartbeatClient) waitRetry(ctx context.Context, backoff *Backoff, cause error) error {
	delay := backoff.Next()
	if c.logger != nil {
		c.logger.Warn().
			Err(cause).
			Dur("retry_in", delay).
			Int("consecutive_failures", backoff.Attempts()).
			Msg("heartbeat stream down, will reconnect")
	}
	return Sleep(ctx, delay)
}
