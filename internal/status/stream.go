package status

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamHandler upgrades the request to a WebSocket and streams snapshots as
// JSON text frames: the current snapshot immediately on connect, then every
// published update until the client disconnects or the server shuts down.
func StreamHandler(pub *Publisher, logger *zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			if logger != nil {
				logger.Debug().Err(err).Msg("websocket upgrade failed")
			}
			return
		}
		defer conn.Close() //nolint:errcheck // best-effort close on teardown

		// The initial snapshot comes from the same locked section that
		// registers the subscription, so every buffered update is strictly
		// newer than the first frame.
		current, updates, cancel := pub.SubscribeCurrent()
		defer cancel()

		// Reader loop exists only to notice the peer going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		if err := writeSnapshot(conn, current); err != nil {
			return
		}

		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if err := writeSnapshot(conn, snap); err != nil {
					if logger != nil {
						logger.Debug().Err(err).Msg("status stream write failed")
					}
					return
				}
			case <-r.Context().Done():
				deadline := time.Now().Add(streamWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
				return
			}
		}
	})
}

func writeSnapshot(conn *websocket.Conn, snap Snapshot) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(snap)
}
