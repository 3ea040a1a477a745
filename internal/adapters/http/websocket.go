package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/realtime"
)

// outboundFrame is the wire envelope for events pushed to clients.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// WebSocketHandler upgrades realtime clients and runs the presence protocol.
// The credential token comes from the handshake query string; a failed
// authentication closes the socket after one error frame. All writes to a
// connection share one mutex: fanout deliveries race with protocol replies.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		connID := uuid.NewString()
		var mu sync.Mutex
		sink := func(event string, payload any) error {
			data, err := json.Marshal(outboundFrame{Event: event, Data: payload})
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		ctx := context.Background()
		token := c.Query("token")
		if _, err := deps.Protocol.Connect(ctx, connID, token, sink); err != nil {
			_ = sink(realtime.EventError, map[string]string{"message": err.Error()})
			return
		}
		defer deps.Protocol.Disconnect(connID)

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("ws read error", "conn_id", connID, "error", err)
				}
				return
			}
			deps.Protocol.HandleMessage(ctx, connID, msg)
		}
	}
}
