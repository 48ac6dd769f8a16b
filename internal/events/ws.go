package events

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/meal-max-arena/internal/obslog"
)

// WSHandler streams hub events to websocket clients as JSON.
type WSHandler struct {
	hub          *Hub
	pingInterval time.Duration
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{hub: hub, pingInterval: 30 * time.Second}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// No inbound messages expected; CloseRead cancels ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())

	id, ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)
	obslog.L().Info("ws_subscriber_connected", zap.Int("subscriber", id))

	t := time.NewTicker(h.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "client closed")
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "hub closed")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				obslog.L().Warn("ws_write_failed", zap.Int("subscriber", id), zap.Error(err))
				return
			}
		}
	}
}
