package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
)

// Handler upgrades requests and attaches the connection to hub. A nil
// checkOrigin allows same-host origins only.
func Handler(hub *Hub, checkOrigin func(*http.Request) bool, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := infrastructure.EnsureTraceID(r.Context())
		traceID := infrastructure.GetTraceID(ctx)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WarnContext(ctx, "websocket upgrade failed",
				slog.String("error", err.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			return
		}

		client := NewClient(hub, conn, r.RemoteAddr, traceID, logger)
		if !hub.Register(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}
}
