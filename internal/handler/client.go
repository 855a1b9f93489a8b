package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"objectlens/internal/logger"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Viewers is the hub that overlays are broadcast to.
type Viewers interface {
	Register(conn *websocket.Conn) bool
	Unregister(conn *websocket.Conn)
}

// ViewWebsocketHandler registers viewer connections with the hub so they
// receive every rendered overlay. Messages from viewers are ignored.
func ViewWebsocketHandler(hub Viewers, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !hub.Register(connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(connection)

		logger.Info("Viewer connected")

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Debug("Viewer disconnected: %v", err)
				}
				return
			}
		}
	}
}
