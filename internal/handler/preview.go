package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"agrovision/internal/logger"
	"agrovision/internal/service/preview"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PreviewWebsocketHandler handles viewer connections over WebSocket and
// hands them to the preview hub, which streams annotated frames and
// sighting notifications.
func PreviewWebsocketHandler(hub *preview.Hub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		logger.Info("Viewer connected from %s", r.RemoteAddr)
		hub.Serve(connection)
	}
}
