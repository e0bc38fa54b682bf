package handler

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/dto"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/series"
	"rgbmonitor/internal/service"
	hub "rgbmonitor/internal/service/websocket"
)

const (
	viewerWriteWait = 10 * time.Second
	viewerPongWait  = 60 * time.Second
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler handles viewer connections over WebSocket. A viewer
// first receives the current series, then frames and series updates from the hub.
func ViewWebsocketHandler(manager *service.Manager, buffer *series.Buffer, viewers *hub.HubService,
	cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		snapshot, err := json.Marshal(dto.SeriesMessage{
			Type:      dto.TypeSeries,
			SessionID: manager.Status().ID,
			Window:    cfg.WindowSeconds,
			Samples:   dto.FromSamples(buffer.Snapshot()),
		})
		if err != nil {
			logger.Error("Failed to encode series snapshot: %v", err)
			connection.Close()
			return
		}
		connection.SetWriteDeadline(time.Now().Add(viewerWriteWait))
		if err := connection.WriteMessage(websocket.TextMessage, snapshot); err != nil {
			logger.Error("Failed to send series snapshot: %v", err)
			connection.Close()
			return
		}

		if !viewers.Register(connection) {
			connection.Close()
			return
		}
		defer viewers.Unregister(connection)

		logger.Info("Viewer connected")

		connection.SetReadDeadline(time.Now().Add(viewerPongWait))
		connection.SetPongHandler(func(string) error {
			return connection.SetReadDeadline(time.Now().Add(viewerPongWait))
		})

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
