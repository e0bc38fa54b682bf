package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	broadcastQueueSize = 64
)

// HubService fans messages out to every connected viewer.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{} // zamykany przy końcu każdego Serve
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Serve runs the hub until ctx is cancelled, then closes every client.
// A restarted Serve accepts viewers again.
func (h *HubService) Serve(ctx context.Context) error {
	h.mutex.Lock()
	select {
	case <-h.done:
		h.done = make(chan struct{})
	default:
	}
	done := h.done
	h.mutex.Unlock()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer h.shutdown(done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			metrics.ViewersConnected.Set(float64(count))
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.send(message)

		case <-ticker.C:
			h.ping()
		}
	}
}

// String names the service for the supervisor.
func (h *HubService) String() string {
	return "websocket-hub"
}

// Register adds a viewer. It returns false once the hub has stopped.
func (h *HubService) Register(client *websocket.Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopped():
		return false
	}
}

// Unregister removes a viewer and closes its connection.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.stopped():
	}
}

func (h *HubService) stopped() <-chan struct{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.done
}

// Broadcast queues a text message for every viewer without blocking.
// It reports false when the message was dropped.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// GetClientCount returns the number of registered viewers.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *HubService) send(message []byte) {
	h.mutex.RLock()
	var failed []*websocket.Conn
	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Error("Error sending message: %v", err)
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range failed {
		h.remove(client)
	}
}

func (h *HubService) ping() {
	h.mutex.RLock()
	var failed []*websocket.Conn
	for client := range h.clients {
		if err := client.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range failed {
		h.remove(client)
	}
}

func (h *HubService) remove(client *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.Close()
	}
	count := len(h.clients)
	h.mutex.Unlock()

	if ok {
		metrics.ViewersConnected.Set(float64(count))
		h.logger.Info("Viewer disconnected. Total: %d", count)
	}
}

func (h *HubService) shutdown(done chan struct{}) {
	h.mutex.Lock()
	close(done)
	for client := range h.clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		client.Close()
		delete(h.clients, client)
	}
	h.mutex.Unlock()
	metrics.ViewersConnected.Set(0)
}
