package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/gorilla/websocket"

	"objectlens/internal/dto"
	"objectlens/internal/logger"
	"objectlens/internal/model"
	"objectlens/internal/pipeline"
)

// broadcastBuffer is how many messages may wait for Run before Broadcast drops them.
const broadcastBuffer = 8

// HubService fans rendered overlays out to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	logger     *logger.Logger
}

func NewHubService(log *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     log.WithFields(logger.Fields{"component": "hub"}),
	}
}

// Run owns the client set until ctx is done, then disconnects every viewer.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("Client connected. Total: %d", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.logger.Info("Client disconnected. Total: %d", len(h.clients))

		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
		}
	}
}

// Register adds a viewer. It returns false once the hub has stopped.
func (h *HubService) Register(client *websocket.Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every viewer, dropping it when viewers are too slow.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("⚠️ viewers are lagging, dropping overlay")
	}
}

// Publish encodes an overlay as dto.OverlayMessage and broadcasts it.
func (h *HubService) Publish(overlay *pipeline.Overlay) {
	msg := dto.OverlayMessage{
		Generation: overlay.Generation,
		Camera:     overlay.Camera,
		Threshold:  overlay.Threshold,
		Records:    overlay.Boxed,
		Panel:      overlay.Panel,
	}
	if overlay.Image != nil {
		data, err := model.EncodeJPEG(overlay.Image)
		if err != nil {
			h.logger.Error("Failed to encode overlay: %v", err)
			return
		}
		msg.Image = base64.StdEncoding.EncodeToString(data)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal overlay: %v", err)
		return
	}
	h.Broadcast(payload)
}
