package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/CageChen/layerhub/internal/logger"
	"github.com/CageChen/layerhub/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Message types pushed to clients.
const (
	MessageFileChange   = "fileChange"
	MessageCacheCleared = "cacheCleared"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// FileChangePayload is the payload of a fileChange message
type FileChangePayload struct {
	Event       string `json:"event"`
	Path        string `json:"path"`
	Invalidated int    `json:"invalidated"`
}

// WSHandler pushes change and invalidation notifications to connected clients
type WSHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	// Serializes writes; a websocket.Conn allows one concurrent writer.
	writeMu sync.Mutex
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler() *WSHandler {
	return &WSHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed: %v", err)
		return
	}
	defer func() {
		h.removeClient(conn)
		_ = conn.Close()
	}()

	h.addClient(conn)

	// Keep connection alive until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// OnFileChange is a watcher callback
func (h *WSHandler) OnFileChange(event watcher.Event) {
	eventType := event.Type.String()
	if event.Type == watcher.EventWrite {
		eventType = "update"
	}

	h.broadcast(WSMessage{
		Type: MessageFileChange,
		Payload: FileChangePayload{
			Event:       eventType,
			Path:        event.Path,
			Invalidated: event.Invalidated,
		},
	})
}

// OnCacheCleared is called after the lookup cache was cleared on request
func (h *WSHandler) OnCacheCleared(n int) {
	h.broadcast(WSMessage{
		Type:    MessageCacheCleared,
		Payload: map[string]int{"invalidated": n},
	})
}

// Clients returns the number of connected clients
func (h *WSHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *WSHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *WSHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.removeClient(client)
		}
	}
}
