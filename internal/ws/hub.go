package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks open connections so they can be counted and closed on shutdown.
// It never routes messages between connections.
type Hub struct {
	clients map[*Client]bool
	mu      sync.Mutex
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

// ActiveConnections returns the number of open connections
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll sends a going-away close frame to every connection. Each
// connection's read loop then observes the close and exits on its own.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	for _, client := range clients {
		_ = client.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = client.Conn.Close()
	}
}
