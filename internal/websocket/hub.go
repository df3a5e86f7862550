// Package websocket provides WebSocket connection management and message broadcasting.
package websocket

import (
	"context"
	"log/slog"
	"sync"
)

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	register   chan *Client
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop and returns when ctx is done.
// This should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			slog.Debug("websocket client connected", "session_id", client.SessionID, "clients", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			slog.Debug("websocket client disconnected", "session_id", client.SessionID, "clients", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues message for client, dropping the client when its buffer
// is full. Callers hold h.mu.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		slog.Warn("broadcast channel full, dropping message")
	}
}

// SendTo sends a message to the clients of one session.
func (h *Hub) SendTo(sessionID string, message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for client := range h.clients {
		if client.SessionID == sessionID {
			h.deliver(client, message)
			n++
		}
	}
	return n
}

// Register adds a client to the hub. After Run has returned the client
// is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub. It returns immediately once
// Run has returned, since the hub closed every client on its way out.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a WebSocket client connection.
type Client struct {
	// SessionID is the login session the connection belongs to, if any.
	SessionID string

	hub  *Hub
	send chan []byte
}

// NewClient creates a new WebSocket client for sessionID.
func NewClient(hub *Hub, sessionID string) *Client {
	return &Client{
		SessionID: sessionID,
		hub:       hub,
		send:      make(chan []byte, 256),
	}
}

// Send returns the send channel for the client.
func (c *Client) Send() chan []byte {
	return c.send
}

// Reply queues a direct response to this client. It reports false when
// the client is no longer registered.
func (c *Client) Reply(message []byte) bool {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.hub.clients[c] {
		return false
	}
	c.hub.deliver(c, message)
	return true
}
