package hub

import (
	"context"
	"log/slog"
	"sync"
)

// Client is one connected map renderer.
type Client struct {
	ID   string
	Send chan []byte
}

func NewClient(id string, bufferSize int) *Client {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Client{
		ID:   id,
		Send: make(chan []byte, bufferSize),
	}
}

// Hub fans renderer snapshots out to every connected client. Snapshots are
// whole, so the hub only ever needs the latest one: pending broadcasts
// coalesce and late joiners receive the latest payload on registration.
// Register and Unregister never block; once Run has returned, new clients
// are closed immediately.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	latest  []byte
	closed  bool

	notify chan struct{}

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		notify:  make(chan struct{}, 1),
		logger:  logger.With("component", "renderer_hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case <-h.notify:
			h.fanout()
		}
	}
}

// Broadcast records payload as the latest snapshot and schedules delivery.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	h.latest = payload
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(client.Send)
		h.logger.Debug("renderer rejected after shutdown", "client_id", client.ID)
		return
	}
	h.clients[client] = struct{}{}
	latest := h.latest
	total := len(h.clients)
	if latest != nil {
		offer(client, latest)
	}
	h.mu.Unlock()

	h.logger.Debug("renderer registered", "client_id", client.ID, "total", total)
}

func (h *Hub) Unregister(client *Client) {
	h.removeClient(client)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

func (h *Hub) fanout() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.latest == nil {
		return
	}
	for client := range h.clients {
		if !offer(client, h.latest) {
			h.logger.Debug("renderer send buffer full", "client_id", client.ID)
		}
	}
}

// offer queues data for client, evicting the oldest queued snapshot when
// the buffer is full. It reports whether data was queued without eviction.
func offer(client *Client, data []byte) bool {
	select {
	case client.Send <- data:
		return true
	default:
	}

	select {
	case <-client.Send:
	default:
	}
	select {
	case client.Send <- data:
	default:
	}
	return false
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("renderer unregistered", "client_id", client.ID, "total", len(h.clients))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]struct{})
	h.closed = true
}
