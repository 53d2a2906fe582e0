package ws

import (
	"encoding/json"
	"sync"
)

// Client is one WebSocket subscriber watching a checkout session.
type Client struct {
	SessionID string
	UserID    string
	Send      chan []byte

	hub  *Hub
	once sync.Once
	done chan struct{}
}

func NewClient(sessionID, userID string) *Client {
	return &Client{
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// Close unregisters the client and signals its writer loop. Send is never
// closed: broadcasts run on poller goroutines, and a send racing a peer
// disconnect must be dropped, not panic.
func (c *Client) Close() {
	c.once.Do(func() {
		if c.hub != nil {
			c.hub.unregister(c)
		}
		close(c.done)
	})
}

// Done is closed when the client has been torn down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Hub fans checkout status updates out to the clients watching each
// session. A session can have several watchers (an extra tab, the original
// tab after the redirect round trip).
type Hub struct {
	mu        sync.RWMutex
	bySession map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{bySession: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.bySession[c.SessionID] == nil {
		h.bySession[c.SessionID] = make(map[*Client]struct{})
	}
	h.bySession[c.SessionID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.bySession[c.SessionID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.bySession, c.SessionID)
		}
	}
}

// BroadcastToSession sends payload to every watcher of the session. Slow
// consumers and clients mid-teardown are skipped rather than blocking the
// poller.
func (h *Hub) BroadcastToSession(sessionID string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	m := h.bySession[sessionID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case <-c.done:
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) WatcherCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySession[sessionID])
}
