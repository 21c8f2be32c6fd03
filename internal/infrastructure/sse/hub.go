package sse

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound = errors.New("SSE client not found")
	ErrChannelFull    = errors.New("SSE message channel full")
)

// Message is one server-sent event.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	DealID    int64           `json:"dealId,omitempty"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(event string, dealID int64, data json.RawMessage) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Event:     event,
		DealID:    dealID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Client is an active SSE connection. DealID scopes the subscription; zero
// follows every deal.
type Client struct {
	ClientID    string
	DealID      int64
	ConnectedAt time.Time
	MessageChan chan *Message
}

// NewClient creates a client subscribed to one deal (or all, when dealID is
// zero).
func NewClient(clientID string, dealID int64) *Client {
	return &Client{
		ClientID:    clientID,
		DealID:      dealID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *Message, 100),
	}
}

// Close closes the client's message channel.
func (c *Client) Close() {
	close(c.MessageChan)
}

// Hub manages SSE clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastDeal delivers a message to every client following the deal.
func (h *Hub) BroadcastDeal(dealID int64, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.DealID == 0 || c.DealID == dealID {
			trySend(c, message)
		}
	}
}

// BroadcastAll delivers a message to every client.
func (h *Hub) BroadcastAll(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		trySend(c, message)
	}
}

func (h *Hub) SendToClient(clientID string, message *Message) error {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c == nil {
		return ErrClientNotFound
	}
	if !trySend(c, message) {
		return ErrChannelFull
	}
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *Client, msg *Message) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
