package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event types pushed to clients.
const (
	EventCheckIn      = "checkin_created"
	EventHabitCreated = "habit_created"
	EventHabitUpdated = "habit_updated"
	EventHabitDeleted = "habit_deleted"
	EventFollowed     = "user_followed"
	EventUnfollowed   = "user_unfollowed"
)

// Message is a live notification about something a user did.
type Message struct {
	Type    string `json:"type"`
	ActorID string `json:"actorId"`
	Data    any    `json:"data,omitempty"`
}

func NewMessage(eventType, actorID string, data any) Message {
	return Message{Type: eventType, ActorID: actorID, Data: data}
}

// Hub tracks connected clients by user and delivers messages to the users
// named as the audience.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Publish queues msg for every connection of each user in audience and
// returns how many connections it reached. Slow clients whose buffer is
// full miss the message.
func (h *Hub) Publish(msg Message, audience ...string) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal event", "type", msg.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(audience))
	delivered := 0
	for _, userID := range audience {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		for c := range h.clients[userID] {
			select {
			case c.send <- data:
				delivered++
			default:
				h.logger.Debug("client buffer full, dropping event", "user_id", userID, "type", msg.Type)
			}
		}
	}
	return delivered
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
