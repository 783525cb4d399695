package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"task-workflow-api/internal/events"
	"task-workflow-api/internal/log"
)

// Client represents a single websocket client connection.
// The actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active user connections and pushes task events to the users
// involved in each task.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[string]map[Client]struct{}
	logger          log.Logger
}

// NewHub returns an empty hub.
func NewHub(logger log.Logger) *Hub {
	if logger == nil {
		logger = log.Noop
	}
	return &Hub{
		userIDToClients: make(map[string]map[Client]struct{}),
		logger:          logger.WithValues(log.Kv{"svc": "realtime.Hub"}),
	}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Connected returns how many clients userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userIDToClients[userID])
}

// Broadcast sends a message to all clients of a user and returns how many
// accepted it. Failed clients are left for their handler to clean up.
func (h *Hub) Broadcast(userID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.userIDToClients[userID] {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// Publish implements events.Publisher by broadcasting e to each recipient once.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	seen := make(map[string]struct{}, len(e.Recipients))
	for _, userID := range e.Recipients {
		if userID == "" {
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		if n := h.Broadcast(userID, msg); n > 0 {
			h.logger.WithCtxValues(ctx).Debugf("sent %s for task %s to %d clients of %s", e.Type, e.TaskID, n, userID)
		}
	}
	return nil
}

var _ events.Publisher = (*Hub)(nil)
