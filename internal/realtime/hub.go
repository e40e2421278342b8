package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Dashboard feed events.
const (
	EventUserCreated       = "user_created"
	EventResponseSubmitted = "response_submitted"
	EventSyncCompleted     = "sync_completed"
)

// Publisher fans an event out to every server instance.
type Publisher interface {
	PublishDashboardEvent(event string, payload []byte) error
}

// Subscriber delivers events published by any instance.
type Subscriber interface {
	SubscribeDashboard(handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub tracks connected admin dashboards and pushes feed events to them.
// With Redis configured, events go through pub/sub so dashboards on every
// instance see writes handled by any instance.
type Hub struct {
	clients map[string]*Client
	cancel  func() // Redis subscription, live while any client is connected
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
	sub     Subscriber
}

// NewHub creates a hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		pub:     pub,
		sub:     sub,
	}
}

// Register adds a dashboard connection. The first one starts the Redis subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if len(h.clients) == 0 && h.sub != nil && h.cancel == nil {
		cancel, err := h.sub.SubscribeDashboard(func(event string, payload []byte) {
			h.Broadcast(event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Warn("dashboard subscribe failed", zap.Error(err))
		} else {
			h.cancel = cancel
		}
	}
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("dashboard connected", zap.String("client_id", c.ID))
}

// Unregister removes a connection. The last one stops the Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	if len(h.clients) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.logger.Debug("dashboard disconnected", zap.String("client_id", c.ID))
}

// Broadcast sends an event to local connections only.
func (h *Hub) Broadcast(event string, payload any) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("encode dashboard event", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers an event to dashboards on every instance. Through Redis the
// subscriber callback does the local broadcast, so local clients get it once.
func (h *Hub) Publish(event string, payload any) {
	if h.pub == nil {
		h.Broadcast(event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("encode dashboard event", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.pub.PublishDashboardEvent(event, data); err != nil {
		h.logger.Warn("publish dashboard event failed, delivering locally", zap.String("event", event), zap.Error(err))
		h.Broadcast(event, json.RawMessage(data))
	}
}

// ClientCount returns the number of connected dashboards on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
