package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "tarikchat:notifications"
	module         = "WS_HUB"
)

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// UserID -> connected clients (multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis fan-out across instances; nil keeps delivery local
	rdb *redis.Client
	// instance id, used to skip our own cluster messages
	origin string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info(module, "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info(module, "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, clients := range h.clients {
		for _, c := range clients {
			close(c.Send)
		}
		delete(h.clients, uid)
	}
}

// Send delivers a notification to every device of the user, here and on
// the other instances.
func (h *Hub) Send(userID string, notification entity.Notification) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})
	if err != nil {
		h.logger.Error(module, "Failed to encode notification", map[string]interface{}{"error": err})
		return
	}

	h.deliverLocal(userID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.origin, TargetUserID: userID, Message: data})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn(module, "Cluster publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(userID string, data []byte) int {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		select {
		case client.Send <- data:
			delivered++
		default:
			h.logger.Warn(module, "Client send buffer full, dropping client", map[string]interface{}{"user_id": userID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
	return delivered
}

// handleCluster applies a message received from another instance.
func (h *Hub) handleCluster(raw []byte) {
	var msg clusterMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn(module, "Cluster message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if msg.Origin == h.origin || msg.TargetUserID == "" {
		return
	}
	h.deliverLocal(msg.TargetUserID, msg.Message)
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleCluster([]byte(msg.Payload))
		}
	}
}
