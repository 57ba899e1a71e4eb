// Package push delivers domain events to live WebSocket connections.
package push

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

// Frame is the wire format for a push delivery: one method per event kind,
// the payload as its sole argument.
type Frame struct {
	Method  string `json:"method"`
	Payload any    `json:"payload"`
}

// Options tunes connection handling.
type Options struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	return o
}

// Hub owns this instance's live connections and mirrors their lifecycle into
// the distributed registry so other instances can resolve where a user is
// connected. Delivery is fire-and-forget: a slow client drops frames rather
// than stalling the broadcast loop.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	byUser   map[string]map[string]*Client
	registry port.ConnectionRegistry
	instance string
	opts     Options
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewHub builds a hub for this process instance.
func NewHub(registry port.ConnectionRegistry, instanceID string, opts Options, logger *zap.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		byUser:   make(map[string]map[string]*Client),
		registry: registry,
		instance: instanceID,
		opts:     opts.withDefaults(),
		logger:   logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register admits a new connection: local maps first, then the distributed
// registry. Registry failures are logged and tolerated; the socket still
// works, the fleet just cannot target this user until reconnect.
func (h *Hub) Register(ctx context.Context, userID string, conn Conn) *Client {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan Frame, h.opts.SendBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	userConns := h.byUser[userID]
	if userConns == nil {
		userConns = make(map[string]*Client)
		h.byUser[userID] = userConns
	}
	userConns[client.ID] = client
	h.mu.Unlock()

	if h.registry != nil {
		record := domain.ConnectionRecord{
			UserID:       userID,
			ConnectionID: client.ID,
			InstanceID:   h.instance,
			ConnectedAt:  h.now(),
		}
		if err := h.registry.AddConnection(ctx, record); err != nil {
			h.logger.Warn("failed to register connection in distributed registry",
				zap.String("connection_id", client.ID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	if h.metrics != nil {
		h.metrics.Connections.Inc()
	}

	h.logger.Info("connection established",
		zap.String("connection_id", client.ID),
		zap.String("user_id", userID),
		zap.String("instance", h.instance),
	)

	return client
}

// Unregister removes a connection after a normal close or an abnormal drop.
func (h *Hub) Unregister(ctx context.Context, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	_, known := h.clients[client.ID]
	if known {
		delete(h.clients, client.ID)
		if userConns := h.byUser[client.UserID]; userConns != nil {
			delete(userConns, client.ID)
			if len(userConns) == 0 {
				delete(h.byUser, client.UserID)
			}
		}
	}
	h.mu.Unlock()

	if !known {
		return
	}

	client.closeOnce.Do(func() { close(client.done) })

	if h.registry != nil {
		if err := h.registry.RemoveConnection(ctx, client.UserID, client.ID); err != nil {
			h.logger.Warn("failed to remove connection from distributed registry",
				zap.String("connection_id", client.ID),
				zap.String("user_id", client.UserID),
				zap.Error(err),
			)
		}
	}

	if h.metrics != nil {
		h.metrics.Connections.Dec()
	}

	h.logger.Info("connection closed",
		zap.String("connection_id", client.ID),
		zap.String("user_id", client.UserID),
	)
}

// Broadcast queues a frame for every local connection.
func (h *Hub) Broadcast(method string, payload any) {
	h.BroadcastExcept("", method, payload)
}

// BroadcastExcept queues a frame for every local connection except the named
// one. An ID owned by another instance matches nothing here, so the exclusion
// naturally applies only within the originating process.
func (h *Hub) BroadcastExcept(excludeConnectionID, method string, payload any) {
	frame := Frame{Method: method, Payload: payload}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		if id == excludeConnectionID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.enqueue(client, frame)
	}
}

// SendToUser queues a frame for every local connection of one user.
func (h *Hub) SendToUser(userID, method string, payload any) {
	frame := Frame{Method: method, Payload: payload}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byUser[userID]))
	for _, client := range h.byUser[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.enqueue(client, frame)
	}
}

// LocalConnections reports how many sockets this instance currently holds.
func (h *Hub) LocalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every local connection.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		_ = client.conn.Close()
		h.Unregister(ctx, client)
	}
}

func (h *Hub) enqueue(client *Client, frame Frame) {
	select {
	case client.send <- frame:
	default:
		// Never block the broadcast loop on one slow consumer.
		if h.metrics != nil {
			h.metrics.DroppedFrames.Inc()
		}
		h.logger.Warn("dropping frame for slow connection",
			zap.String("connection_id", client.ID),
			zap.String("user_id", client.UserID),
			zap.String("method", frame.Method),
		)
	}
}

var _ port.Pusher = (*Hub)(nil)
