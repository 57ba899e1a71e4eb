package push

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

// methodNames maps event kinds to the push method invoked on clients.
var methodNames = map[domain.EventKind]string{
	domain.EventForecastCreated: "ForecastCreated",
	domain.EventForecastUpdated: "ForecastUpdated",
	domain.EventForecastDeleted: "ForecastDeleted",
	domain.EventUserRegistered:  "UserRegistered",
}

// deliveredEvent is the payload handed to the client-side method.
type deliveredEvent struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// Fanout forwards push-eligible events, local and relayed alike, to live
// connections. When the event carries an originating connection the delivery
// excludes it so the acting client never receives an echo of its own change.
type Fanout struct {
	pusher port.Pusher
	logger *zap.Logger
}

// NewFanout builds the push fan-out handler.
func NewFanout(pusher port.Pusher, logger *zap.Logger) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{pusher: pusher, logger: logger}
}

// Name identifies the handler in dispatcher logs.
func (f *Fanout) Name() string { return "push-fanout" }

// Kinds subscribes the fan-out to every push-eligible event kind.
func (f *Fanout) Kinds() []domain.EventKind { return domain.PushKinds() }

// Handle queues the event for delivery. Always fire-and-forget: the hub logs
// and drops on slow or stale connections, nothing propagates back.
func (f *Fanout) Handle(ctx context.Context, event domain.Event) error {
	method, ok := methodNames[event.Kind]
	if !ok {
		return nil
	}

	payload := deliveredEvent{
		ID:        event.ID,
		Kind:      string(event.Kind),
		Timestamp: event.Timestamp,
		Actor:     event.Actor,
		Payload:   event.Payload,
	}

	if event.OriginConnection != "" {
		f.pusher.BroadcastExcept(event.OriginConnection, method, payload)
	} else {
		f.pusher.Broadcast(method, payload)
	}

	return nil
}

var _ port.EventHandler = (*Fanout)(nil)
