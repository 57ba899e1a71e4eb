package port

import (
	"context"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
)

// EventHandler consumes domain events. A handler declares the kinds it
// accepts; the dispatcher routes by kind rather than by handler type.
type EventHandler interface {
	Name() string
	Kinds() []domain.EventKind
	Handle(ctx context.Context, event domain.Event) error
}

// EventBus multicasts events to registered handlers. Publish never reports
// handler failures to the caller: a business operation must succeed or fail
// on its own merits, independent of what downstream handlers do.
type EventBus interface {
	Publish(ctx context.Context, event domain.Event)
}
