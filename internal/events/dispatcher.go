// Package events implements the in-process event dispatcher every other
// control-plane component hangs off.
package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

// Dispatcher multicasts events to handlers registered for their kind.
// Handlers run independently: an error or panic in one is captured, logged,
// and never aborts the siblings or reaches the publisher. Registration is
// assembled once at startup.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind][]port.EventHandler
	logger   *zap.Logger
}

// NewDispatcher builds an empty dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[domain.EventKind][]port.EventHandler),
		logger:   logger,
	}
}

// Register subscribes a handler to every kind it declares.
func (d *Dispatcher) Register(handler port.EventHandler) {
	if handler == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, kind := range handler.Kinds() {
		d.handlers[kind] = append(d.handlers[kind], handler)
	}
}

// Publish invokes every handler registered for the event's kind. No ordering
// is guaranteed between handlers.
func (d *Dispatcher) Publish(ctx context.Context, event domain.Event) {
	d.mu.RLock()
	registered := d.handlers[event.Kind]
	d.mu.RUnlock()

	for _, handler := range registered {
		if err := d.invoke(ctx, handler, event); err != nil {
			d.logger.Error("event handler failed",
				zap.String("handler", handler.Name()),
				zap.String("kind", string(event.Kind)),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) invoke(ctx context.Context, handler port.EventHandler, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ port.EventBus = (*Dispatcher)(nil)
