package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
)

type recordingHandler struct {
	name   string
	kinds  []domain.EventKind
	seen   []domain.Event
	err    error
	panics bool
}

func (h *recordingHandler) Name() string              { return h.name }
func (h *recordingHandler) Kinds() []domain.EventKind { return h.kinds }

func (h *recordingHandler) Handle(ctx context.Context, event domain.Event) error {
	if h.panics {
		panic("boom")
	}
	h.seen = append(h.seen, event)
	return h.err
}

func TestDispatcherRoutesByKind(t *testing.T) {
	dispatcher := NewDispatcher(zaptest.NewLogger(t))

	forecasts := &recordingHandler{name: "forecasts", kinds: []domain.EventKind{domain.EventForecastCreated, domain.EventForecastDeleted}}
	identity := &recordingHandler{name: "identity", kinds: []domain.EventKind{domain.EventUserLoggedIn}}

	dispatcher.Register(forecasts)
	dispatcher.Register(identity)

	dispatcher.Publish(context.Background(), domain.NewEvent(domain.EventForecastCreated, "user-1", "", domain.Forecast{ID: "f-1"}))

	if len(forecasts.seen) != 1 {
		t.Fatalf("expected forecasts handler to see 1 event, got %d", len(forecasts.seen))
	}
	if len(identity.seen) != 0 {
		t.Fatalf("expected identity handler to see no events, got %d", len(identity.seen))
	}
}

func TestDispatcherInvokesEachHandlerExactlyOnce(t *testing.T) {
	dispatcher := NewDispatcher(zaptest.NewLogger(t))

	first := &recordingHandler{name: "first", kinds: []domain.EventKind{domain.EventForecastUpdated}}
	second := &recordingHandler{name: "second", kinds: []domain.EventKind{domain.EventForecastUpdated}}

	dispatcher.Register(first)
	dispatcher.Register(second)

	dispatcher.Publish(context.Background(), domain.NewEvent(domain.EventForecastUpdated, "", "", domain.Forecast{ID: "f-2"}))

	if len(first.seen) != 1 || len(second.seen) != 1 {
		t.Fatalf("expected both handlers to run exactly once, got %d and %d", len(first.seen), len(second.seen))
	}
}

func TestDispatcherIsolatesFailingHandler(t *testing.T) {
	dispatcher := NewDispatcher(zaptest.NewLogger(t))

	failing := &recordingHandler{name: "failing", kinds: []domain.EventKind{domain.EventForecastCreated}, err: errors.New("handler exploded")}
	healthy := &recordingHandler{name: "healthy", kinds: []domain.EventKind{domain.EventForecastCreated}}

	dispatcher.Register(failing)
	dispatcher.Register(healthy)

	dispatcher.Publish(context.Background(), domain.NewEvent(domain.EventForecastCreated, "", "", domain.Forecast{ID: "f-3"}))

	if len(healthy.seen) != 1 {
		t.Fatalf("expected healthy handler to run despite sibling failure, got %d invocations", len(healthy.seen))
	}
}

func TestDispatcherRecoversPanickingHandler(t *testing.T) {
	dispatcher := NewDispatcher(zaptest.NewLogger(t))

	panicking := &recordingHandler{name: "panicking", kinds: []domain.EventKind{domain.EventForecastDeleted}, panics: true}
	healthy := &recordingHandler{name: "healthy", kinds: []domain.EventKind{domain.EventForecastDeleted}}

	dispatcher.Register(panicking)
	dispatcher.Register(healthy)

	dispatcher.Publish(context.Background(), domain.NewEvent(domain.EventForecastDeleted, "", "", domain.ForecastRef{ID: "f-4"}))

	if len(healthy.seen) != 1 {
		t.Fatalf("expected healthy handler to run despite sibling panic, got %d invocations", len(healthy.seen))
	}
}

func TestDispatcherIgnoresUnregisteredKind(t *testing.T) {
	dispatcher := NewDispatcher(zaptest.NewLogger(t))

	handler := &recordingHandler{name: "forecasts", kinds: []domain.EventKind{domain.EventForecastCreated}}
	dispatcher.Register(handler)

	dispatcher.Publish(context.Background(), domain.NewEvent(domain.EventUserLoggedOut, "user-1", "", domain.UserRef{UserID: "user-1"}))

	if len(handler.seen) != 0 {
		t.Fatalf("expected no invocations for unregistered kind, got %d", len(handler.seen))
	}
}
