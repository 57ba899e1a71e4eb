package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/relay"
)

func newTestBroker(t *testing.T) (*Broker, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})
	broker := NewBroker(client, zaptest.NewLogger(t))

	t.Cleanup(func() {
		_ = broker.Close()
		_ = client.Close()
		server.Close()
	})

	return broker, server
}

func TestBrokerPublishReachesSubscriber(t *testing.T) {
	broker, _ := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := broker.Subscribe(ctx, "platform.forecast.created")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if err := broker.Publish(ctx, "platform.forecast.created", []byte(`{"origin":"web-1"}`)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case msg := <-messages:
		if msg.Channel != "platform.forecast.created" {
			t.Fatalf("unexpected channel %q", msg.Channel)
		}
		if string(msg.Data) != `{"origin":"web-1"}` {
			t.Fatalf("unexpected payload %q", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
	}
}

func TestBrokerSubscribeFiltersChannels(t *testing.T) {
	broker, _ := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := broker.Subscribe(ctx, "platform.forecast.created")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if err := broker.Publish(ctx, "platform.user.registered", []byte(`ignored`)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := broker.Publish(ctx, "platform.forecast.created", []byte(`wanted`)); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case msg := <-messages:
		if string(msg.Data) != "wanted" {
			t.Fatalf("expected only the subscribed channel's message, got %q", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
	}
}

func TestBrokerStreamClosesOnCancel(t *testing.T) {
	broker, _ := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := broker.Subscribe(ctx, "platform.forecast.created")
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	cancel()

	select {
	case _, ok := <-messages:
		if ok {
			t.Fatalf("expected stream to close without delivering")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for stream to close")
	}
}

type capturingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *capturingBus) Publish(ctx context.Context, event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *capturingBus) snapshot() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.events...)
}

// The listener must stay subscribed for the whole process lifetime, not just
// the startup handshake.
func TestBrokerFeedsListenerForProcessLifetime(t *testing.T) {
	broker, _ := newTestBroker(t)
	bus := &capturingBus{}

	listener := relay.NewListener(broker, bus, "api-1", "platform", time.Second, zaptest.NewLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	event := domain.NewEvent(domain.EventForecastCreated, "user-1", "conn-1", domain.ForecastRef{ID: "forecast-1"})
	payload, err := relay.Encode("web-1", event)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	channel := relay.ChannelName("platform", domain.EventForecastCreated)

	// The subscription is confirmed inside Run, so keep publishing until the
	// listener picks one up.
	deadline := time.After(3 * time.Second)
	for len(bus.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for the relayed event to be re-injected")
		default:
		}
		if err := broker.Publish(context.Background(), channel, payload); err != nil {
			t.Fatalf("Publish returned error: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if listener.Degraded() {
		t.Fatalf("listener reported degraded on a healthy broker")
	}

	got := bus.snapshot()[0]
	if got.ID != event.ID || got.Kind != domain.EventForecastCreated {
		t.Fatalf("unexpected re-injected event %+v", got)
	}
	if !got.Remote {
		t.Fatalf("expected re-injected event to be marked remote")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener did not stop after cancellation")
	}
}

func TestBrokerReportsConnectivity(t *testing.T) {
	broker, server := newTestBroker(t)

	if !broker.Connected() {
		t.Fatalf("expected broker to report connected after startup ping")
	}

	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := broker.Publish(ctx, "platform.forecast.created", []byte(`{}`)); err == nil {
		t.Fatalf("expected publish to fail against a stopped server")
	}
	if broker.Connected() {
		t.Fatalf("expected broker to report disconnected after failed publish")
	}
}
