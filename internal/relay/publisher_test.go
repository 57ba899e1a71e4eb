package relay

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

type fakeBroker struct {
	connected  bool
	publishErr error
	published  []port.BrokerMessage

	messages chan port.BrokerMessage
	subErr   error
}

func (f *fakeBroker) Connected() bool { return f.connected }

func (f *fakeBroker) Publish(ctx context.Context, channel string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, port.BrokerMessage{Channel: channel, Data: data})
	return nil
}

func (f *fakeBroker) Subscribe(ctx context.Context, channels ...string) (<-chan port.BrokerMessage, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.messages, nil
}

func (f *fakeBroker) Close() error { return nil }

func TestPublisherForwardsLocalEvents(t *testing.T) {
	broker := &fakeBroker{connected: true}
	publisher := NewPublisher(broker, "web-1", "platform", zaptest.NewLogger(t), nil)

	event := domain.NewEvent(domain.EventForecastCreated, "user-1", "conn-A", domain.Forecast{ID: "f-1"})
	if err := publisher.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(broker.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(broker.published))
	}
	if broker.published[0].Channel != "platform.forecast.created" {
		t.Fatalf("unexpected channel %s", broker.published[0].Channel)
	}

	envelope, err := Decode(broker.published[0].Data)
	if err != nil {
		t.Fatalf("published envelope does not decode: %v", err)
	}
	if envelope.Origin != "web-1" {
		t.Fatalf("expected origin tag web-1, got %s", envelope.Origin)
	}
	if envelope.Payload.OriginConnection != "conn-A" {
		t.Fatalf("expected origin connection to travel in envelope, got %q", envelope.Payload.OriginConnection)
	}
}

func TestPublisherSkipsRemoteEvents(t *testing.T) {
	broker := &fakeBroker{connected: true}
	publisher := NewPublisher(broker, "web-1", "platform", zaptest.NewLogger(t), nil)

	event := domain.NewEvent(domain.EventForecastUpdated, "", "", domain.Forecast{ID: "f-2"})
	event.Remote = true

	if err := publisher.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(broker.published) != 0 {
		t.Fatalf("remote event must never be re-published, got %d messages", len(broker.published))
	}
}

func TestPublisherDropsWhenBrokerDown(t *testing.T) {
	broker := &fakeBroker{connected: false}
	publisher := NewPublisher(broker, "web-1", "platform", zaptest.NewLogger(t), nil)

	event := domain.NewEvent(domain.EventForecastDeleted, "", "", domain.ForecastRef{ID: "f-3"})
	if err := publisher.Handle(context.Background(), event); err != nil {
		t.Fatalf("expected drop without error, got %v", err)
	}
	if len(broker.published) != 0 {
		t.Fatalf("expected no publish while broker is down, got %d", len(broker.published))
	}
}

func TestPublisherSwallowsPublishFailure(t *testing.T) {
	broker := &fakeBroker{connected: true, publishErr: errors.New("connection reset")}
	publisher := NewPublisher(broker, "web-1", "platform", zaptest.NewLogger(t), nil)

	event := domain.NewEvent(domain.EventUserLoggedIn, "user-1", "", domain.UserRef{UserID: "user-1"})
	if err := publisher.Handle(context.Background(), event); err != nil {
		t.Fatalf("publish failures must be swallowed, got %v", err)
	}
}
