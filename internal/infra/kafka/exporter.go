package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
	"github.com/arklim/weather-platform-realtime/internal/infra/config"
)

const schemaVersion = "1.0"

// Exporter streams domain events to Kafka for analytics consumers. It
// registers on the dispatcher like any other handler but only exports events
// born on this instance; relayed copies are skipped so a multi-instance
// deployment produces each event exactly once.
type Exporter struct {
	producer *Producer
	appCfg   config.AppSettings
	logger   *zap.Logger
}

// NewExporter constructs a Kafka-backed analytics exporter.
func NewExporter(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Actor     string           `json:"actor,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// Name identifies the exporter on the dispatcher.
func (e *Exporter) Name() string { return "kafka-exporter" }

// Kinds subscribes the exporter to every event kind the platform emits.
func (e *Exporter) Kinds() []domain.EventKind { return domain.RelayKinds() }

// Handle serializes the event into the analytics envelope and enqueues it on
// the async producer.
func (e *Exporter) Handle(ctx context.Context, event domain.Event) error {
	if event.Remote {
		return nil
	}

	metadata := envelopeMetadata{
		"service":     e.appCfg.Name,
		"environment": e.appCfg.Env,
		"instance":    e.appCfg.InstanceID,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   event.ID,
		EventType: string(event.Kind),
		Actor:     event.Actor,
		Timestamp: event.Timestamp.UTC(),
		Version:   schemaVersion,
		Payload:   event.Payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: e.producer.TopicName(string(event.Kind)),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case e.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.EventHandler = (*Exporter)(nil)
