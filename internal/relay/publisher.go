package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

// Publisher is the publish-side relay handler. It serializes locally
// originated events onto the broker, tagged with this instance's identity.
// Publish failures are non-fatal: the local action that produced the event
// already succeeded and remains the source of truth, so the event is dropped
// with a warning instead of queued or retried.
type Publisher struct {
	broker  port.Broker
	origin  string
	prefix  string
	logger  *zap.Logger
	metrics *Metrics
}

// NewPublisher builds the publish-side handler for the given instance
// identity and channel prefix.
func NewPublisher(broker port.Broker, origin, channelPrefix string, logger *zap.Logger, metrics *Metrics) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		broker:  broker,
		origin:  origin,
		prefix:  channelPrefix,
		logger:  logger,
		metrics: metrics,
	}
}

// Name identifies the handler in dispatcher logs.
func (p *Publisher) Name() string { return "relay-publisher" }

// Kinds subscribes the publisher to every relay-eligible event kind.
func (p *Publisher) Kinds() []domain.EventKind { return domain.RelayKinds() }

// Handle forwards a local event to the broker. Remote events are ignored:
// they already crossed the process boundary once.
func (p *Publisher) Handle(ctx context.Context, event domain.Event) error {
	if event.Remote {
		return nil
	}

	channel := ChannelName(p.prefix, event.Kind)

	if !p.broker.Connected() {
		p.logger.Warn("broker link down, dropping relay event",
			zap.String("kind", string(event.Kind)),
			zap.String("event_id", event.ID),
		)
		p.countDropped()
		return nil
	}

	data, err := Encode(p.origin, event)
	if err != nil {
		p.logger.Warn("failed to encode relay envelope",
			zap.String("kind", string(event.Kind)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		p.countDropped()
		return nil
	}

	if err := p.broker.Publish(ctx, channel, data); err != nil {
		p.logger.Warn("broker publish failed, dropping relay event",
			zap.String("channel", channel),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		p.countDropped()
		return nil
	}

	if p.metrics != nil {
		p.metrics.Published.Inc()
	}
	return nil
}

func (p *Publisher) countDropped() {
	if p.metrics != nil {
		p.metrics.Dropped.Inc()
	}
}

var _ port.EventHandler = (*Publisher)(nil)
