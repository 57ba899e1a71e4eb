package relay

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

const defaultStartupGrace = 10 * time.Second

// Listener is the subscribe-side half of the relay: one per process, started
// at boot, alive for the process lifetime. It re-injects envelopes from other
// instances into the local dispatcher and discards its own echoes.
type Listener struct {
	broker   port.Broker
	bus      port.EventBus
	origin   string
	prefix   string
	grace    time.Duration
	logger   *zap.Logger
	metrics  *Metrics
	degraded atomic.Bool
}

// NewListener builds the subscribe-side relay for this instance.
func NewListener(broker port.Broker, bus port.EventBus, origin, channelPrefix string, startupGrace time.Duration, logger *zap.Logger, metrics *Metrics) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if startupGrace <= 0 {
		startupGrace = defaultStartupGrace
	}
	return &Listener{
		broker:  broker,
		bus:     bus,
		origin:  origin,
		prefix:  channelPrefix,
		grace:   startupGrace,
		logger:  logger,
		metrics: metrics,
	}
}

// Degraded reports whether the listener gave up subscribing and the process
// is serving locally-originated events only.
func (l *Listener) Degraded() bool {
	return l.degraded.Load()
}

// Run subscribes to every relay channel and pumps messages until ctx is
// cancelled. The subscription lives on ctx for the whole process lifetime;
// the broker bounds only the initial confirmation handshake. If the broker
// is unreachable at startup the process continues in degraded
// single-instance mode rather than crashing.
func (l *Listener) Run(ctx context.Context) error {
	channels := ChannelNames(l.prefix, domain.RelayKinds())

	messages, err := l.broker.Subscribe(ctx, channels...)
	if err != nil {
		l.degraded.Store(true)
		l.logger.Error("broker unreachable, continuing without cross-instance events; only locally-originated events will be visible",
			zap.String("instance", l.origin),
			zap.Duration("grace", l.grace),
			zap.Error(err),
		)
		return nil
	}

	l.logger.Info("relay listener subscribed",
		zap.String("instance", l.origin),
		zap.Int("channels", len(channels)),
	)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("relay listener stopping", zap.String("instance", l.origin))
			return nil
		case msg, ok := <-messages:
			if !ok {
				l.degraded.Store(true)
				l.logger.Warn("relay subscription closed, continuing with local events only",
					zap.String("instance", l.origin),
				)
				return nil
			}
			l.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes one envelope. Failures are contained per message so
// a bad payload never tears down the subscription loop.
func (l *Listener) handleMessage(ctx context.Context, msg port.BrokerMessage) {
	if l.metrics != nil {
		l.metrics.Received.Inc()
	}

	envelope, err := Decode(msg.Data)
	if err != nil {
		l.logger.Warn("dropping malformed relay envelope",
			zap.String("channel", msg.Channel),
			zap.Error(err),
		)
		if l.metrics != nil {
			l.metrics.Malformed.Inc()
		}
		return
	}

	if envelope.Origin == l.origin {
		if l.metrics != nil {
			l.metrics.Suppressed.Inc()
		}
		return
	}

	event := envelope.Event()
	l.logger.Debug("re-injecting relayed event",
		zap.String("kind", string(event.Kind)),
		zap.String("event_id", event.ID),
		zap.String("from", envelope.Origin),
	)

	l.bus.Publish(ctx, event)
}
