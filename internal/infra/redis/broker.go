package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

const pingTimeout = 5 * time.Second

// Broker carries relay envelopes between process instances over Redis
// publish/subscribe. Delivery is at-most-once and only subscribers connected
// at publish time receive anything; the relay layer is built around exactly
// that contract.
type Broker struct {
	client         *redis.Client
	logger         *zap.Logger
	connected      atomic.Bool
	confirmTimeout time.Duration
	sub            *redis.PubSub
}

// NewBroker wraps the given Redis client as a relay broker. The connected
// flag starts from a ping so a broker that never came up reports down
// immediately.
func NewBroker(client *redis.Client, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broker{client: client, logger: logger, confirmTimeout: pingTimeout}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	b.connected.Store(client.Ping(ctx).Err() == nil)

	return b
}

// WithConfirmTimeout overrides how long Subscribe waits for the server to
// confirm the subscription.
func (b *Broker) WithConfirmTimeout(d time.Duration) *Broker {
	if d > 0 {
		b.confirmTimeout = d
	}
	return b
}

// Connected reports the last observed broker health.
func (b *Broker) Connected() bool {
	return b.connected.Load()
}

// Publish sends one message to every current subscriber of the channel.
func (b *Broker) Publish(ctx context.Context, channel string, data []byte) error {
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		b.connected.Store(false)
		return fmt.Errorf("redis publish: %w", err)
	}
	b.connected.Store(true)
	return nil
}

// Subscribe attaches to the given channels and returns a stream of incoming
// messages. The stream stays open until ctx is cancelled or the subscription
// drops; only the initial server confirmation is bounded by the confirm
// timeout, so a nil error means messages published afterwards will be seen.
func (b *Broker) Subscribe(ctx context.Context, channels ...string) (<-chan port.BrokerMessage, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel is required")
	}

	sub := b.client.Subscribe(ctx, channels...)
	confirmCtx, cancel := context.WithTimeout(ctx, b.confirmTimeout)
	_, err := sub.Receive(confirmCtx)
	cancel()
	if err != nil {
		_ = sub.Close()
		b.connected.Store(false)
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	b.connected.Store(true)
	b.sub = sub

	out := make(chan port.BrokerMessage)
	go func() {
		defer close(out)
		incoming := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-incoming:
				if !ok {
					b.connected.Store(false)
					return
				}
				select {
				case out <- port.BrokerMessage{Channel: msg.Channel, Data: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close tears down the active subscription, if any.
func (b *Broker) Close() error {
	b.connected.Store(false)
	if b.sub == nil {
		return nil
	}
	if err := b.sub.Close(); err != nil {
		return fmt.Errorf("close subscription: %w", err)
	}
	return nil
}

var _ port.Broker = (*Broker)(nil)
