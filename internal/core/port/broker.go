package port

import "context"

// BrokerMessage is a raw message received from a broker channel.
type BrokerMessage struct {
	Channel string
	Data    []byte
}

// Broker is the shared publish/subscribe transport bridging process
// instances. Delivery is at-least-once to connected subscribers; consumers
// must be echo-safe.
type Broker interface {
	// Connected reports whether the broker link is believed live. Publishers
	// drop events instead of queueing when the link is down.
	Connected() bool
	Publish(ctx context.Context, channel string, data []byte) error
	// Subscribe opens a receive stream over the named channels. The returned
	// channel closes when ctx is cancelled or the subscription tears down.
	Subscribe(ctx context.Context, channels ...string) (<-chan BrokerMessage, error)
	Close() error
}
