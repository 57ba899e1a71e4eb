package port

import (
	"context"
	"time"
)

// CounterStore is the shared key-value store backing rate windows, failed
// attempt counters, and block entries. Increment must be a single atomic
// round trip that applies the TTL only when the key is created; separate
// read-then-write calls lose updates under concurrent requests.
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) error
}
