package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

// incrementWithTTL bumps a counter and, only when this call created the key,
// attaches the window TTL. Running as a script keeps increment and expiry a
// single atomic round trip, so concurrent callers cannot leave an immortal
// counter behind.
var incrementWithTTL = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// CounterRepository backs the shared counter store with Redis. Every key it
// manages carries a TTL, so expired windows and blocks clean themselves up.
type CounterRepository struct {
	client *redis.Client
}

// NewCounterRepository constructs a repository using the provided Redis client.
func NewCounterRepository(client *redis.Client) *CounterRepository {
	return &CounterRepository{client: client}
}

// Increment atomically bumps the counter at key and returns the new value.
// The TTL applies only when the increment created the key.
func (r *CounterRepository) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if key == "" {
		return 0, errors.New("key is required")
	}
	if ttl <= 0 {
		return 0, errors.New("ttl must be positive")
	}

	count, err := incrementWithTTL.Run(ctx, r.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis increment: %w", err)
	}
	return count, nil
}

// Put stores value at key with the given TTL, replacing any prior value.
func (r *CounterRepository) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return errors.New("key is required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the value at key and whether it exists.
func (r *CounterRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("key is required")
	}

	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

// TTL returns the remaining lifetime of key, or zero when the key is missing
// or carries no expiry.
func (r *CounterRepository) TTL(ctx context.Context, key string) (time.Duration, error) {
	if key == "" {
		return 0, errors.New("key is required")
	}

	remaining, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pttl: %w", err)
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *CounterRepository) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key is required")
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ port.CounterStore = (*CounterRepository)(nil)
