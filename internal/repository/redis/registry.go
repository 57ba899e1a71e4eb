package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
)

// ConnectionRegistryRepository tracks live push connections per user in Redis
// sets. Set commands are atomic on the server, so concurrent registrations
// from different process instances never overwrite each other; there is no
// read-modify-write anywhere on this path.
type ConnectionRegistryRepository struct {
	client *redis.Client
	prefix string
}

// NewConnectionRegistryRepository constructs a repository using the provided
// Redis client. An empty prefix defaults to "rt:conn".
func NewConnectionRegistryRepository(client *redis.Client, keyPrefix string) *ConnectionRegistryRepository {
	if keyPrefix == "" {
		keyPrefix = "rt:conn"
	}
	return &ConnectionRegistryRepository{client: client, prefix: keyPrefix}
}

type connectionDetails struct {
	UserID      string    `json:"user_id"`
	InstanceID  string    `json:"instance_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// AddConnection records one live connection for the user. The connection ID
// joins the user's set and a companion entry keeps the record details.
func (r *ConnectionRegistryRepository) AddConnection(ctx context.Context, record domain.ConnectionRecord) error {
	if record.UserID == "" || record.ConnectionID == "" {
		return errors.New("user id and connection id are required")
	}

	details, err := json.Marshal(connectionDetails{
		UserID:      record.UserID,
		InstanceID:  record.InstanceID,
		ConnectedAt: record.ConnectedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal connection details: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.userKey(record.UserID), record.ConnectionID)
	pipe.Set(ctx, r.detailsKey(record.ConnectionID), details, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis add connection: %w", err)
	}
	return nil
}

// RemoveConnection drops one connection for the user. Removing a connection
// that is already gone is not an error.
func (r *ConnectionRegistryRepository) RemoveConnection(ctx context.Context, userID, connectionID string) error {
	if userID == "" || connectionID == "" {
		return errors.New("user id and connection id are required")
	}

	pipe := r.client.TxPipeline()
	pipe.SRem(ctx, r.userKey(userID), connectionID)
	pipe.Del(ctx, r.detailsKey(connectionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis remove connection: %w", err)
	}
	return nil
}

// Connections returns the IDs of every live connection the user holds across
// all process instances.
func (r *ConnectionRegistryRepository) Connections(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return ids, nil
}

// Records returns the full connection records for the user. Connections whose
// companion entry disappeared are still reported with their ID.
func (r *ConnectionRegistryRepository) Records(ctx context.Context, userID string) ([]domain.ConnectionRecord, error) {
	ids, err := r.Connections(ctx, userID)
	if err != nil {
		return nil, err
	}

	records := make([]domain.ConnectionRecord, 0, len(ids))
	for _, id := range ids {
		record := domain.ConnectionRecord{UserID: userID, ConnectionID: id}

		value, err := r.client.Get(ctx, r.detailsKey(id)).Result()
		if err == nil {
			var details connectionDetails
			if err := json.Unmarshal([]byte(value), &details); err == nil {
				record.InstanceID = details.InstanceID
				record.ConnectedAt = details.ConnectedAt
			}
		} else if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis get connection details: %w", err)
		}

		records = append(records, record)
	}
	return records, nil
}

func (r *ConnectionRegistryRepository) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, userID)
}

func (r *ConnectionRegistryRepository) detailsKey(connectionID string) string {
	return fmt.Sprintf("%s:details:%s", r.prefix, connectionID)
}

var _ port.ConnectionRegistry = (*ConnectionRegistryRepository)(nil)
