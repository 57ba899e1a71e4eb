package port

import (
	"context"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
)

// ConnectionRegistry maps logical user identity to live connection handles
// across the whole fleet. Implementations must use additive/subtractive set
// operations, never read-modify-write of the whole collection. Entries are
// best-effort: consumers tolerate stale connection IDs.
type ConnectionRegistry interface {
	AddConnection(ctx context.Context, record domain.ConnectionRecord) error
	RemoveConnection(ctx context.Context, userID, connectionID string) error
	Connections(ctx context.Context, userID string) ([]string, error)
	Records(ctx context.Context, userID string) ([]domain.ConnectionRecord, error)
}
