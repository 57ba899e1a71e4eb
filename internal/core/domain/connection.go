package domain

import "time"

// ConnectionRecord describes a live client connection. Records live in the
// shared registry so any process instance can resolve where a user is
// connected without owning the socket itself.
type ConnectionRecord struct {
	UserID       string    `json:"user_id"`
	ConnectionID string    `json:"connection_id"`
	InstanceID   string    `json:"instance_id"`
	ConnectedAt  time.Time `json:"connected_at"`
}
