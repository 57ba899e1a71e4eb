package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the concrete type of a domain event. Kinds double as
// broker channel suffixes and Kafka topic suffixes.
type EventKind string

const (
	EventForecastCreated EventKind = "forecast.created"
	EventForecastUpdated EventKind = "forecast.updated"
	EventForecastDeleted EventKind = "forecast.deleted"
	EventUserRegistered  EventKind = "user.registered"
	EventUserLoggedIn    EventKind = "user.logged_in"
	EventUserLoggedOut   EventKind = "user.logged_out"
	EventSessionCreated  EventKind = "session.created"
	EventRoleChanged     EventKind = "user.role.changed"
	EventClaimChanged    EventKind = "user.claim.changed"
	EventAPIKeyCreated   EventKind = "apikey.created"
	EventAPIKeyRevoked   EventKind = "apikey.revoked"
)

// Event is an immutable domain event. Payload holds the kind-specific body;
// OriginConnection carries the connection that triggered the change so the
// push layer can suppress the echo back to it.
type Event struct {
	ID               string
	Kind             EventKind
	Timestamp        time.Time
	Actor            string
	OriginConnection string
	Payload          any

	// Remote marks events re-injected by the relay listener. Remote events
	// never go back out to the broker or the analytics export.
	Remote bool
}

// NewEvent assembles an event with a fresh identifier and UTC timestamp.
func NewEvent(kind EventKind, actor, originConnection string, payload any) Event {
	return Event{
		ID:               uuid.NewString(),
		Kind:             kind,
		Timestamp:        time.Now().UTC(),
		Actor:            actor,
		OriginConnection: originConnection,
		Payload:          payload,
	}
}

// RelayKinds lists every kind that crosses process boundaries via the broker.
func RelayKinds() []EventKind {
	return []EventKind{
		EventForecastCreated,
		EventForecastUpdated,
		EventForecastDeleted,
		EventUserRegistered,
		EventUserLoggedIn,
		EventUserLoggedOut,
		EventSessionCreated,
		EventRoleChanged,
		EventClaimChanged,
		EventAPIKeyCreated,
		EventAPIKeyRevoked,
	}
}

// PushKinds lists the kinds delivered to connected clients. Identity events
// stay off the push channel; they exist for the relay and analytics export.
func PushKinds() []EventKind {
	return []EventKind{
		EventForecastCreated,
		EventForecastUpdated,
		EventForecastDeleted,
		EventUserRegistered,
	}
}

// ForecastRef is the minimal payload for deletion events.
type ForecastRef struct {
	ID string `json:"id"`
}

// UserRef identifies the subject of identity events.
type UserRef struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// SessionPayload describes a freshly created session.
type SessionPayload struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RoleChangePayload captures a role grant or revocation.
type RoleChangePayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Action string `json:"action"`
}

// ClaimChangePayload captures a claim value change.
type ClaimChangePayload struct {
	UserID string `json:"user_id"`
	Claim  string `json:"claim"`
	Value  string `json:"value,omitempty"`
	Action string `json:"action"`
}

// APIKeyPayload identifies an API key lifecycle change.
type APIKeyPayload struct {
	KeyID  string `json:"key_id"`
	UserID string `json:"user_id"`
}
