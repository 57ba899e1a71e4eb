// Package relay bridges the in-process dispatcher across server instances
// through the shared broker.
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
)

const defaultChannelPrefix = "platform"

// Envelope is the wire representation of a relayed event. Origin identifies
// the producing process instance; subscribers drop envelopes carrying their
// own origin, which is the sole loop-prevention mechanism.
type Envelope struct {
	Origin  string       `json:"origin"`
	Payload EventPayload `json:"payload"`
}

// EventPayload is the serialized form of a domain event. The kind-specific
// body stays raw until a consumer needs it; the push layer forwards it as-is.
type EventPayload struct {
	ID               string          `json:"id"`
	Kind             string          `json:"kind"`
	Timestamp        time.Time       `json:"timestamp"`
	Actor            string          `json:"actor,omitempty"`
	OriginConnection string          `json:"origin_connection,omitempty"`
	Body             json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes an event into an envelope tagged with the given origin.
func Encode(origin string, event domain.Event) ([]byte, error) {
	var body json.RawMessage
	if event.Payload != nil {
		encoded, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal event payload: %w", err)
		}
		body = encoded
	}

	envelope := Envelope{
		Origin: origin,
		Payload: EventPayload{
			ID:               event.ID,
			Kind:             string(event.Kind),
			Timestamp:        event.Timestamp.UTC(),
			Actor:            event.Actor,
			OriginConnection: event.OriginConnection,
			Body:             body,
		},
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal relay envelope: %w", err)
	}

	return data, nil
}

// Decode parses an envelope from the wire.
func Decode(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal relay envelope: %w", err)
	}
	if envelope.Origin == "" {
		return Envelope{}, fmt.Errorf("relay envelope missing origin")
	}
	if envelope.Payload.Kind == "" {
		return Envelope{}, fmt.Errorf("relay envelope missing event kind")
	}
	return envelope, nil
}

// Event reconstructs a domain event from the envelope payload. The result is
// marked remote so the publish side never relays it again.
func (e Envelope) Event() domain.Event {
	event := domain.Event{
		ID:               e.Payload.ID,
		Kind:             domain.EventKind(e.Payload.Kind),
		Timestamp:        e.Payload.Timestamp,
		Actor:            e.Payload.Actor,
		OriginConnection: e.Payload.OriginConnection,
		Remote:           true,
	}
	if len(e.Payload.Body) > 0 {
		event.Payload = e.Payload.Body
	}
	return event
}

// ChannelName derives the broker channel for an event kind, e.g.
// "platform.forecast.created".
func ChannelName(prefix string, kind domain.EventKind) string {
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return fmt.Sprintf("%s.%s", prefix, kind)
}

// ChannelNames derives the channels for every relay-eligible kind.
func ChannelNames(prefix string, kinds []domain.EventKind) []string {
	channels := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		channels = append(channels, ChannelName(prefix, kind))
	}
	return channels
}
