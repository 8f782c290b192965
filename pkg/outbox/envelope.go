package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/auth"
)

// EnvelopeVersion is written by Emit when the event does not pin one.
const EnvelopeVersion = 1

// ActorRef identifies the user whose request produced the event. Jobs emit
// events without one.
type ActorRef struct {
	UserID     uuid.UUID `json:"userId"`
	BusinessID uuid.UUID `json:"businessId"`
	Role       string    `json:"role,omitempty"`
}

// ActorFor snapshots the authenticated actor for an event.
func ActorFor(a auth.Actor) *ActorRef {
	return &ActorRef{UserID: a.UserID, BusinessID: a.BusinessID, Role: a.Role.String()}
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload and rejects envelopes that no
// consumer could use.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if _, err := uuid.Parse(env.EventID); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("envelope event id: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, errors.New("envelope data missing")
	}
	return env, nil
}
