package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event. System-driven changes such as
// gateway webhooks carry Role "gateway" and no subject.
type ActorRef struct {
	Subject string `json:"subject,omitempty"`
	Role    string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
