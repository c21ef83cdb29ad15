// Package eventbus is the boundary between the booking engine and whatever
// transports its domain events. Actions publish exactly one Event per
// committed transition.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one immutable domain event payload.
type Event interface {
	EventName() string
	Topic() string
	// PartitionKey keeps every event of one aggregate on one partition.
	PartitionKey() []byte
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // aggregate id
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(ev Event, producer string, now time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     ev.EventName(),
		EventVersion:  1,
		OccurredAt:    now.UTC(),
		Producer:      producer,
		CorrelationID: string(ev.PartitionKey()),
		Payload:       payload,
	}, nil
}
