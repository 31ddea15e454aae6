package command

import (
	"time"

	"github.com/taskline/taskline/internal/domain/event"
)

// NewEvent builds an event.Event by copying the shared envelope fields from a
// command. Callers supply the event-specific type, payload, and timestamp.
// This eliminates per-decider boilerplate and ensures that new envelope fields
// are automatically forwarded.
//
// EventID and the sequence fields stay empty: identifiers are assigned by the
// runtime and sequences by storage, keeping deciders free of randomness.
func NewEvent(cmd Command, eventType event.Type, payloadJSON []byte, now time.Time) event.Event {
	return event.Event{
		AggregateType: cmd.AggregateType,
		AggregateID:   cmd.AggregateID,
		Type:          eventType,
		Timestamp:     now,
		ActorType:     event.ActorType(cmd.ActorType),
		RequestID:     cmd.RequestID,
		CorrelationID: cmd.CorrelationID,
		CausationID:   cmd.CausationID,
		PayloadJSON:   payloadJSON,
	}
}
