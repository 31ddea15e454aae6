package event

import "time"

// Type identifies the event type string.
type Type string

// ActorType identifies the actor whose command produced the event.
type ActorType string

const (
	// ActorTypeSystem indicates a system-originated event.
	ActorTypeSystem ActorType = "system"
	// ActorTypeUser indicates a user-originated event.
	ActorTypeUser ActorType = "user"
)

// Event is an immutable fact recorded in the journal.
type Event struct {
	// EventID uniquely identifies the event across the store.
	// Assigned before append by the command pipeline.
	EventID string
	// AggregateType is the aggregate family this event belongs to.
	AggregateType string
	// AggregateID addresses the aggregate instance.
	AggregateID string
	// AggregateSeq is the per-aggregate sequence number (starts at 1).
	// Assigned by storage on append.
	AggregateSeq uint64
	// GlobalSeq is the store-wide sequence number used as replay cursor.
	// Assigned by storage on append.
	GlobalSeq uint64
	// Type identifies the kind of event.
	Type Type
	// SchemaVersion records the payload schema generation at write time.
	SchemaVersion int
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// ActorType identifies who triggered the event.
	ActorType ActorType
	// RequestID echoes the originating request for tracing.
	RequestID string
	// CorrelationID links events produced by one logical operation.
	CorrelationID string
	// CausationID names the command or event that caused this event.
	CausationID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
	// MetadataJSON holds transport or tooling metadata as JSON.
	MetadataJSON []byte
}

// Topic returns the hierarchical distribution key for the event.
func (e Event) Topic() string {
	return "events/" + e.AggregateType + "/" + e.AggregateID
}
