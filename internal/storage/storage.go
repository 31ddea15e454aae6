package storage

import (
	"context"
	"fmt"

	"github.com/taskline/taskline/internal/domain/event"
	apperrors "github.com/taskline/taskline/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such aggregate"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ConflictError reports an optimistic-lock mismatch on append. It carries
// both the expected and actual version so the caller can choose to retry
// with fresh state or surface the conflict.
type ConflictError struct {
	AggregateType string
	AggregateID   string
	Expected      uint64
	Actual        uint64
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s/%s: expected %d, actual %d",
		e.AggregateType, e.AggregateID, e.Expected, e.Actual)
}

// EventStore persists events with two monotonic sequence dimensions and
// serves queries for replay and state rebuild.
type EventStore interface {
	// AppendEvents atomically appends a batch for one aggregate. All events
	// succeed together or none do; aggregate and global sequences are
	// assigned consecutively within one transaction. A stored-version
	// mismatch against expectedVersion returns *ConflictError.
	AppendEvents(ctx context.Context, aggregateType, aggregateID string, expectedVersion uint64, events []event.Event) ([]event.Event, error)

	// LoadAggregate returns an aggregate's events ordered by aggregate
	// sequence, upcast to current schema versions.
	LoadAggregate(ctx context.Context, aggregateType, aggregateID string) ([]event.Event, error)

	// AggregateVersion returns the current stored version for an aggregate,
	// zero when no events exist.
	AggregateVersion(ctx context.Context, aggregateType, aggregateID string) (uint64, error)

	// ListEventsSince returns events with global sequence greater than
	// afterSeq, ascending, upcast to current schema versions. limit caps
	// the page size; zero means the store default.
	ListEventsSince(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)

	// EarliestSeq returns the lowest stored global sequence, zero when empty.
	EarliestSeq(ctx context.Context) (uint64, error)

	// LatestSeq returns the highest stored global sequence, zero when empty.
	LatestSeq(ctx context.Context) (uint64, error)
}

// Purger removes every stored event. Reserved for administrative use in
// test environments; production data is immutable.
type Purger interface {
	PurgeAll(ctx context.Context) error
}
