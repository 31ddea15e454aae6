package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/storage"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const defaultListLimit = 500

const eventColumns = "global_seq, event_id, aggregate_type, aggregate_id, aggregate_seq, event_type, schema_version, timestamp, actor_type, request_id, correlation_id, causation_id, payload_json, metadata_json"

// AppendEvents atomically appends a batch of events for one aggregate.
//
// The stored version for the aggregate is compared against expectedVersion
// inside the write transaction; on mismatch the batch is discarded and a
// *storage.ConflictError carrying both versions is returned. Sequence
// numbers are allocated contiguously in both dimensions.
func (s *Store) AppendEvents(ctx context.Context, aggregateType, aggregateID string, expectedVersion uint64, events []event.Event) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if s.eventRegistry == nil {
		return nil, fmt.Errorf("event registry is required")
	}
	aggregateType = strings.TrimSpace(aggregateType)
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateType == "" {
		return nil, fmt.Errorf("aggregate type is required")
	}
	if aggregateID == "" {
		return nil, fmt.Errorf("aggregate id is required")
	}

	// Validate all events before opening a transaction.
	validated := make([]event.Event, len(events))
	for i, evt := range events {
		if evt.AggregateType != aggregateType || evt.AggregateID != aggregateID {
			return nil, fmt.Errorf("event %d is addressed to %s/%s, batch targets %s/%s",
				i, evt.AggregateType, evt.AggregateID, aggregateType, aggregateID)
		}
		v, err := s.eventRegistry.ValidateForAppend(evt)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if v.Timestamp.IsZero() {
			v.Timestamp = time.Now().UTC()
		}
		v.Timestamp = v.Timestamp.UTC().Truncate(time.Millisecond)
		validated[i] = v
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	actual, err := aggregateVersionTx(ctx, tx, aggregateType, aggregateID)
	if err != nil {
		return nil, err
	}
	if actual != expectedVersion {
		return nil, &storage.ConflictError{
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			Expected:      expectedVersion,
			Actual:        actual,
		}
	}

	var baseGlobal uint64
	row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(global_seq), 0) FROM events")
	if err := row.Scan(&baseGlobal); err != nil {
		return nil, fmt.Errorf("get latest global seq: %w", err)
	}

	stored := make([]event.Event, len(validated))
	for i, evt := range validated {
		evt.AggregateSeq = expectedVersion + uint64(i) + 1
		evt.GlobalSeq = baseGlobal + uint64(i) + 1

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			int64(evt.GlobalSeq),
			evt.EventID,
			evt.AggregateType,
			evt.AggregateID,
			int64(evt.AggregateSeq),
			string(evt.Type),
			evt.SchemaVersion,
			toMillis(evt.Timestamp),
			string(evt.ActorType),
			evt.RequestID,
			evt.CorrelationID,
			evt.CausationID,
			evt.PayloadJSON,
			evt.MetadataJSON,
		); err != nil {
			if isConstraintError(err) || isSQLiteBusyError(err) {
				// A concurrent appender may have won the race for this
				// aggregate sequence. Report the committed version so the
				// caller can reload and decide.
				return nil, s.conflictAfterRace(ctx, aggregateType, aggregateID, expectedVersion, fmt.Errorf("append event %d: %w", i, err))
			}
			return nil, fmt.Errorf("append event %d: %w", i, err)
		}
		stored[i] = evt
	}

	if err := tx.Commit(); err != nil {
		if isSQLiteBusyError(err) {
			return nil, s.conflictAfterRace(ctx, aggregateType, aggregateID, expectedVersion, fmt.Errorf("commit: %w", err))
		}
		return nil, fmt.Errorf("commit: %w", err)
	}

	return stored, nil
}

func (s *Store) conflictAfterRace(ctx context.Context, aggregateType, aggregateID string, expectedVersion uint64, cause error) error {
	actual, err := s.AggregateVersion(ctx, aggregateType, aggregateID)
	if err != nil {
		return fmt.Errorf("resolve conflicting version: %w", err)
	}
	if actual == expectedVersion {
		// The aggregate has not moved; a lock timeout elsewhere is not a
		// version conflict.
		return cause
	}
	return &storage.ConflictError{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Expected:      expectedVersion,
		Actual:        actual,
	}
}

// LoadAggregate returns an aggregate's events ordered by aggregate sequence,
// upcast to current schema versions.
func (s *Store) LoadAggregate(ctx context.Context, aggregateType, aggregateID string) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	aggregateType = strings.TrimSpace(aggregateType)
	aggregateID = strings.TrimSpace(aggregateID)
	if aggregateType == "" {
		return nil, fmt.Errorf("aggregate type is required")
	}
	if aggregateID == "" {
		return nil, fmt.Errorf("aggregate id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE aggregate_type = ? AND aggregate_id = ? ORDER BY aggregate_seq ASC",
		aggregateType, aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("load aggregate: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return s.upcastAll(events)
}

// AggregateVersion returns the current stored version for an aggregate.
func (s *Store) AggregateVersion(ctx context.Context, aggregateType, aggregateID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var version uint64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(aggregate_seq), 0) FROM events WHERE aggregate_type = ? AND aggregate_id = ?",
		strings.TrimSpace(aggregateType), strings.TrimSpace(aggregateID),
	)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("get aggregate version: %w", err)
	}
	return version, nil
}

// ListEventsSince returns events with global sequence greater than afterSeq,
// ascending, upcast to current schema versions.
func (s *Store) ListEventsSince(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE global_seq > ? ORDER BY global_seq ASC LIMIT ?",
		int64(afterSeq), int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return s.upcastAll(events)
}

// EarliestSeq returns the lowest stored global sequence, zero when empty.
func (s *Store) EarliestSeq(ctx context.Context) (uint64, error) {
	return s.boundarySeq(ctx, "SELECT COALESCE(MIN(global_seq), 0) FROM events")
}

// LatestSeq returns the highest stored global sequence, zero when empty.
func (s *Store) LatestSeq(ctx context.Context) (uint64, error) {
	return s.boundarySeq(ctx, "SELECT COALESCE(MAX(global_seq), 0) FROM events")
}

func (s *Store) boundarySeq(ctx context.Context, query string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var seq uint64
	row := s.sqlDB.QueryRowContext(ctx, query)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("get boundary seq: %w", err)
	}
	return seq, nil
}

// GetEventByID retrieves an event by its unique id.
func (s *Store) GetEventByID(ctx context.Context, eventID string) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(eventID) == "" {
		return event.Event{}, fmt.Errorf("event id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE event_id = ?",
		strings.TrimSpace(eventID),
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event by id: %w", err)
	}
	upcast, err := s.upcastAll([]event.Event{evt})
	if err != nil {
		return event.Event{}, err
	}
	return upcast[0], nil
}

// PurgeAll removes every stored event. Reserved for administrative use in
// test environments.
func (s *Store) PurgeAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	return nil
}

func (s *Store) upcastAll(events []event.Event) ([]event.Event, error) {
	if s.upcasters == nil {
		return events, nil
	}
	return s.upcasters.ApplyAll(events, s.eventRegistry)
}

func aggregateVersionTx(ctx context.Context, tx *sql.Tx, aggregateType, aggregateID string) (uint64, error) {
	var version uint64
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(aggregate_seq), 0) FROM events WHERE aggregate_type = ? AND aggregate_id = ?",
		aggregateType, aggregateID,
	)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("get aggregate version: %w", err)
	}
	return version, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		globalSeq     int64
		aggregateSeq  int64
		schemaVersion int
		timestamp     int64
		eventType     string
		actorType     string
		metadata      []byte
		evt           event.Event
	)
	if err := row.Scan(
		&globalSeq,
		&evt.EventID,
		&evt.AggregateType,
		&evt.AggregateID,
		&aggregateSeq,
		&eventType,
		&schemaVersion,
		&timestamp,
		&actorType,
		&evt.RequestID,
		&evt.CorrelationID,
		&evt.CausationID,
		&evt.PayloadJSON,
		&metadata,
	); err != nil {
		return event.Event{}, err
	}
	evt.GlobalSeq = uint64(globalSeq)
	evt.AggregateSeq = uint64(aggregateSeq)
	evt.SchemaVersion = schemaVersion
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	evt.ActorType = event.ActorType(actorType)
	evt.MetadataJSON = metadata
	return evt, nil
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
