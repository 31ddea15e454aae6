// Package sqlite implements the event journal on a SQLite database.
//
// SQLite serializes writers at the database level, which is sufficient for
// the journal's isolation contract: two appenders racing on the same
// aggregate id cannot both observe the same stored version inside their
// write transactions. Different aggregate ids never contend beyond the
// short write lock.
package sqlite

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/taskline/taskline/internal/domain/event"
	"github.com/taskline/taskline/internal/platform/storage/sqlitemigrate"
	"github.com/taskline/taskline/internal/storage/sqlite/migrations"
	"github.com/taskline/taskline/internal/upcast"

	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides a SQLite-backed event journal.
type Store struct {
	sqlDB         *sql.DB
	eventRegistry *event.Registry
	upcasters     *upcast.Chain
}

// Option configures store behavior.
type Option func(*Store)

// WithUpcasters installs the upcaster chain applied on load and query paths.
func WithUpcasters(chain *upcast.Chain) Option {
	return func(s *Store) {
		s.upcasters = chain
	}
}

// Open opens a SQLite event journal at the provided path.
//
// This path wires the event registry so every appended event is validated in
// one place, and applies embedded migrations before the store is handed to
// higher layers.
func Open(path string, registry *event.Registry, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("event registry is required")
	}

	// modernc.org/sqlite takes pragmas via repeated _pragma parameters;
	// _txlock=immediate makes write transactions take the write lock up
	// front so racing appenders queue on busy_timeout instead of failing
	// mid-transaction.
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{
		sqlDB:         sqlDB,
		eventRegistry: registry,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if err := runMigrations(sqlDB, migrations.EventsFS, "events"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying SQLite database.
//
// Close is intentionally nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func runMigrations(sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string) error {
	return sqlitemigrate.ApplyMigrations(sqlDB, migrationFS, migrationRoot)
}
