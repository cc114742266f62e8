// Package history implements an append-only lifecycle ledger backed by
// SQLite (modernc.org/sqlite, CGO-free), following the teacher's
// internal/store/sqlite connection-and-schema conventions.
package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink implements engine.HistorySink by appending one row per
// lifecycle event. Unlike the teacher's process_state table, which keeps
// only the latest row per name, this ledger never overwrites a row: the
// spec calls for a history of starts and stops, not a snapshot of current
// state (current state already lives in the engine's in-memory handles).
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (and creates, if necessary) the SQLite database at
// path. Use ":memory:" for a throwaway in-process ledger, as in tests.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("history: empty sqlite path")
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if p == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	_, _ = db.Exec("PRAGMA busy_timeout=3000;")
	return &SQLiteSink{db: db}, nil
}

// EnsureSchema creates the lifecycle_event table if it does not already
// exist. Callers must call this once before the first Record* call.
func (s *SQLiteSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS lifecycle_event(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		handle_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		pid INTEGER,
		cause TEXT,
		occurred_at TIMESTAMP NOT NULL
	);`)
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteSink) Close() error { return s.db.Close() }

// RecordStart implements engine.HistorySink.
func (s *SQLiteSink) RecordStart(ctx context.Context, name, id string, pid int, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lifecycle_event(name, handle_id, kind, pid, cause, occurred_at)
		VALUES(?, ?, 'start', ?, NULL, ?);`,
		name, id, pid, startedAt.UTC())
	return err
}

// RecordStop implements engine.HistorySink.
func (s *SQLiteSink) RecordStop(ctx context.Context, name, id string, stoppedAt time.Time, cause string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lifecycle_event(name, handle_id, kind, pid, cause, occurred_at)
		VALUES(?, ?, 'stop', NULL, ?, ?);`,
		name, id, cause, stoppedAt.UTC())
	return err
}

// Event is one row of the ledger, as returned by RecentFor.
type Event struct {
	Name       string
	HandleID   string
	Kind       string
	PID        sql.NullInt64
	Cause      sql.NullString
	OccurredAt time.Time
}

// RecentFor returns up to limit of the most recent events for name, newest
// first. It exists for operator inspection (CLI/history query), not for
// anything the engine itself reads back.
func (s *SQLiteSink) RecentFor(ctx context.Context, name string, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, handle_id, kind, pid, cause, occurred_at
		FROM lifecycle_event WHERE name = ?
		ORDER BY occurred_at DESC, id DESC LIMIT ?;`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Name, &e.HandleID, &e.Kind, &e.PID, &e.Cause, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NopSink discards every event. It is the default HistorySink when no
// database path is configured.
type NopSink struct{}

func (NopSink) RecordStart(context.Context, string, string, int, time.Time) error { return nil }
func (NopSink) RecordStop(context.Context, string, string, time.Time, string) error {
	return nil
}
