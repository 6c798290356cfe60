// Package history persists finished sessions to sqlite so the sessions tab
// can show what ran in earlier launches.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"ffkit-console/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Entry is one persisted session.
type Entry struct {
	RunID string
	session.Snapshot
}

// Store records sessions under a run id that is fresh for every Open.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if needed) the database at path, applies migrations
// and registers a new run.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir history dir: %w", err)
	}
	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, runID: uuid.NewString()}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		s.runID, now(),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	return s, nil
}

// runMigrations applies the embedded migrations over its own connection; the
// migrate sqlite driver closes the handle it is given.
func runMigrations(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, fmt.Sprintf("sqlite3://%s?_foreign_keys=on", path))
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// RunID identifies this launch.
func (s *Store) RunID() string { return s.runID }

// Record stores a session snapshot; recording the same session again
// replaces the earlier row.
func (s *Store) Record(ctx context.Context, snap session.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(run_id, session_id, kind, command, state, return_code, fail_stack_trace,
			 created_at, started_at, ended_at, log_lines)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, snap.ID, string(snap.Kind), snap.Command, int(snap.State), int(snap.ReturnCode),
		snap.FailStackTrace, snap.CreateTime.UTC(), nullTime(snap.StartTime), nullTime(snap.EndTime), snap.LogLines,
	)
	if err != nil {
		return fmt.Errorf("record session %d: %w", snap.ID, err)
	}
	return nil
}

const selectSessions = `
	SELECT run_id, session_id, kind, command, state, return_code, fail_stack_trace,
	       created_at, started_at, ended_at, log_lines
	FROM sessions`

// Recent returns up to limit sessions across all runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, selectSessions+`
		ORDER BY created_at DESC, session_id DESC
		LIMIT ?`, limit)
}

// RecentPrevious is Recent without the sessions of this launch.
func (s *Store) RecentPrevious(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, selectSessions+`
		WHERE run_id <> ?
		ORDER BY created_at DESC, session_id DESC
		LIMIT ?`, s.runID, limit)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e              Entry
			kind           string
			state, rc      int
			started, ended sql.NullTime
		)
		if err := rows.Scan(&e.RunID, &e.ID, &kind, &e.Command, &state, &rc, &e.FailStackTrace,
			&e.CreateTime, &started, &ended, &e.LogLines); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.Kind = session.Kind(kind)
		e.State = session.State(state)
		e.ReturnCode = session.ReturnCode(rc)
		if started.Valid {
			e.StartTime = started.Time
		}
		if ended.Valid {
			e.EndTime = ended.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() time.Time {
	return time.Now().UTC()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
