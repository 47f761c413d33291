// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/mathrace/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for settings and run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			user_id TEXT NOT NULL,
			time_ms INTEGER NOT NULL,
			wrong_count INTEGER NOT NULL,
			is_new_best INTEGER NOT NULL,
			reported INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetSetting returns the value stored under key. ok is false when the key is absent.
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PutSetting stores value under key, replacing any previous value.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// InsertRun stores a completed run.
func (s *Store) InsertRun(ctx context.Context, run model.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, ended_at, user_id, time_ms, wrong_count, is_new_best, reported)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.Format(time.RFC3339Nano),
		run.EndedAt.Format(time.RFC3339Nano),
		run.UserID,
		run.TimeMs,
		run.WrongCount,
		boolToInt(run.IsNewBest),
		boolToInt(run.Reported),
	)
	return err
}

// ListRuns returns runs ordered by end time, oldest first. When last > 0 only
// the most recent last runs are returned.
func (s *Store) ListRuns(ctx context.Context, last int) ([]model.RunRecord, error) {
	query := `SELECT id, started_at, ended_at, user_id, time_ms, wrong_count, is_new_best, reported
		FROM runs
		ORDER BY ended_at ASC`
	args := []any{}
	if last > 0 {
		query = `SELECT * FROM (
			SELECT id, started_at, ended_at, user_id, time_ms, wrong_count, is_new_best, reported
			FROM runs
			ORDER BY ended_at DESC
			LIMIT ?
		) ORDER BY ended_at ASC`
		args = append(args, last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		var startedAt, endedAt string
		var newBest, reported int
		if err := rows.Scan(&run.ID, &startedAt, &endedAt, &run.UserID, &run.TimeMs, &run.WrongCount, &newBest, &reported); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if run.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		run.IsNewBest = newBest != 0
		run.Reported = reported != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
