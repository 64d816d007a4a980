// SPDX-License-Identifier: AGPL-3.0-only

// Package store keeps the run history in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aegirops/formation-langgraph/internal/model"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// MaxRuns caps a single GetRuns query.
const MaxRuns = 100

// SQLiteStore implements model.RunStore.
type SQLiteStore struct {
	db *sql.DB
}

var _ model.RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at dbPath, switches it to
// WAL mode and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRun persists a run summary. Saving the same ID twice is an error.
func (s *SQLiteStore) SaveRun(run *model.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, workflow, status, output, notification_status, message_count,
			error, exit_code, start_time, end_time, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Workflow,
		run.Status,
		run.Output,
		run.NotificationStatus,
		run.MessageCount,
		run.Error,
		run.ExitCode,
		run.StartTime.UTC().Format(timeFormat),
		run.EndTime.UTC().Format(timeFormat),
		run.Duration,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetLatestRun returns the most recent run of workflow, or nil, nil.
func (s *SQLiteStore) GetLatestRun(workflow string) (*model.Run, error) {
	runs, err := s.GetRuns(workflow, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// GetRuns returns up to limit runs ordered by start time, most recent
// first. limit is clamped to [1, MaxRuns]; an empty workflow matches all.
func (s *SQLiteStore) GetRuns(workflow string, limit int) ([]*model.Run, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxRuns {
		limit = MaxRuns
	}

	rows, err := s.db.Query(`
		SELECT id, workflow, status, output, notification_status, message_count,
			error, exit_code, start_time, end_time, duration
		FROM runs
		WHERE ? = '' OR workflow = ?
		ORDER BY start_time DESC
		LIMIT ?`, workflow, workflow, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		var r model.Run
		var startStr, endStr string
		if err := rows.Scan(
			&r.ID, &r.Workflow, &r.Status, &r.Output, &r.NotificationStatus, &r.MessageCount,
			&r.Error, &r.ExitCode, &startStr, &endStr, &r.Duration,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.StartTime, _ = time.Parse(timeFormat, startStr)
		r.EndTime, _ = time.Parse(timeFormat, endStr)
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
