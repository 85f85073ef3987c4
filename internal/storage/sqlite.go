package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"weeklyreminder/internal/task"
	logx "weeklyreminder/pkg/logx"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id             INTEGER PRIMARY KEY,
	position       INTEGER NOT NULL,
	content        TEXT    NOT NULL,
	weekdays       TEXT    NOT NULL,
	time           TEXT    NOT NULL,
	enabled        INTEGER NOT NULL DEFAULT 1,
	last_triggered TEXT
);
CREATE INDEX IF NOT EXISTS tasks_position ON tasks(position);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (task.Backend, error) {
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	// Rollback journal (not WAL) so every commit touches the main file and the
	// daemon's file watcher sees CLI writes.
	_, _ = db.Exec("PRAGMA journal_mode = DELETE")

	st := &sqliteStore{db: db, log: log}
	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) Load(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, weekdays, time, enabled, last_triggered FROM tasks ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []task.Task
	for rows.Next() {
		var (
			t        task.Task
			weekdays string
			enabled  int
			last     sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Content, &weekdays, &t.Time, &enabled, &last); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(weekdays), &t.Weekdays); err != nil {
			return nil, fmt.Errorf("task %d: weekdays: %w", t.ID, err)
		}
		t.Enabled = enabled != 0
		t.LastTriggered = last.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// Save replaces the table contents in one transaction.
func (s *sqliteStore) Save(ctx context.Context, tasks []task.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tasks(id, position, content, weekdays, time, enabled, last_triggered) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range tasks {
		days := t.Weekdays
		if days == nil {
			days = []int{}
		}
		wd, err := json.Marshal(days)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, t.ID, i, t.Content, string(wd), t.Time, boolInt(t.Enabled), nullStr(t.LastTriggered)); err != nil {
			return fmt.Errorf("insert task %d: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("tasks saved", logx.Int("count", len(tasks)))
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
