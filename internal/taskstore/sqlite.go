package taskstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

// SQLite keeps the task context in a single-row table of a local database.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path and migrates it.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS task_context (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		task_id TEXT NOT NULL,
		task_type TEXT NOT NULL,
		original_command TEXT NOT NULL,
		step_index INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLite) Get(ctx context.Context) (schemas.TaskContext, error) {
	var (
		tc        schemas.TaskContext
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT task_id, task_type, original_command, step_index, updated_at FROM task_context WHERE id = 1`,
	).Scan(&tc.TaskID, &tc.TaskType, &tc.OriginalCommand, &tc.StepIndex, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schemas.TaskContext{}, schemas.ErrNoTaskContext
	}
	if err != nil {
		return schemas.TaskContext{}, fmt.Errorf("query task context: %w", err)
	}

	if tc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return schemas.TaskContext{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return tc, nil
}

func (s *SQLite) Set(ctx context.Context, tc schemas.TaskContext) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO task_context (id, task_id, task_type, original_command, step_index, updated_at)
	VALUES (1, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		task_id = excluded.task_id,
		task_type = excluded.task_type,
		original_command = excluded.original_command,
		step_index = excluded.step_index,
		updated_at = excluded.updated_at`,
		tc.TaskID, tc.TaskType, tc.OriginalCommand, tc.StepIndex, tc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save task context: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_context`); err != nil {
		return fmt.Errorf("clear task context: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
