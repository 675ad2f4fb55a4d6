package taskstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

// DBPool abstracts pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlCreateTaskContext = `
        CREATE TABLE IF NOT EXISTS task_context (
            id SMALLINT PRIMARY KEY CHECK (id = 1),
            task_id TEXT NOT NULL,
            task_type TEXT NOT NULL,
            original_command TEXT NOT NULL,
            step_index INTEGER NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlSelectTaskContext = `
        SELECT task_id, task_type, original_command, step_index, updated_at
        FROM task_context WHERE id = 1;
    `
	sqlUpsertTaskContext = `
        INSERT INTO task_context (id, task_id, task_type, original_command, step_index, updated_at)
        VALUES (1, $1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            task_id = EXCLUDED.task_id,
            task_type = EXCLUDED.task_type,
            original_command = EXCLUDED.original_command,
            step_index = EXCLUDED.step_index,
            updated_at = EXCLUDED.updated_at;
    `
	sqlDeleteTaskContext = `DELETE FROM task_context;`
)

// Postgres stores the task context in a single-row PostgreSQL table.
type Postgres struct {
	pool   DBPool
	log    *zap.Logger
	closer func()
}

var _ Store = (*Postgres)(nil)

// NewPostgres verifies the connection before returning the store.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{
		pool: pool,
		log:  logger.Named("postgres"),
	}, nil
}

// EnsureSchema creates the task_context table when missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateTaskContext); err != nil {
		return fmt.Errorf("failed to create task_context table: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context) (schemas.TaskContext, error) {
	var tc schemas.TaskContext
	err := s.pool.QueryRow(ctx, sqlSelectTaskContext).
		Scan(&tc.TaskID, &tc.TaskType, &tc.OriginalCommand, &tc.StepIndex, &tc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return schemas.TaskContext{}, schemas.ErrNoTaskContext
	}
	if err != nil {
		return schemas.TaskContext{}, fmt.Errorf("failed to load task context: %w", err)
	}
	return tc, nil
}

func (s *Postgres) Set(ctx context.Context, tc schemas.TaskContext) error {
	// Stored in UTC to avoid ambiguity across hosts.
	_, err := s.pool.Exec(ctx, sqlUpsertTaskContext,
		tc.TaskID, tc.TaskType, tc.OriginalCommand, tc.StepIndex, tc.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save task context: %w", err)
	}
	return nil
}

func (s *Postgres) Clear(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteTaskContext)
	if err != nil {
		return fmt.Errorf("failed to clear task context: %w", err)
	}
	s.log.Debug("Cleared task context.", zap.Int64("rows", tag.RowsAffected()))
	return nil
}

// Close releases the pool when the store opened it.
func (s *Postgres) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
