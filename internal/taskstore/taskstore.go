// Package taskstore persists the context of the task the agent is working on.
// Every backend holds at most one TaskContext and returns
// schemas.ErrNoTaskContext when it is empty.
package taskstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
)

// Store is a TaskContextStore that owns resources.
type Store interface {
	schemas.TaskContextStore
	Close() error
}

// New opens the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.TaskStoreConfig, logger *zap.Logger) (Store, error) {
	logger = logger.Named("taskstore").With(zap.String("backend", cfg.Type))

	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		s := NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			WithPrefix(cfg.Redis.KeyPrefix), WithTTL(cfg.Redis.TTL))
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		logger.Debug("Connected to Redis.", zap.String("addr", cfg.Redis.Addr))
		return s, nil
	case "sqlite":
		s, err := NewSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Debug("Opened SQLite database.", zap.String("path", cfg.SQLite.Path))
		return s, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		s, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		s.closer = pool.Close
		return s, nil
	default:
		return nil, fmt.Errorf("unknown task store type %q", cfg.Type)
	}
}
