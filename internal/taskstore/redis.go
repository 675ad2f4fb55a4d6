package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/json-iterator/go"
	backend "github.com/redis/go-redis/v9"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

const defaultRedisPrefix = "auralia"

// Redis stores the task context as a JSON document under a single key.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

type RedisOption func(*Redis)

// WithTTL expires the stored context; zero keeps it until cleared.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *Redis) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key namespace. Empty values are ignored.
func WithPrefix(prefix string) RedisOption {
	return func(s *Redis) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedis connects lazily; call Ping to verify the server.
func NewRedis(address, password string, db int, opts ...RedisOption) *Redis {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(rdb, opts...)
}

// NewRedisFromClient wraps an existing client. Close closes the client.
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *Redis {
	s := &Redis{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Redis) key() string {
	return s.prefix + ":task_context"
}

func (s *Redis) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context) (schemas.TaskContext, error) {
	val, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return schemas.TaskContext{}, schemas.ErrNoTaskContext
		}
		return schemas.TaskContext{}, fmt.Errorf("failed to get task context from redis: %w", err)
	}

	var tc schemas.TaskContext
	if err := json.Unmarshal(val, &tc); err != nil {
		return schemas.TaskContext{}, fmt.Errorf("failed to unmarshal task context: %w", err)
	}
	return tc, nil
}

func (s *Redis) Set(ctx context.Context, tc schemas.TaskContext) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("failed to marshal task context: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save task context to redis: %w", err)
	}
	return nil
}

func (s *Redis) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("failed to clear task context in redis: %w", err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
