package taskstore

import (
	"context"
	"sync"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

// Memory keeps the task context in process. It is lost on exit.
type Memory struct {
	mu sync.RWMutex
	tc *schemas.TaskContext
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(_ context.Context) (schemas.TaskContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tc == nil {
		return schemas.TaskContext{}, schemas.ErrNoTaskContext
	}
	return *m.tc, nil
}

func (m *Memory) Set(_ context.Context, tc schemas.TaskContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tc = &tc
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tc = nil
	return nil
}

func (m *Memory) Close() error { return nil }
