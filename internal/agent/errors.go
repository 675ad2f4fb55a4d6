// internal/agent/errors.go
package agent

import "errors"

// Reasons a task cannot start.
var (
	ErrAlreadyRunning      = errors.New("a task is already running")
	ErrNoExecutor          = errors.New("no executor registered")
	ErrExecutorUnavailable = errors.New("executor is not available")
	ErrEmptyTask           = errors.New("task is empty")
	ErrNoTask              = errors.New("no task has been started")
)

// Terminal failure messages.
const (
	MsgMaxIterations = "reached maximum iterations"
	MsgStopped       = "task stopped"
	MsgCancelled     = "task cancelled"
)
