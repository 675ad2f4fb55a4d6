// internal/agent/models.go
package agent

import (
	"time"

	"github.com/BilalMagg/Auralia-sub000/internal/action"
)

// State is the lifecycle phase of the agent.
type State string

const (
	StateIdle    State = "IDLE"    // No task is running. Initial state, and the state after a task succeeds or is stopped.
	StateRunning State = "RUNNING" // A task loop is in progress.
	StateFailed  State = "FAILED"  // The last task ended in failure.
)

// DefaultTaskType labels tasks started without an explicit type.
const DefaultTaskType = "agent"

// TaskRequest describes a task for the agent loop.
type TaskRequest struct {
	// ID is generated when empty.
	ID   string `json:"id,omitempty"`
	Task string `json:"task"`
	// TaskType is a free-form category persisted with the task context.
	TaskType string `json:"task_type"`
	// StartStep is the number of iterations already spent, when resuming.
	StartStep int `json:"start_step"`
}

// Step records one iteration of the loop.
type Step struct {
	Iteration  int           `json:"iteration"`
	Action     action.Action `json:"-"`
	Reasoning  string        `json:"reasoning,omitempty"`
	Confidence float64       `json:"confidence"`
	OK         bool          `json:"ok"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Summary    string        `json:"summary"`
}

// TaskResult is the terminal outcome of a task.
type TaskResult struct {
	TaskID     string        `json:"task_id"`
	Task       string        `json:"task"`
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Iterations int           `json:"iterations"`
	History    []Step        `json:"history"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}
