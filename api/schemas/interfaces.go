package schemas

import (
	"context"
	"time"
)

// -- LLM Client Schemas & Interface --

// ModelTier allows for selecting a large language model based on a preference
// for speed versus advanced capabilities.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Short utterances and single agent turns.
	TierPowerful ModelTier = "powerful" // Long, multi-step commands.
)

// GenerationOptions controls how the planner model samples its answer.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, asks the model for a JSON document.
	TopP            float64 `json:"top_p"`
	TopK            int     `json:"top_k"`
}

// GenerationRequest encapsulates a complete request to the planner model.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient defines a standard interface for interacting with a Large Language
// Model, abstracting the specifics of the underlying provider (e.g., Gemini).
// Implementations must honor ctx cancellation; callers impose the deadline.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client.
	Close() error
}

// -- OCR --

// TextBlock is a recognized run of text and where it sits on screen.
type TextBlock struct {
	Text   string `json:"text"`
	Bounds Rect   `json:"bounds"`
}

// OCRResult is the outcome of a single recognition pass.
type OCRResult struct {
	Text   string      `json:"text"`
	Blocks []TextBlock `json:"blocks,omitempty"`
}

// OCRService turns a screenshot into text. The engine never depends on a
// specific recognizer; a failed pass is treated as an empty screen.
type OCRService interface {
	Recognize(ctx context.Context, image []byte) (OCRResult, error)
}

// -- Task Context --

// TaskContext is the persisted state of a multi-turn task.
type TaskContext struct {
	TaskID          string    `json:"task_id"`
	TaskType        string    `json:"task_type"`
	OriginalCommand string    `json:"original_command"`
	StepIndex       int       `json:"step_index"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TaskContextStore holds at most one TaskContext. Writes are last-writer-wins.
// Get returns ErrNoTaskContext when nothing is stored.
type TaskContextStore interface {
	Get(ctx context.Context) (TaskContext, error)
	Set(ctx context.Context, tc TaskContext) error
	Clear(ctx context.Context) error
}
