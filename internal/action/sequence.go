package action

import (
	"strings"
)

// Sequence is an ordered plan. Order is execution order.
type Sequence struct {
	Description string
	Actions     []Action
}

// NewSequence builds a sequence from the given actions.
func NewSequence(description string, actions ...Action) Sequence {
	return Sequence{Description: description, Actions: actions}
}

// Len returns the number of steps.
func (s Sequence) Len() int { return len(s.Actions) }

// Kinds lists the variant tags of every step, in order.
func (s Sequence) Kinds() []Kind {
	kinds := make([]Kind, len(s.Actions))
	for i, a := range s.Actions {
		kinds[i] = a.Kind()
	}
	return kinds
}

// String renders the steps as a bracketed list for logs.
func (s Sequence) String() string {
	parts := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		parts[i] = Describe(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Clone returns a copy whose action slice can be modified independently.
func (s Sequence) Clone() Sequence {
	out := Sequence{Description: s.Description, Actions: make([]Action, len(s.Actions))}
	copy(out.Actions, s.Actions)
	return out
}

// Source identifies the planning layer that produced a result.
type Source string

const (
	SourceCache     Source = "cache"
	SourcePattern   Source = "pattern"
	SourceHeuristic Source = "heuristic"
	SourcePlanner   Source = "planner"
	SourceFallback  Source = "fallback"
)

// CommandResult is the outcome of interpreting one command.
type CommandResult struct {
	Success bool
	Message string
	Actions Sequence
	// Source is informational and never part of a result's identity.
	Source Source
}

// ModelResponse is a single agent turn proposed by the planner.
type ModelResponse struct {
	Action             Action
	Reasoning          string
	Confidence         float64
	RequiresScreenshot bool
}

// FallbackResult is the diagnostic plan used when nothing better is known.
func FallbackResult(message string) CommandResult {
	return CommandResult{
		Success: false,
		Message: message,
		Actions: NewSequence("diagnostic screenshot", Screenshot{}),
		Source:  SourceFallback,
	}
}
