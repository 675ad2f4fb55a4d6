// internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/action"
	"github.com/BilalMagg/Auralia-sub000/internal/sequencer"
)

// Executor performs one action per call. *sequencer.Sequencer satisfies it.
type Executor interface {
	Available() bool
	Step(ctx context.Context, act action.Action) sequencer.StepResult
}

// TreeSource provides the UI tree used as a text observation when OCR is
// unavailable.
type TreeSource interface {
	CurrentTree(ctx context.Context) (*schemas.UINode, error)
}

var _ Executor = (*sequencer.Sequencer)(nil)
