package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

var (
	ErrMissingTierClient = errors.New("both fast and powerful tier clients must be provided")
	ErrUnknownTier       = errors.New("no LLM client configured for tier")
)

// LLMRouter sends short interpretations and agent turns to the fast model and
// everything else to the powerful one.
type LLMRouter struct {
	logger   *zap.Logger
	fast     schemas.LLMClient
	powerful schemas.LLMClient
}

var _ schemas.LLMClient = (*LLMRouter)(nil)

func NewLLMRouter(logger *zap.Logger, fast, powerful schemas.LLMClient) (*LLMRouter, error) {
	if fast == nil || powerful == nil {
		return nil, ErrMissingTierClient
	}
	return &LLMRouter{logger: logger.Named("llm_router"), fast: fast, powerful: powerful}, nil
}

// clientFor resolves a tier. An empty tier means powerful.
func (r *LLMRouter) clientFor(tier schemas.ModelTier) (schemas.LLMClient, schemas.ModelTier, error) {
	switch tier {
	case schemas.TierFast:
		return r.fast, tier, nil
	case schemas.TierPowerful, "":
		return r.powerful, schemas.TierPowerful, nil
	default:
		return nil, tier, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
}

func (r *LLMRouter) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	client, tier, err := r.clientFor(req.Tier)
	if err != nil {
		return "", err
	}
	r.logger.Debug("Routing LLM request", zap.String("tier", string(tier)))

	start := time.Now()
	out, err := client.Generate(ctx, req)
	if err != nil {
		r.logger.Debug("Tier request failed",
			zap.String("tier", string(tier)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	return out, nil
}

// Close closes both clients, or the single one when a model serves both tiers.
func (r *LLMRouter) Close() error {
	err := r.fast.Close()
	if err != nil {
		err = fmt.Errorf("closing %s client: %w", schemas.TierFast, err)
	}
	if r.powerful == r.fast {
		return err
	}
	if perr := r.powerful.Close(); perr != nil {
		err = errors.Join(err, fmt.Errorf("closing %s client: %w", schemas.TierPowerful, perr))
	}
	return err
}
