package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
	"github.com/BilalMagg/Auralia-sub000/internal/config"
)

// NewClient builds the tiered planner client described by cfg. When both
// tiers name the same model a single underlying client serves both.
func NewClient(cfg config.LLMRouterConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	if cfg.DefaultFastModel == "" || cfg.DefaultPowerfulModel == "" {
		return nil, fmt.Errorf("both default_fast_model and default_powerful_model must be set")
	}

	fast, err := newModelClient(cfg, cfg.DefaultFastModel, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast tier client: %w", err)
	}

	powerful := fast
	if cfg.DefaultPowerfulModel != cfg.DefaultFastModel {
		powerful, err = newModelClient(cfg, cfg.DefaultPowerfulModel, logger)
		if err != nil {
			_ = fast.Close()
			return nil, fmt.Errorf("failed to create powerful tier client: %w", err)
		}
	}

	return NewLLMRouter(logger, fast, powerful)
}

func newModelClient(cfg config.LLMRouterConfig, name string, logger *zap.Logger) (schemas.LLMClient, error) {
	modelCfg, ok := cfg.Models[name]
	if !ok {
		return nil, fmt.Errorf("model %q is not configured", name)
	}
	if modelCfg.Model == "" {
		modelCfg.Model = name
	}

	switch modelCfg.Provider {
	case config.ProviderGemini, "":
		return NewGeminiClient(modelCfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", modelCfg.Provider, config.ProviderGemini)
	}
}
