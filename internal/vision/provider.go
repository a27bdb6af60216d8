package vision

import (
	"context"
	"fmt"

	"smart-nutrition/internal/config"
)

// NewFromConfig builds the analyzer selected by cfg.VisionProvider.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Analyzer, error) {
	switch cfg.VisionProvider {
	case config.ProviderGemini:
		g, err := NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderOpenAI:
		return NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.VisionProvider)
	}
}
