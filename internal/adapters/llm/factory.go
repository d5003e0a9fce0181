package llm

import (
	"fmt"

	"github.com/gepa-run/gepa-engine/internal/config"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// New builds the ports.ReflectionLM named by cfg.Provider.
func New(cfg config.ReflectionLMConfig) (ports.ReflectionLM, error) {
	switch cfg.Provider {
	case "openai_compatible":
		return NewOpenAIClient(cfg.URL, cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown reflection LM provider %q", cfg.Provider)
	}
}
