package pipeline

import (
	"fmt"

	"github.com/astrarelay/astra/internal/agent"
	"github.com/astrarelay/astra/internal/agent/providers"
	"github.com/astrarelay/astra/internal/config"
)

// BuildProvider constructs the agent.LLMProvider the LLM-request stage will
// call, wiring cfg.LLM.DefaultProvider as the primary and the rest of
// cfg.LLM.FallbackChain into a FailoverOrchestrator (§4.5 Provider
// Abstraction: automatic retry/failover across a provider pool).
func BuildProvider(cfg *config.LLMConfig) (agent.LLMProvider, error) {
	if cfg == nil || cfg.DefaultProvider == "" {
		return nil, fmt.Errorf("llm: default_provider is required")
	}

	primary, err := newNamedProvider(cfg.DefaultProvider, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: default provider %q: %w", cfg.DefaultProvider, err)
	}

	orchestrator := agent.NewFailoverOrchestrator(primary, nil)
	for _, name := range cfg.FallbackChain {
		if name == cfg.DefaultProvider {
			continue
		}
		fallback, err := newNamedProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("llm: fallback provider %q: %w", name, err)
		}
		orchestrator.AddProvider(fallback)
	}
	return orchestrator, nil
}

func newNamedProvider(name string, cfg *config.LLMConfig) (agent.LLMProvider, error) {
	entry := cfg.Providers[name]
	switch name {
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       firstNonEmpty(entry.APIKeys, entry.APIKey),
			BaseURL:      entry.BaseURL,
			DefaultModel: entry.DefaultModel,
		})
	case "openai":
		return providers.NewOpenAIProvider(firstNonEmpty(entry.APIKeys, entry.APIKey)), nil
	case "google":
		return providers.NewGoogleProvider(providers.GoogleConfig{
			APIKey:       firstNonEmpty(entry.APIKeys, entry.APIKey),
			DefaultModel: entry.DefaultModel,
		})
	case "openrouter":
		return providers.NewOpenRouterProvider(providers.OpenRouterConfig{
			APIKey:       firstNonEmpty(entry.APIKeys, entry.APIKey),
			DefaultModel: entry.DefaultModel,
		})
	case "ollama":
		return providers.NewOllamaProvider(providers.OllamaConfig{
			BaseURL:      entry.BaseURL,
			DefaultModel: entry.DefaultModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func firstNonEmpty(keys []string, single string) string {
	if len(keys) > 0 && keys[0] != "" {
		return keys[0]
	}
	return single
}
