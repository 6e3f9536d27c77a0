package config

import "time"

// LLMConfig configures the LLM-Request Stage's provider pool.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`

	// FallbackChain specifies provider IDs to try, in order, if the
	// default provider's call fails or its key pool is exhausted.
	FallbackChain []string `yaml:"fallback_chain"`

	// RequestTimeout bounds a single provider call (§5 Timeouts).
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LLMProviderConfig configures one named provider entry. APIKeys supports
// rotation across multiple keys on 429/invalid-key (§4.5).
type LLMProviderConfig struct {
	APIKey       string   `yaml:"api_key"`
	APIKeys      []string `yaml:"api_keys"`
	DefaultModel string   `yaml:"default_model"`
	BaseURL      string   `yaml:"base_url"`
	APIVersion   string   `yaml:"api_version"`
}

func applyLLMDefaults(cfg *LLMConfig) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
}
