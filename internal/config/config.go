// Package config loads the runtime's YAML configuration, one file per
// concern, following the reference codebase's layout (config_llm.go,
// config_channels.go, config_tools.go, config_session.go).
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level runtime configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Session  SessionConfig  `yaml:"session"`
	Channels ChannelsConfig `yaml:"channels"`
	LLM      LLMConfig      `yaml:"llm"`
	Tools    ToolsConfig    `yaml:"tools"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Logging  LoggingConfig  `yaml:"logging"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// LoggingConfig controls the observability.Logger wrapper.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PluginsConfig configures plugin discovery, loading and isolation.
type PluginsConfig struct {
	Load      PluginLoadConfig             `yaml:"load"`
	Entries   map[string]PluginEntryConfig `yaml:"entries"`
	Isolation PluginIsolationConfig        `yaml:"isolation"`
}

// PluginLoadConfig lists directories to search for plugin manifests.
type PluginLoadConfig struct {
	Paths []string `yaml:"paths"`
}

// PluginEntryConfig is the per-plugin configuration block.
type PluginEntryConfig struct {
	Enabled bool           `yaml:"enabled"`
	Path    string         `yaml:"path"`
	Config  map[string]any `yaml:"config"`
}

// PluginIsolationConfig enables running plugins in a sandboxed backend.
// Only the config surface is carried here; the backend itself is out of
// scope (see DESIGN.md).
type PluginIsolationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"`
}

// Load reads, expands, defaults and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: expected single document")
	}

	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides lets a handful of high-traffic settings be overridden
// without editing the file, following the reference codebase's pattern of
// explicit, named env vars rather than a generic reflection-based mapper.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ASTRA_LLM_DEFAULT_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("ASTRA_SESSION_FLUSH_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Session.FlushInterval = time.Duration(secs) * time.Second
		}
	}
}

func applyDefaults(cfg *Config) {
	applySessionDefaults(&cfg.Session)
	applyChannelsDefaults(&cfg.Channels)
	applyLLMDefaults(&cfg.LLM)
	applyToolsDefaults(&cfg.Tools)
	applyLoggingDefaults(&cfg.Logging)
	applyPipelineDefaults(&cfg.Pipeline)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
}

// ConfigValidationError aggregates every validation issue found in one pass
// so operators fix a config file in one round trip instead of one error at
// a time.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var issues []string

	if !validScope(cfg.Session.Scoping.DMScope) {
		issues = append(issues, `session.scoping.dm_scope must be "main", "per-peer", or "per-channel-peer"`)
	}
	if !validResetMode(cfg.Session.Scoping.Reset.Mode) {
		issues = append(issues, `session.scoping.reset.mode must be "never", "daily", "idle", or "daily+idle"`)
	}
	if cfg.Session.Scoping.Reset.AtHour < 0 || cfg.Session.Scoping.Reset.AtHour > 23 {
		issues = append(issues, "session.scoping.reset.at_hour must be between 0 and 23")
	}
	if cfg.Session.HistoryLimit < 0 {
		issues = append(issues, "session.history_limit must be >= 0")
	}

	defaultProvider := strings.ToLower(strings.TrimSpace(cfg.LLM.DefaultProvider))
	if defaultProvider != "" {
		if _, ok := cfg.LLM.Providers[defaultProvider]; !ok {
			if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok {
				issues = append(issues, fmt.Sprintf("llm.providers missing entry for default_provider %q", cfg.LLM.DefaultProvider))
			}
		}
	}

	if cfg.Tools.Execution.Parallelism < 0 {
		issues = append(issues, "tools.execution.parallelism must be >= 0")
	}
	if cfg.Tools.Execution.Timeout < 0 {
		issues = append(issues, "tools.execution.timeout must be >= 0")
	}
	if cfg.Tools.Execution.MaxAttempts < 0 {
		issues = append(issues, "tools.execution.max_attempts must be >= 0")
	}
	if profile := strings.ToLower(strings.TrimSpace(cfg.Tools.Execution.Approval.Profile)); profile != "" {
		switch profile {
		case "coding", "messaging", "readonly", "full", "minimal":
		default:
			issues = append(issues, `tools.execution.approval.profile must be "coding", "messaging", "readonly", "full", or "minimal"`)
		}
	}

	if cfg.Plugins.Isolation.Enabled && strings.TrimSpace(cfg.Plugins.Isolation.Backend) == "" {
		issues = append(issues, "plugins.isolation.backend is required when plugins.isolation.enabled is true")
	}

	if cfg.Pipeline.MaxContextLength < 0 {
		issues = append(issues, "pipeline.max_context_length must be >= 0")
	}
	if cfg.Pipeline.DequeueContextLength < 0 {
		issues = append(issues, "pipeline.dequeue_context_length must be >= 0")
	}
	if !validPacingMode(cfg.Pipeline.Reply.PacingMode) {
		issues = append(issues, `pipeline.reply.pacing_mode must be "log_word_count" or "uniform_random"`)
	}
	if cfg.Pipeline.Reply.IntervalLo < 0 || cfg.Pipeline.Reply.IntervalHi < 0 {
		issues = append(issues, "pipeline.reply.interval_lo and interval_hi must be >= 0")
	}
	if cfg.Pipeline.Reply.IntervalHi < cfg.Pipeline.Reply.IntervalLo {
		issues = append(issues, "pipeline.reply.interval_hi must be >= interval_lo")
	}

	if pluginIssues := pluginValidationIssues(cfg); len(pluginIssues) > 0 {
		issues = append(issues, pluginIssues...)
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
