package config

import "time"

// ToolsConfig controls the function-tool manager and the tool-execution
// runtime (§2 Function-tool manager, §4.6).
type ToolsConfig struct {
	Execution   ToolExecutionConfig   `yaml:"execution"`
	ResultGuard ToolResultGuardConfig `yaml:"result_guard"`
	Jobs        ToolJobsConfig        `yaml:"jobs"`
	Remote      RemoteToolsConfig     `yaml:"remote"`
}

// ToolExecutionConfig controls concurrency, retries and approval for tool
// dispatch (§4.6: a semaphore-limited pool, default concurrency 4, 30s
// per-tool timeout, configurable per-call retry count).
type ToolExecutionConfig struct {
	MaxIterations   int            `yaml:"max_iterations"`
	Parallelism     int            `yaml:"parallelism"`
	Timeout         time.Duration  `yaml:"timeout"`
	MaxAttempts     int            `yaml:"max_attempts"`
	RetryBackoff    time.Duration  `yaml:"retry_backoff"`
	DisableEvents   bool           `yaml:"disable_events"`
	MaxToolCalls    int            `yaml:"max_tool_calls"`
	RequireApproval []string       `yaml:"require_approval"`
	Async           []string       `yaml:"async"`
	Approval        ApprovalConfig `yaml:"approval"`
}

// ApprovalConfig controls tool approval behavior.
type ApprovalConfig struct {
	// Profile selects a pre-configured tool access level: "coding",
	// "messaging", "readonly", "full", or "minimal".
	Profile string `yaml:"profile"`

	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`

	// DefaultDecision when no rule matches: "allowed", "denied", or "pending".
	DefaultDecision string `yaml:"default_decision"`
}

// ToolResultGuardConfig controls redaction of tool results before
// persistence (mirrors internal/agent.ToolResultGuard).
type ToolResultGuardConfig struct {
	Enabled         bool     `yaml:"enabled"`
	MaxChars        int      `yaml:"max_chars"`
	Denylist        []string `yaml:"denylist"`
	RedactPatterns  []string `yaml:"redact_patterns"`
	RedactionText   string   `yaml:"redaction_text"`
	TruncateSuffix  string   `yaml:"truncate_suffix"`
	SanitizeSecrets bool     `yaml:"sanitize_secrets"`
}

// ToolJobsConfig controls async tool job retention (§4.6 async jobs).
type ToolJobsConfig struct {
	Retention     time.Duration `yaml:"retention"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// RemoteToolsConfig points at the remote tool-server config file (§4.6:
// JSON {"mcpServers": {...}}).
type RemoteToolsConfig struct {
	ConfigPath string `yaml:"config_path"`
}

func applyToolsDefaults(cfg *ToolsConfig) {
	if cfg.Execution.Parallelism == 0 {
		cfg.Execution.Parallelism = 4
	}
	if cfg.Execution.Timeout == 0 {
		cfg.Execution.Timeout = 30 * time.Second
	}
	if cfg.Execution.MaxAttempts == 0 {
		cfg.Execution.MaxAttempts = 1
	}
	if cfg.Jobs.Retention == 0 {
		cfg.Jobs.Retention = 24 * time.Hour
	}
	if cfg.Jobs.PruneInterval == 0 {
		cfg.Jobs.PruneInterval = time.Hour
	}
	if cfg.Remote.ConfigPath == "" {
		cfg.Remote.ConfigPath = "mcp-servers.json"
	}
}
