package config

import "time"

// PipelineConfig controls the wake/permission gating and LLM-request stages
// (§4.2, §4.4) and the reply stage's segmentation/pacing (§4.8).
type PipelineConfig struct {
	// WakePrefix is stripped from message_str before it becomes the LLM
	// prompt (§4.4). If BotWakePrefix is also set and WakePrefix begins
	// with it, BotWakePrefix is stripped first.
	WakePrefix    string `yaml:"wake_prefix"`
	BotWakePrefix string `yaml:"bot_wake_prefix"`

	// RequireAtOrWake gates the process-dispatch stage: when true, only
	// events with IsAtOrWakeCommand set reach the LLM-request stage.
	RequireAtOrWake bool `yaml:"require_at_or_wake"`

	// MaxContextLength, when > 0, enforces the context-window truncation
	// rule in §4.4 ("Context-window enforcement").
	MaxContextLength     int `yaml:"max_context_length"`
	DequeueContextLength int `yaml:"dequeue_context_length"`

	// AgentID identifies the agent-runtime session namespace the
	// LLM-request stage binds pipeline sessions into (internal/agent).
	AgentID string `yaml:"agent_id"`

	Reply ReplyConfig `yaml:"reply"`
}

// ReplyConfig controls the reply stage's segmentation and pacing (§4.8).
type ReplyConfig struct {
	// SegmentationEnabled sends one message per non-decoration component
	// instead of the whole chain at once.
	SegmentationEnabled bool `yaml:"segmentation_enabled"`

	// OnlyLLMResult gates segmentation to chains produced by the LLM stage.
	OnlyLLMResult bool `yaml:"only_llm_result"`

	// PacingMode selects how segments are paced: "log_word_count" (delay
	// scaled to log(word count)) or "uniform_random" (uniform over
	// [IntervalLo, IntervalHi]).
	PacingMode string        `yaml:"pacing_mode"`
	IntervalLo time.Duration `yaml:"interval_lo"`
	IntervalHi time.Duration `yaml:"interval_hi"`

	// PathMapping rules, each "FROM:TO" (§6), applied to file-component
	// paths before send. First matching prefix wins.
	PathMapping []string `yaml:"path_mapping"`
}

func applyPipelineDefaults(cfg *PipelineConfig) {
	if cfg.DequeueContextLength == 0 {
		cfg.DequeueContextLength = 1
	}
	if cfg.AgentID == "" {
		cfg.AgentID = "astra"
	}
	if cfg.Reply.PacingMode == "" {
		cfg.Reply.PacingMode = "log_word_count"
	}
	if cfg.Reply.IntervalLo == 0 {
		cfg.Reply.IntervalLo = 500 * time.Millisecond
	}
	if cfg.Reply.IntervalHi == 0 {
		cfg.Reply.IntervalHi = 1500 * time.Millisecond
	}
}

func validPacingMode(mode string) bool {
	switch mode {
	case "", "log_word_count", "uniform_random":
		return true
	default:
		return false
	}
}
