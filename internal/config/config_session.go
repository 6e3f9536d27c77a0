package config

import "time"

// SessionConfig controls the conversation manager (§4.7): which agent owns
// a session by default, and the periodic flush cadence for the current
// session cache.
type SessionConfig struct {
	DefaultAgentID string            `yaml:"default_agent_id"`
	FlushInterval  time.Duration     `yaml:"flush_interval"`
	HistoryLimit   int               `yaml:"history_limit"`
	Scoping        SessionScopeConfig `yaml:"scoping"`
}

// SessionScopeConfig controls how sessions are keyed per conversation type.
type SessionScopeConfig struct {
	// DMScope controls how direct-message sessions are scoped: "main"
	// (all DMs share one session), "per-peer", or "per-channel-peer".
	DMScope string `yaml:"dm_scope"`

	Reset ResetConfig `yaml:"reset"`
}

// ResetConfig controls when sessions are automatically reset.
type ResetConfig struct {
	// Mode is "never", "daily", "idle", or "daily+idle".
	Mode        string `yaml:"mode"`
	AtHour      int    `yaml:"at_hour"`
	IdleMinutes int    `yaml:"idle_minutes"`
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 60 * time.Second
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.Scoping.DMScope == "" {
		cfg.Scoping.DMScope = "main"
	}
	if cfg.Scoping.Reset.Mode == "" {
		cfg.Scoping.Reset.Mode = "never"
	}
}

func validScope(mode string) bool {
	switch mode {
	case "", "main", "per-peer", "per-channel-peer":
		return true
	default:
		return false
	}
}

func validResetMode(mode string) bool {
	switch mode {
	case "", "never", "daily", "idle", "daily+idle":
		return true
	default:
		return false
	}
}
