package config

// ChannelsConfig configures platform adapters. Individual platform wire
// protocols are out of scope; this carries only what the pipeline's
// Handler Registry needs to gate plugin handlers per platform (§4.3
// platform-enable rule: platform-id -> {plugin-name -> bool}).
type ChannelsConfig struct {
	PlatformEnable map[string]map[string]bool `yaml:"platform_enable"`

	// InboundQueueSize bounds the event bus's FIFO queue (§4.1, default 32).
	InboundQueueSize int `yaml:"inbound_queue_size"`

	// EnableCLI attaches the reference in-process CLIAdapter under
	// platform id "cli", reading stdin/writing stdout, so `astra serve`
	// can double as a local chat session with no network adapter plugin.
	EnableCLI bool `yaml:"enable_cli"`
}

func applyChannelsDefaults(cfg *ChannelsConfig) {
	if cfg.InboundQueueSize == 0 {
		cfg.InboundQueueSize = 32
	}
}
