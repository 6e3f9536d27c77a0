// Package lifecycle wires the configured stores, registries and pipeline
// stages into a running event loop and manages its startup/shutdown, the
// way the reference codebase's gateway.Server composes its subsystems in
// lifecycle.go.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/astrarelay/astra/internal/agent"
	"github.com/astrarelay/astra/internal/channels"
	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/internal/conversation"
	"github.com/astrarelay/astra/internal/hooks"
	"github.com/astrarelay/astra/internal/pipeline"
	"github.com/astrarelay/astra/internal/plugins"
	"github.com/astrarelay/astra/internal/sessions"
	"github.com/astrarelay/astra/internal/storage"
)

// loadEnabledPlugins registers every enabled plugin entry's compiled binary
// with registry, ahead of the Load{Channels,Tools,Hooks} phases.
func loadEnabledPlugins(cfg *config.Config, registry *plugins.RuntimeRegistry) error {
	for name, entry := range cfg.Plugins.Entries {
		if !entry.Enabled || entry.Path == "" {
			continue
		}
		plugin, err := plugins.LoadRuntimePlugin(entry.Path)
		if err != nil {
			return fmt.Errorf("plugin %q: %w", name, err)
		}
		if err := registry.Register(plugin); err != nil {
			return fmt.Errorf("plugin %q: %w", name, err)
		}
	}
	return nil
}

// Coordinator owns every long-lived subsystem: the configured channel
// adapters, the handler registry, the agent runtime, the pipeline bus, and
// the conversation manager's background flush loop.
type Coordinator struct {
	cfg    *config.Config
	logger *slog.Logger

	Channels     *channels.Registry
	Hooks        *hooks.Registry
	Sessions     sessions.Store
	MessageStore sessions.MessageStore
	Preferences  storage.PreferenceStore
	Conversation *conversation.Manager
	Runtime      *agent.Runtime
	Bus          *pipeline.Bus

	cancel context.CancelFunc
}

// Options lets callers substitute stores (e.g. CockroachStore in
// production, MemoryStore for `astra doctor`/tests) and pre-register
// channel adapters before the coordinator wires the pipeline around them.
type Options struct {
	Sessions     sessions.Store
	MessageStore sessions.MessageStore
	Preferences  storage.PreferenceStore
	Channels     *channels.Registry
	Logger       *slog.Logger
}

// New builds every subsystem from cfg but does not start anything; call
// Start to launch the channel adapters and the bus dispatcher.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Coordinator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionStore := opts.Sessions
	if sessionStore == nil {
		sessionStore = sessions.NewMemoryStore()
	}
	messageStore := opts.MessageStore
	if messageStore == nil {
		messageStore = sessions.NewMemoryMessageStore()
	}
	prefs := opts.Preferences
	if prefs == nil {
		prefs = storage.NewMemoryPreferenceStore()
	}
	channelRegistry := opts.Channels
	if channelRegistry == nil {
		channelRegistry = channels.NewRegistry()
	}

	convMgr, err := conversation.New(ctx, sessionStore, prefs, logger)
	if err != nil {
		return nil, fmt.Errorf("conversation manager: %w", err)
	}

	provider, err := pipeline.BuildProvider(&cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	runtime := agent.NewRuntime(provider, messageStore)

	hookRegistry := hooks.NewRegistry(logger)

	pluginRegistry := plugins.NewRuntimeRegistry()
	if err := loadEnabledPlugins(cfg, pluginRegistry); err != nil {
		return nil, fmt.Errorf("load plugins: %w", err)
	}
	if err := pluginRegistry.LoadChannels(cfg, channelRegistry); err != nil {
		return nil, fmt.Errorf("wire plugin channels: %w", err)
	}
	if err := pluginRegistry.LoadTools(cfg, runtime); err != nil {
		return nil, fmt.Errorf("wire plugin tools: %w", err)
	}
	if err := pluginRegistry.LoadHooks(cfg, hookRegistry, logger); err != nil {
		return nil, fmt.Errorf("wire plugin hooks: %w", err)
	}

	scheduler := pipeline.NewScheduler(
		pipeline.NewWakeChecker(&cfg.Pipeline),
		pipeline.NewPlatformCompatibility(hookRegistry, pipeline.ContentSafetyKind, pipeline.KindCommand, pipeline.KindRegex),
		pipeline.NewPermissionGate(&cfg.Pipeline),
		pipeline.NewContentSafety(hookRegistry),
		pipeline.NewProcessDispatch(hookRegistry),
		pipeline.NewLLMRequest(&cfg.Pipeline, runtime, messageStore),
	)
	respond := pipeline.NewRespond(channelRegistry, hookRegistry, &cfg.Pipeline.Reply, logger)
	runner := pipeline.NewPipelineRunner(scheduler, respond)
	bus := pipeline.NewBus(cfg.Channels.InboundQueueSize, runner, logger)

	return &Coordinator{
		cfg:          cfg,
		logger:       logger,
		Channels:     channelRegistry,
		Hooks:        hookRegistry,
		Sessions:     sessionStore,
		MessageStore: messageStore,
		Preferences:  prefs,
		Conversation: convMgr,
		Runtime:      runtime,
		Bus:          bus,
	}, nil
}

// Start launches every registered channel adapter, the bus dispatcher, and
// a feeder goroutine forwarding the registry's aggregated events onto the
// bus (§4.1). It returns once everything has been launched; it does not
// block on their completion.
func (c *Coordinator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.Channels.StartAll(runCtx)

	go c.Bus.Run(runCtx)

	go func() {
		for event := range c.Channels.AggregateEvents(runCtx) {
			if err := c.Bus.Push(runCtx, event); err != nil {
				c.logger.Error("failed to enqueue inbound event", "platform", event.Platform, "error", err)
			}
		}
	}()
}

// Stop terminates every channel adapter, drains in-flight pipeline runs,
// and flushes the conversation manager's current-dialogue cache (§5
// Shared-resource policy: registry mutation waits for Bus.Wait).
func (c *Coordinator) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.Bus.Wait()

	var lastErr error
	if err := c.Channels.StopAll(ctx); err != nil {
		lastErr = err
	}
	if err := c.Conversation.Close(ctx); err != nil {
		lastErr = err
	}
	return lastErr
}
