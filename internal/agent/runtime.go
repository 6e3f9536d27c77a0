package agent

import (
	"context"
	"sync"

	"github.com/astrarelay/astra/internal/sessions"
	"github.com/astrarelay/astra/pkg/models"
)

// Runtime is the primary entry point for agent-side tool-augmented
// conversation processing. It wires a provider, tool registry and session
// store behind RuntimeOptions and drives them with an AgenticLoop. Plugins
// reach it through RegisterTool/ConfigureTool; hosts reach it through
// Process.
type Runtime struct {
	provider LLMProvider
	store    sessions.MessageStore
	tools    *ToolRegistry
	opts     RuntimeOptions
	loop     *AgenticLoop

	sessionLocksMu sync.Mutex
	sessionLocks   map[string]*sessionLock
}

// NewRuntime creates a Runtime with default options.
func NewRuntime(provider LLMProvider, store sessions.MessageStore) *Runtime {
	return NewRuntimeWithOptions(provider, store, DefaultRuntimeOptions())
}

// NewRuntimeWithOptions creates a Runtime, merging opts over the defaults.
func NewRuntimeWithOptions(provider LLMProvider, store sessions.MessageStore, opts RuntimeOptions) *Runtime {
	opts = mergeRuntimeOptions(DefaultRuntimeOptions(), opts)
	registry := NewToolRegistry()

	loopCfg := &LoopConfig{
		MaxIterations:      opts.MaxIterations,
		DisableToolEvents:  opts.DisableToolEvents,
		MaxToolCalls:       opts.MaxToolCalls,
		RequireApproval:    opts.RequireApproval,
		ApprovalChecker:    opts.ApprovalChecker,
		ElevatedTools:      opts.ElevatedTools,
		AsyncTools:         opts.AsyncTools,
		JobStore:           opts.JobStore,
		ToolResultGuard:    opts.ToolResultGuard,
		EnableBackpressure: true,
		StreamToolResults:  true,
		ExecutorConfig: &ExecutorConfig{
			MaxConcurrency: opts.ToolParallelism,
			DefaultTimeout: opts.ToolTimeout,
			DefaultRetries: opts.ToolMaxAttempts - 1,
			RetryBackoff:   opts.ToolRetryBackoff,
		},
	}

	return &Runtime{
		provider:     provider,
		store:        store,
		tools:        registry,
		opts:         opts,
		loop:         NewAgenticLoop(provider, registry, store, loopCfg),
		sessionLocks: make(map[string]*sessionLock),
	}
}

// RegisterTool adds a tool to the runtime's registry.
func (r *Runtime) RegisterTool(tool Tool) {
	r.tools.Register(tool)
}

// ConfigureTool sets per-tool timeout/retry/priority overrides.
func (r *Runtime) ConfigureTool(name string, config *ToolConfig) {
	r.loop.ConfigureTool(name, config)
}

// Tools returns every tool currently registered, for introspection by a
// `tools list` CLI subcommand or admin surface.
func (r *Runtime) Tools() []Tool {
	return r.tools.AsLLMTools()
}

// Process runs the agentic loop for one inbound message on session, holding
// a per-session lock so concurrent messages on the same session serialize.
func (r *Runtime) Process(ctx context.Context, session *models.Session, msg *models.Message) (<-chan *ResponseChunk, error) {
	unlock := r.lockSession(session.ID)
	chunks, err := r.loop.Run(ctx, session, msg)
	if err != nil {
		unlock()
		return nil, err
	}
	out := make(chan *ResponseChunk, processBufferSize)
	go func() {
		defer close(out)
		defer unlock()
		for c := range chunks {
			out <- c
		}
	}()
	return out, nil
}

// ExecutorMetrics returns a snapshot of the underlying tool executor's
// metrics.
func (r *Runtime) ExecutorMetrics() *ExecutorMetricsSnapshot {
	return r.loop.executor.Metrics()
}

// toolExecOverrides resolves the per-call ToolExecConfig a tool should run
// with, derived from RuntimeOptions. There is currently no per-tool table;
// every tool shares the runtime-wide parallelism/timeout/retry settings.
func (r *Runtime) toolExecOverrides(name string) ToolExecConfig {
	cfg := DefaultToolExecConfig()
	if r.opts.ToolParallelism > 0 {
		cfg.Concurrency = r.opts.ToolParallelism
	}
	if r.opts.ToolTimeout > 0 {
		cfg.PerToolTimeout = r.opts.ToolTimeout
	}
	if r.opts.ToolMaxAttempts > 0 {
		cfg.MaxAttempts = r.opts.ToolMaxAttempts
	}
	if r.opts.ToolRetryBackoff > 0 {
		cfg.RetryBackoff = r.opts.ToolRetryBackoff
	}
	return cfg
}
