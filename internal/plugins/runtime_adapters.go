package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/astrarelay/astra/internal/agent"
	"github.com/astrarelay/astra/internal/channels"
	"github.com/astrarelay/astra/internal/hooks"
	"github.com/astrarelay/astra/pkg/models"
	"github.com/astrarelay/astra/pkg/pluginsdk"
	"github.com/spf13/cobra"
)

const (
	capabilityChannelPrefix = "channel:"
	capabilityToolPrefix    = "tool:"
	capabilityCLIPrefix     = "cli:"
	capabilityServicePrefix = "service:"
	capabilityHookPrefix    = "hook:"
)

// capabilityGate enforces a plugin's declared Capabilities.Required list
// against the registration calls it actually makes. A nil gate (manifest
// had no Capabilities block) leaves the plugin unrestricted.
type capabilityGate struct {
	pluginID string
	required []string
}

func newCapabilityGate(pluginID string, manifest *pluginsdk.Manifest) *capabilityGate {
	if manifest == nil || manifest.Capabilities == nil {
		return nil
	}
	required := manifest.Capabilities.Required
	if len(required) == 0 {
		return nil
	}
	return &capabilityGate{pluginID: pluginID, required: required}
}

func (g *capabilityGate) require(capability string) error {
	if g == nil {
		return nil
	}
	capability = strings.TrimSpace(capability)
	for _, allowed := range g.required {
		if pluginsdk.CapabilityMatches(allowed, capability) {
			return nil
		}
	}
	return fmt.Errorf("plugin %q missing capability %q", g.pluginID, capability)
}

func channelCapability(channel models.ChannelType) string { return capabilityChannelPrefix + string(channel) }
func toolCapability(name string) string                   { return capabilityToolPrefix + strings.TrimSpace(name) }
func serviceCapability(id string) string                  { return capabilityServicePrefix + strings.TrimSpace(id) }
func hookCapability(eventType string) string              { return capabilityHookPrefix + strings.TrimSpace(eventType) }

// =============================================================================
// Channel registry
// =============================================================================

// runtimeChannelRegistry adapts the pipeline's channel registry for plugin
// registration, gating each registration by the plugin's manifest allowlist
// and declared capabilities.
type runtimeChannelRegistry struct {
	registry     *channels.Registry
	pluginID     string
	allowed      map[string]struct{}
	capabilities *capabilityGate
}

func (r *runtimeChannelRegistry) RegisterChannel(adapter pluginsdk.ChannelAdapter) error {
	if r.registry == nil {
		return fmt.Errorf("channel registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("plugin adapter is nil")
	}
	channelID := string(adapter.Type())
	if len(r.allowed) > 0 {
		if _, ok := r.allowed[channelID]; !ok {
			return fmt.Errorf("plugin %q attempted to register undeclared channel %q", r.pluginID, channelID)
		}
	}
	if err := r.capabilities.require(channelCapability(adapter.Type())); err != nil {
		return err
	}
	r.registry.Register(newPluginChannelAdapter(adapter))
	return nil
}

// pluginChannelAdapter wraps a pluginsdk.ChannelAdapter (keyed on
// models.ChannelType, the agent runtime's chat model) so it can sit in the
// pipeline's channels.Registry (keyed on models.PlatformID). Optional
// pluginsdk sub-interfaces are bridged to their channels.* counterparts
// when the plugin implements them; otherwise the corresponding
// channels.Registry capability is simply absent.
type pluginChannelAdapter struct {
	adapter pluginsdk.ChannelAdapter

	eventsOnce sync.Once
	events     chan *models.InboundEvent
}

func newPluginChannelAdapter(adapter pluginsdk.ChannelAdapter) *pluginChannelAdapter {
	return &pluginChannelAdapter{adapter: adapter}
}

func (p *pluginChannelAdapter) Name() string { return string(p.adapter.Type()) }

func (p *pluginChannelAdapter) ID() models.PlatformID { return models.PlatformID(p.adapter.Type()) }

func (p *pluginChannelAdapter) Meta() models.PlatformMeta {
	return models.PlatformMeta{Name: string(p.adapter.Type())}
}

func (p *pluginChannelAdapter) Run(ctx context.Context) error {
	if lifecycle, ok := p.adapter.(pluginsdk.LifecycleAdapter); ok {
		return lifecycle.Start(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *pluginChannelAdapter) Terminate(ctx context.Context) error {
	if lifecycle, ok := p.adapter.(pluginsdk.LifecycleAdapter); ok {
		return lifecycle.Stop(ctx)
	}
	return nil
}

func (p *pluginChannelAdapter) Send(ctx context.Context, sessionID string, chain *models.MessageChain) error {
	outbound, ok := p.adapter.(pluginsdk.OutboundAdapter)
	if !ok {
		return fmt.Errorf("channel %q does not support outbound delivery", p.adapter.Type())
	}
	msg := &models.Message{
		SessionID: sessionID,
		Channel:   p.adapter.Type(),
		Direction: models.DirectionOutbound,
		Role:      models.RoleAssistant,
		Content:   chain.PlainText(),
	}
	return outbound.Send(ctx, msg)
}

func (p *pluginChannelAdapter) Events() <-chan *models.InboundEvent {
	p.eventsOnce.Do(func() {
		p.events = make(chan *models.InboundEvent)
		inbound, ok := p.adapter.(pluginsdk.InboundAdapter)
		if !ok {
			close(p.events)
			return
		}
		go func() {
			defer close(p.events)
			for msg := range inbound.Messages() {
				p.events <- pluginMessageToEvent(p.adapter.Type(), msg)
			}
		}()
	})
	return p.events
}

func pluginMessageToEvent(channel models.ChannelType, msg *models.Message) *models.InboundEvent {
	chain := models.NewChain(models.Text{Content: msg.Content})
	return models.NewInboundEvent(string(channel), "message", msg.SessionID, models.Sender{ID: msg.ChannelID}, chain)
}

func (p *pluginChannelAdapter) Status() channels.Status {
	health, ok := p.adapter.(pluginsdk.HealthAdapter)
	if !ok {
		return channels.Status{}
	}
	status := health.Status()
	return channels.Status{Connected: status.Connected, Error: status.Error, LastPing: status.LastPing}
}

func (p *pluginChannelAdapter) HealthCheck(ctx context.Context) channels.HealthStatus {
	health, ok := p.adapter.(pluginsdk.HealthAdapter)
	if !ok {
		return channels.HealthStatus{}
	}
	result := health.HealthCheck(ctx)
	return channels.HealthStatus{
		Healthy:   result.Healthy,
		Latency:   result.Latency,
		Message:   result.Message,
		LastCheck: result.LastCheck,
		Degraded:  result.Degraded,
	}
}

func (p *pluginChannelAdapter) Metrics() channels.MetricsSnapshot {
	return channels.MetricsSnapshot{PlatformID: models.PlatformID(p.adapter.Type())}
}

// =============================================================================
// Tool registry
// =============================================================================

// runtimeToolRegistry adapts an agent.Runtime for plugin tool registration.
type runtimeToolRegistry struct {
	runtime      *agent.Runtime
	pluginID     string
	allowed      map[string]struct{}
	capabilities *capabilityGate
}

func (r *runtimeToolRegistry) RegisterTool(def pluginsdk.ToolDefinition, handler pluginsdk.ToolHandler) error {
	if r.runtime == nil {
		return fmt.Errorf("runtime is nil")
	}
	if handler == nil {
		return fmt.Errorf("tool handler is nil")
	}
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if len(r.allowed) > 0 {
		if _, ok := r.allowed[def.Name]; !ok {
			return fmt.Errorf("plugin %q attempted to register undeclared tool %q", r.pluginID, def.Name)
		}
	}
	if err := r.capabilities.require(toolCapability(def.Name)); err != nil {
		return err
	}
	r.runtime.RegisterTool(&pluginTool{definition: def, handler: handler})
	return nil
}

type pluginTool struct {
	definition pluginsdk.ToolDefinition
	handler    pluginsdk.ToolHandler
}

func (t *pluginTool) Name() string               { return t.definition.Name }
func (t *pluginTool) Description() string        { return t.definition.Description }
func (t *pluginTool) Schema() json.RawMessage    { return t.definition.Schema }

func (t *pluginTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	result, err := t.handler(ctx, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &agent.ToolResult{}, nil
	}
	return &agent.ToolResult{Content: result.Content, IsError: result.IsError}, nil
}

// =============================================================================
// CLI registry
// =============================================================================

// runtimeCLIRegistry adapts a cobra root command for plugin CLI registration.
type runtimeCLIRegistry struct {
	rootCmd      *cobra.Command
	pluginID     string
	allowed      map[string]struct{}
	capabilities *capabilityGate
}

func (r *runtimeCLIRegistry) RegisterCommand(cmd *pluginsdk.CLICommand) error {
	return r.register("", cmd)
}

func (r *runtimeCLIRegistry) RegisterSubcommand(parent string, cmd *pluginsdk.CLICommand) error {
	return r.register(parent, cmd)
}

func (r *runtimeCLIRegistry) register(parent string, cmd *pluginsdk.CLICommand) error {
	if r.rootCmd == nil {
		return fmt.Errorf("CLI root command is nil")
	}
	if cmd == nil {
		return fmt.Errorf("CLI command is nil")
	}

	parentCmd := r.rootCmd
	canonicalParent := ""
	if parent != "" {
		parentCmd = findCommand(r.rootCmd, parent)
		if parentCmd == nil {
			return fmt.Errorf("parent command %q not found", parent)
		}
		canonicalParent = strings.Join(splitCommandPath(parent), ".")
	}

	paths, err := cliCommandPaths(canonicalParent, cmd)
	if err != nil {
		return err
	}
	if err := validateCLICapabilities(r.capabilities, paths); err != nil {
		return err
	}
	if len(r.allowed) > 0 {
		for _, path := range paths {
			if _, ok := r.allowed[path]; !ok {
				return fmt.Errorf("plugin %q attempted to register undeclared CLI command %q", r.pluginID, path)
			}
		}
	}

	if existing := findCommand(r.rootCmd, paths[0]); existing != nil {
		return fmt.Errorf("CLI command %q already exists", paths[0])
	}

	parentCmd.AddCommand(convertCLICommand(cmd))
	return nil
}

func validateCLICapabilities(gate *capabilityGate, paths []string) error {
	if gate == nil {
		return nil
	}
	for _, path := range paths {
		if err := gate.require(capabilityCLIPrefix + path); err != nil {
			return err
		}
	}
	return nil
}

func convertCLICommand(cmd *pluginsdk.CLICommand) *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:     cmd.Use,
		Short:   cmd.Short,
		Long:    cmd.Long,
		Example: cmd.Example,
		Args:    cmd.Args,
	}
	if cmd.Run != nil {
		cobraCmd.RunE = cmd.Run
	}
	if cmd.Flags != nil {
		cmd.Flags(cobraCmd)
	}
	for _, sub := range cmd.Subcommands {
		cobraCmd.AddCommand(convertCLICommand(sub))
	}
	return cobraCmd
}

func findCommand(root *cobra.Command, path string) *cobra.Command {
	if path == "" {
		return root
	}
	current := root
	for _, part := range splitCommandPath(path) {
		found := false
		for _, child := range current.Commands() {
			if child.Name() == part {
				current = child
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return current
}

func splitCommandPath(path string) []string {
	var parts []string
	current := ""
	for _, c := range path {
		if c == '.' || c == '/' {
			if current != "" {
				parts = append(parts, current)
				current = ""
			}
			continue
		}
		current += string(c)
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

func commandNameFromUse(use string) string {
	fields := strings.Fields(use)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func cliCommandPaths(prefix string, cmd *pluginsdk.CLICommand) ([]string, error) {
	var paths []string
	seen := make(map[string]struct{})

	var walk func(prefix string, cmd *pluginsdk.CLICommand) error
	walk = func(prefix string, cmd *pluginsdk.CLICommand) error {
		if cmd == nil {
			return nil
		}
		name := commandNameFromUse(cmd.Use)
		if name == "" {
			return fmt.Errorf("command name is required")
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if _, ok := seen[path]; ok {
			return fmt.Errorf("duplicate CLI command %q", path)
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
		for _, sub := range cmd.Subcommands {
			if err := walk(path, sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(prefix, cmd); err != nil {
		return nil, err
	}
	return paths, nil
}

// =============================================================================
// Service registry
// =============================================================================

type pluginService struct {
	def      *pluginsdk.Service
	pluginID string
	running  bool
}

// ServiceManager runs background services registered by plugins.
type ServiceManager struct {
	mu       sync.Mutex
	services []*pluginService
	logger   *slog.Logger
}

// NewServiceManager creates a service manager. logger may be nil.
func NewServiceManager(logger *slog.Logger) *ServiceManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceManager{logger: logger.With("component", "service-manager")}
}

// StartAll starts every registered service, logging (but not failing on)
// individual start errors so one misbehaving plugin doesn't block the rest.
func (m *ServiceManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, svc := range m.services {
		if svc.running {
			continue
		}
		if err := svc.def.Start(ctx); err != nil {
			m.logger.Error("failed to start service", "service_id", svc.def.ID, "plugin_id", svc.pluginID, "error", err)
			continue
		}
		svc.running = true
		m.logger.Info("started service", "service_id", svc.def.ID, "plugin_id", svc.pluginID)
	}
	return nil
}

// StopAll stops every running service in reverse start order.
func (m *ServiceManager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.services) - 1; i >= 0; i-- {
		svc := m.services[i]
		if !svc.running {
			continue
		}
		if err := svc.def.Stop(ctx); err != nil {
			m.logger.Error("failed to stop service", "service_id", svc.def.ID, "plugin_id", svc.pluginID, "error", err)
			continue
		}
		svc.running = false
		m.logger.Info("stopped service", "service_id", svc.def.ID, "plugin_id", svc.pluginID)
	}
	return nil
}

// HealthCheck runs every running service's health check, keyed by service ID.
func (m *ServiceManager) HealthCheck(ctx context.Context) map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make(map[string]error)
	for _, svc := range m.services {
		if !svc.running || svc.def.HealthCheck == nil {
			continue
		}
		results[svc.def.ID] = svc.def.HealthCheck(ctx)
	}
	return results
}

// Services returns the definitions of every registered service.
func (m *ServiceManager) Services() []*pluginsdk.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*pluginsdk.Service, len(m.services))
	for i, svc := range m.services {
		result[i] = svc.def
	}
	return result
}

type runtimeServiceRegistry struct {
	manager      *ServiceManager
	pluginID     string
	allowed      map[string]struct{}
	capabilities *capabilityGate
}

func (r *runtimeServiceRegistry) RegisterService(svc *pluginsdk.Service) error {
	if r.manager == nil {
		return fmt.Errorf("service manager is nil")
	}
	if svc == nil {
		return fmt.Errorf("service is nil")
	}
	if svc.ID == "" {
		return fmt.Errorf("service ID is required")
	}
	if len(r.allowed) > 0 {
		if _, ok := r.allowed[svc.ID]; !ok {
			return fmt.Errorf("plugin %q attempted to register undeclared service %q", r.pluginID, svc.ID)
		}
	}
	if err := r.capabilities.require(serviceCapability(svc.ID)); err != nil {
		return err
	}
	if svc.Start == nil || svc.Stop == nil {
		return fmt.Errorf("service %q must define both Start and Stop", svc.ID)
	}

	svcCopy := *svc
	r.manager.mu.Lock()
	r.manager.services = append(r.manager.services, &pluginService{def: &svcCopy, pluginID: r.pluginID})
	r.manager.mu.Unlock()
	return nil
}

// =============================================================================
// Hook registry
// =============================================================================

// runtimeHookRegistry adapts the pipeline's hooks.Registry for plugin hook
// registration.
type runtimeHookRegistry struct {
	registry     *hooks.Registry
	pluginID     string
	allowed      map[string]struct{}
	capabilities *capabilityGate
}

func (r *runtimeHookRegistry) RegisterHook(reg *pluginsdk.HookRegistration) error {
	if r.registry == nil {
		return fmt.Errorf("hook registry is nil")
	}
	if reg == nil {
		return fmt.Errorf("hook registration is nil")
	}
	if reg.EventType == "" {
		return fmt.Errorf("event type is required")
	}
	if len(r.allowed) > 0 {
		if _, ok := r.allowed[reg.EventType]; !ok {
			return fmt.Errorf("plugin %q attempted to register undeclared hook %q", r.pluginID, reg.EventType)
		}
	}
	if err := r.capabilities.require(hookCapability(reg.EventType)); err != nil {
		return err
	}
	return r.registry.RegisterHook(r.pluginID, reg)
}

// =============================================================================
// Plugin logger
// =============================================================================

// pluginLoggerAdapter adapts *slog.Logger to pluginsdk.PluginLogger.
type pluginLoggerAdapter struct {
	logger *slog.Logger
}

func (l *pluginLoggerAdapter) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *pluginLoggerAdapter) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *pluginLoggerAdapter) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *pluginLoggerAdapter) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
