// Package hooks implements the Handler Registry (§4.3): the index of
// plugin-provided handlers the event pipeline consults during dispatch, and
// a generic priority-ordered hook sink plugins can register ad-hoc
// lifecycle callbacks into.
package hooks

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/astrarelay/astra/pkg/models"
	"github.com/astrarelay/astra/pkg/pluginsdk"
)

// Handler processes one inbound event during the process-dispatch stage
// (§4.2). A nil result with a nil error means the handler declined to
// produce output; the pipeline continues to the next matching handler.
type Handler func(ctx context.Context, event *models.InboundEvent) (*models.EventResult, error)

type registration struct {
	meta    models.HandlerMetadata
	handler Handler
}

// Registry indexes handlers by event kind and by owning plugin path, and
// gates dispatch by the platform-enable map (§4.3: platform-id ->
// {plugin-name -> bool}, a plugin with no entry is enabled).
type Registry struct {
	mu     sync.RWMutex
	logger *slog.Logger

	byKind map[string][]*registration
	byPath map[string][]*registration

	platformEnable map[string]map[string]bool

	pluginHooks map[string][]*pluginsdk.HookRegistration
}

// NewRegistry creates an empty Handler Registry. logger may be nil.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:         logger,
		byKind:         make(map[string][]*registration),
		byPath:         make(map[string][]*registration),
		platformEnable: make(map[string]map[string]bool),
		pluginHooks:    make(map[string][]*pluginsdk.HookRegistration),
	}
}

// Register adds a handler under meta.EventKind, keeping each kind's list
// sorted by descending priority.
func (r *Registry) Register(meta models.HandlerMetadata, handler Handler) error {
	if handler == nil {
		return errRequired("handler")
	}
	if meta.EventKind == "" {
		return errRequired("meta.EventKind")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reg := &registration{meta: meta, handler: handler}
	r.byKind[meta.EventKind] = insertByPriority(r.byKind[meta.EventKind], reg)
	if meta.PluginPath != "" {
		r.byPath[meta.PluginPath] = append(r.byPath[meta.PluginPath], reg)
	}
	r.logger.Debug("handler registered", "event_kind", meta.EventKind, "name", meta.Name, "priority", meta.Priority)
	return nil
}

// Unregister removes every handler owned by pluginPath, used when a plugin
// is reloaded or terminated.
func (r *Registry) Unregister(pluginPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.byPath[pluginPath]
	delete(r.byPath, pluginPath)
	delete(r.pluginHooks, pluginPath)
	if len(removed) == 0 {
		return
	}
	removedSet := make(map[*registration]struct{}, len(removed))
	for _, reg := range removed {
		removedSet[reg] = struct{}{}
	}
	for kind, regs := range r.byKind {
		filtered := regs[:0:0]
		for _, reg := range regs {
			if _, gone := removedSet[reg]; !gone {
				filtered = append(filtered, reg)
			}
		}
		r.byKind[kind] = filtered
	}
}

// SetPlatformEnable records whether pluginName's handlers run on platform.
// Called from configuration load; absent entries default to enabled.
func (r *Registry) SetPlatformEnable(platform string, pluginName string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.platformEnable[platform] == nil {
		r.platformEnable[platform] = make(map[string]bool)
	}
	r.platformEnable[platform][pluginName] = enabled
}

func (r *Registry) enabledOn(platform string, pluginName string) bool {
	byPlugin, ok := r.platformEnable[platform]
	if !ok {
		return true
	}
	enabled, ok := byPlugin[pluginName]
	if !ok {
		return true
	}
	return enabled
}

// Dispatch runs every handler registered for eventKind on platform, in
// priority order, skipping handlers disabled for that platform. It stops
// at the first handler that returns a non-nil result, mirroring the
// process-dispatch stage's "first responder wins" semantics (§4.2).
func (r *Registry) Dispatch(ctx context.Context, platform string, eventKind string, event *models.InboundEvent) (*models.EventResult, error) {
	r.mu.RLock()
	regs := append([]*registration(nil), r.byKind[eventKind]...)
	r.mu.RUnlock()

	for _, reg := range regs {
		pluginName := reg.meta.Name
		if !r.enabledOn(platform, pluginName) {
			continue
		}
		result, err := reg.handler(ctx, event)
		if err != nil {
			r.logger.Error("handler failed", "event_kind", eventKind, "name", pluginName, "error", err)
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
	return nil, nil
}

// CompatibleHandlerNames returns the fully-qualified names of every handler
// registered under one of kinds that is enabled for platform, in the same
// priority order Dispatch would consider them (§4.2 PlatformCompatibility
// stage).
func (r *Registry) CompatibleHandlerNames(platform string, kinds []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, kind := range kinds {
		for _, reg := range r.byKind[kind] {
			if r.enabledOn(platform, reg.meta.Name) {
				names = append(names, reg.meta.Name)
			}
		}
	}
	return names
}

// RegisterHook adds a plugin-SDK hook registration for pluginID, sorted by
// ascending priority (lower runs first, per pluginsdk.HookRegistration).
func (r *Registry) RegisterHook(pluginID string, reg *pluginsdk.HookRegistration) error {
	if reg == nil {
		return errRequired("registration")
	}
	if reg.Handler == nil {
		return errRequired("registration.Handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.pluginHooks[pluginID], reg)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
	r.pluginHooks[pluginID] = list
	return nil
}

// RunHooks invokes every registered hook whose EventType matches, across
// all plugins, in priority order. The first error aborts the run.
func (r *Registry) RunHooks(ctx context.Context, event *pluginsdk.HookEvent) error {
	r.mu.RLock()
	var matched []*pluginsdk.HookRegistration
	for _, list := range r.pluginHooks {
		for _, reg := range list {
			if reg.EventType == event.Type {
				matched = append(matched, reg)
			}
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority < matched[j].Priority })
	for _, reg := range matched {
		if err := reg.Handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func insertByPriority(regs []*registration, reg *registration) []*registration {
	idx := sort.Search(len(regs), func(i int) bool { return regs[i].meta.Priority < reg.meta.Priority })
	regs = append(regs, nil)
	copy(regs[idx+1:], regs[idx:])
	regs[idx] = reg
	return regs
}

func errRequired(field string) error {
	return &requiredFieldError{field: field}
}

type requiredFieldError struct{ field string }

func (e *requiredFieldError) Error() string { return e.field + " is required" }
