package channels

import (
	"context"
	"sync"
	"time"

	"github.com/astrarelay/astra/pkg/models"
)

// Adapter is the minimal contract for a platform connector (§6 Platform
// adapter contract).
type Adapter interface {
	Name() string
	ID() models.PlatformID
	Meta() models.PlatformMeta
}

// LifecycleAdapter represents adapters with a long-running inbound loop.
type LifecycleAdapter interface {
	Run(ctx context.Context) error
	Terminate(ctx context.Context) error
}

// OutboundAdapter represents adapters that can deliver a message chain to a
// session.
type OutboundAdapter interface {
	Send(ctx context.Context, sessionID string, chain *models.MessageChain) error
}

// StreamingAdapter represents adapters that can incrementally deliver a
// streamed response, falling back to a single Send of fallback if the
// platform has no native streaming support.
type StreamingAdapter interface {
	SendStreaming(ctx context.Context, sessionID string, stream <-chan *models.MessageChain, fallback *models.MessageChain) error
}

// InboundAdapter represents adapters that emit inbound events.
type InboundAdapter interface {
	Events() <-chan *models.InboundEvent
}

// HealthAdapter represents adapters that expose status and metrics.
type HealthAdapter interface {
	Status() Status
	HealthCheck(ctx context.Context) HealthStatus
	Metrics() MetricsSnapshot
}

// FullAdapter aggregates all adapter capabilities for convenience.
type FullAdapter interface {
	Adapter
	LifecycleAdapter
	OutboundAdapter
	StreamingAdapter
	InboundAdapter
	HealthAdapter
}

// Status represents the connection status of a platform adapter.
type Status struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
	LastPing  int64  `json:"last_ping,omitempty"`
}

// HealthStatus represents the health check result for an adapter.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	Message   string        `json:"message,omitempty"`
	LastCheck time.Time     `json:"last_check"`
	Degraded  bool          `json:"degraded,omitempty"`
}

// Registry manages the set of running platform adapters.
type Registry struct {
	adapters  map[models.PlatformID]Adapter
	inbound   map[models.PlatformID]InboundAdapter
	outbound  map[models.PlatformID]OutboundAdapter
	lifecycle map[models.PlatformID]LifecycleAdapter
	health    map[models.PlatformID]HealthAdapter
}

// NewRegistry creates a new platform adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters:  make(map[models.PlatformID]Adapter),
		inbound:   make(map[models.PlatformID]InboundAdapter),
		outbound:  make(map[models.PlatformID]OutboundAdapter),
		lifecycle: make(map[models.PlatformID]LifecycleAdapter),
		health:    make(map[models.PlatformID]HealthAdapter),
	}
}

// Register adds an adapter to the registry, indexing it under every
// capability interface it satisfies.
func (r *Registry) Register(adapter Adapter) {
	id := adapter.ID()
	r.adapters[id] = adapter

	if inbound, ok := adapter.(InboundAdapter); ok {
		r.inbound[id] = inbound
	} else {
		delete(r.inbound, id)
	}

	if outbound, ok := adapter.(OutboundAdapter); ok {
		r.outbound[id] = outbound
	} else {
		delete(r.outbound, id)
	}

	if lifecycle, ok := adapter.(LifecycleAdapter); ok {
		r.lifecycle[id] = lifecycle
	} else {
		delete(r.lifecycle, id)
	}

	if health, ok := adapter.(HealthAdapter); ok {
		r.health[id] = health
	} else {
		delete(r.health, id)
	}
}

// Get returns an adapter by id.
func (r *Registry) Get(id models.PlatformID) (Adapter, bool) {
	adapter, ok := r.adapters[id]
	return adapter, ok
}

// GetOutbound returns the adapter able to send messages for id.
func (r *Registry) GetOutbound(id models.PlatformID) (OutboundAdapter, bool) {
	adapter, ok := r.outbound[id]
	return adapter, ok
}

// HealthAdapters returns a copy of registered health adapters.
func (r *Registry) HealthAdapters() map[models.PlatformID]HealthAdapter {
	out := make(map[models.PlatformID]HealthAdapter, len(r.health))
	for id, adapter := range r.health {
		out[id] = adapter
	}
	return out
}

// All returns all registered adapters.
func (r *Registry) All() []Adapter {
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	return adapters
}

// StartAll runs every lifecycle-capable adapter's Run loop in its own
// goroutine and returns once all have been launched; it does not block on
// their completion.
func (r *Registry) StartAll(ctx context.Context) <-chan error {
	errs := make(chan error, len(r.lifecycle))
	var wg sync.WaitGroup
	for _, adapter := range r.lifecycle {
		wg.Add(1)
		go func(a LifecycleAdapter) {
			defer wg.Done()
			if err := a.Run(ctx); err != nil {
				errs <- err
			}
		}(adapter)
	}
	go func() {
		wg.Wait()
		close(errs)
	}()
	return errs
}

// StopAll terminates all registered adapters.
func (r *Registry) StopAll(ctx context.Context) error {
	var lastErr error
	for _, adapter := range r.lifecycle {
		if err := adapter.Terminate(ctx); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// AggregateEvents returns a channel that receives inbound events from every
// registered adapter. It closes once ctx is cancelled or every adapter's
// event channel closes.
func (r *Registry) AggregateEvents(ctx context.Context) <-chan *models.InboundEvent {
	out := make(chan *models.InboundEvent)
	var wg sync.WaitGroup

	for _, adapter := range r.inbound {
		wg.Add(1)
		go func(a InboundAdapter) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt, ok := <-a.Events():
					if !ok {
						return
					}
					select {
					case out <- evt:
					case <-ctx.Done():
						return
					}
				}
			}
		}(adapter)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
