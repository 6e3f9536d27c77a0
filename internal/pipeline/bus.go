package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/astrarelay/astra/pkg/models"
)

// DefaultQueueSize is the event bus's default capacity (§4.1).
const DefaultQueueSize = 32

// Runner runs one pipeline invocation for an event. Bus depends on this
// narrow interface, not *Scheduler directly, so tests can substitute a
// stub runner without building a full stage chain.
type Runner interface {
	Run(ctx context.Context, event *models.InboundEvent) error
}

// Bus is the bounded FIFO queue of inbound events (§4.1). A single
// dispatcher loop removes one event at a time and spawns a concurrent task
// to run the pipeline for it; the dispatcher never awaits that task, and a
// panic or error inside it is contained so the dispatcher keeps running.
type Bus struct {
	queue  chan *models.InboundEvent
	runner Runner
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewBus creates a Bus with the given capacity (0 uses DefaultQueueSize).
func NewBus(capacity int, runner Runner, logger *slog.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		queue:  make(chan *models.InboundEvent, capacity),
		runner: runner,
		logger: logger,
	}
}

// Push enqueues event, blocking if the queue is full (backpressure) until
// either there is room or ctx is cancelled.
func (b *Bus) Push(ctx context.Context, event *models.InboundEvent) error {
	select {
	case b.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the dispatcher loop: it removes events in FIFO order and spawns a
// pipeline task per event, until ctx is cancelled. It blocks until every
// spawned task has finished draining (callers that want shutdown to wait
// for in-flight pipeline runs should call Run from a goroutine and then
// cancel ctx before returning).
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return
		case event := <-b.queue:
			b.logOutline(event)
			b.wg.Add(1)
			go func(e *models.InboundEvent) {
				defer b.wg.Done()
				b.runContained(ctx, e)
			}(event)
		}
	}
}

// Wait blocks until every spawned pipeline task has completed. Used by the
// lifecycle coordinator to drain outstanding work before registry mutation
// (§5 Shared-resource policy).
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) runContained(ctx context.Context, event *models.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("pipeline run panicked", "platform", event.Platform, "recover", fmt.Sprint(r))
		}
	}()
	if err := b.runner.Run(ctx, event); err != nil {
		b.logger.Error("pipeline run failed", "platform", event.Platform, "session_id", event.SessionID, "error", err)
	}
}

func (b *Bus) logOutline(event *models.InboundEvent) {
	preview := event.PlainText
	const maxPreview = 80
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "…"
	}
	preview = strings.ReplaceAll(preview, "\n", " ")
	b.logger.Info(fmt.Sprintf("[%s] %s: %s", event.Platform, senderLabel(event.Sender), preview))
}

func senderLabel(sender models.Sender) string {
	if sender.Nickname != "" {
		return sender.Nickname
	}
	return sender.ID
}
