package pipeline

import (
	"context"
	"testing"

	"github.com/astrarelay/astra/internal/hooks"
	"github.com/astrarelay/astra/pkg/models"
)

func TestProcessDispatchStopsOnCommandMatch(t *testing.T) {
	registry := hooks.NewRegistry(nil)
	reply := models.NewEventResult(models.NewChain(models.Text{Content: "pong"}))
	handler := func(ctx context.Context, event *models.InboundEvent) (*models.EventResult, error) {
		return reply, nil
	}
	if err := registry.Register(models.HandlerMetadata{EventKind: KindCommand, Name: "plugin.ping"}, handler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	stage := NewProcessDispatch(registry)
	event := testEvent("s")
	event.IsWake = true

	if _, err := stage.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !event.IsStopped() {
		t.Fatal("expected propagation to stop once a command handler matches")
	}
	if event.Result() != reply {
		t.Fatal("expected the handler's result to be set on the event")
	}
}

func TestProcessDispatchFallsThroughWhenNoHandlerMatches(t *testing.T) {
	registry := hooks.NewRegistry(nil)
	stage := NewProcessDispatch(registry)
	event := testEvent("s")
	event.IsWake = true

	if _, err := stage.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if event.IsStopped() {
		t.Fatal("expected propagation to continue to the LLM-request stage")
	}
}

func TestProcessDispatchSkippedWithoutWake(t *testing.T) {
	registry := hooks.NewRegistry(nil)
	called := false
	handler := func(ctx context.Context, event *models.InboundEvent) (*models.EventResult, error) {
		called = true
		return models.NewEventResult(nil), nil
	}
	_ = registry.Register(models.HandlerMetadata{EventKind: KindCommand, Name: "plugin.ping"}, handler)

	stage := NewProcessDispatch(registry)
	event := testEvent("s") // IsWake left false

	if _, err := stage.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if called {
		t.Fatal("expected no handler dispatch when the event hasn't woken the bot")
	}
}
