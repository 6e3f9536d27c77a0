package pipeline

import (
	"context"
	"testing"

	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/pkg/models"
)

func TestPermissionGateDropsWithoutWakeWhenRequired(t *testing.T) {
	stage := NewPermissionGate(&config.PipelineConfig{RequireAtOrWake: true})
	event := testEvent("s")

	if _, err := stage.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !event.IsStopped() {
		t.Fatal("expected event to be stopped when wake is required but absent")
	}
}

func TestPermissionGateAllowsWakeCommand(t *testing.T) {
	stage := NewPermissionGate(&config.PipelineConfig{RequireAtOrWake: true})
	event := testEvent("s")
	event.IsAtOrWakeCommand = true

	if _, err := stage.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if event.IsStopped() {
		t.Fatal("expected event to proceed when wake command is present")
	}
}

func TestPermissionGateNoOpWhenNotRequired(t *testing.T) {
	stage := NewPermissionGate(&config.PipelineConfig{})
	event := testEvent("s")

	if _, err := stage.Process(context.Background(), event); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if event.IsStopped() {
		t.Fatal("expected event to proceed when wake isn't required")
	}
}
