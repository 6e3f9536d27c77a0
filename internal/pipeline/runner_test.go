package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/astrarelay/astra/internal/channels"
	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/pkg/models"
)

// stopAndSetResultStage sets a reply chain and immediately stops
// propagation, simulating a content-producing stage that ends the fixed
// stage order early (e.g. a matched command handler).
type stopAndSetResultStage struct {
	content string
}

func (s *stopAndSetResultStage) Name() string { return "stop-and-set-result" }

func (s *stopAndSetResultStage) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	event.SetResult(models.NewEventResult(models.NewChain(models.Text{Content: s.content})))
	event.Stop()
	return nil, nil
}

// neverRunStage fails the test if it runs; it stands in for every stage
// after the one that calls event.Stop().
type neverRunStage struct {
	t *testing.T
}

func (s *neverRunStage) Name() string { return "never-run" }

func (s *neverRunStage) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	s.t.Fatal("stage after Stop() should not run")
	return nil, nil
}

func TestPipelineRunnerSendsAfterEarlyStop(t *testing.T) {
	registry := channels.NewRegistry()
	adapter := &fakeOutboundAdapter{id: "cli"}
	registry.Register(adapter)

	scheduler := NewScheduler(&stopAndSetResultStage{content: "handled"}, &neverRunStage{t: t})
	respond := NewRespond(registry, nil, &config.ReplyConfig{}, nil)
	runner := NewPipelineRunner(scheduler, respond)

	event := testEvent("s")
	event.Platform = "cli"

	if err := runner.Run(context.Background(), event); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if adapter.sentCount() != 1 {
		t.Fatalf("expected Respond to deliver the result despite the early stop, got %d sends", adapter.sentCount())
	}
	if !event.HasSent() {
		t.Fatal("expected event to be marked sent")
	}
}

func TestPipelineRunnerSkipsRespondOnStageError(t *testing.T) {
	registry := channels.NewRegistry()
	adapter := &fakeOutboundAdapter{id: "cli"}
	registry.Register(adapter)

	scheduler := NewScheduler(&erroringStage{})
	respond := NewRespond(registry, nil, &config.ReplyConfig{}, nil)
	runner := NewPipelineRunner(scheduler, respond)

	event := testEvent("s")
	event.Platform = "cli"

	if err := runner.Run(context.Background(), event); err == nil {
		t.Fatal("expected Run() to propagate the stage error")
	}
	if adapter.sentCount() != 0 {
		t.Fatalf("expected no send when a stage errors, got %d", adapter.sentCount())
	}
}

type erroringStage struct{}

func (s *erroringStage) Name() string { return "erroring" }

func (s *erroringStage) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	return nil, errors.New("stage failed")
}
