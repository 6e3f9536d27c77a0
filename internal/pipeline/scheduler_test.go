package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/astrarelay/astra/pkg/models"
)

type recordingStage struct {
	name    string
	order   *[]string
	suspend bool
	stop    bool
	failErr error
}

func (s *recordingStage) Name() string { return s.name }

func (s *recordingStage) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	*s.order = append(*s.order, s.name)
	if s.failErr != nil {
		return nil, s.failErr
	}
	if s.stop {
		event.Stop()
	}
	if !s.suspend {
		return nil, nil
	}
	return func(context.Context) error {
		*s.order = append(*s.order, s.name+":resume")
		return nil
	}, nil
}

func TestSchedulerRunsStagesInOrder(t *testing.T) {
	var order []string
	sched := NewScheduler(
		&recordingStage{name: "a", order: &order},
		&recordingStage{name: "b", order: &order},
		&recordingStage{name: "c", order: &order},
	)
	if err := sched.Run(context.Background(), testEvent("s")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestSchedulerSuspensionRunsResumeAfterLaterStages(t *testing.T) {
	var order []string
	sched := NewScheduler(
		&recordingStage{name: "a", order: &order, suspend: true},
		&recordingStage{name: "b", order: &order},
	)
	if err := sched.Run(context.Background(), testEvent("s")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"a", "b", "a:resume"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestSchedulerStopDiscardsRemainingStages(t *testing.T) {
	var order []string
	sched := NewScheduler(
		&recordingStage{name: "a", order: &order, stop: true},
		&recordingStage{name: "b", order: &order},
	)
	if err := sched.Run(context.Background(), testEvent("s")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("expected only stage a to run, got %v", order)
	}
}

func TestSchedulerStopStillInvokesPendingResume(t *testing.T) {
	var order []string
	sched := NewScheduler(
		&recordingStage{name: "a", order: &order, suspend: true, stop: true},
		&recordingStage{name: "b", order: &order},
	)
	if err := sched.Run(context.Background(), testEvent("s")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"a", "a:resume"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestSchedulerPropagatesStageError(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	sched := NewScheduler(&recordingStage{name: "a", order: &order, failErr: boom})
	err := sched.Run(context.Background(), testEvent("s"))
	if err == nil {
		t.Fatal("expected an error")
	}
}
