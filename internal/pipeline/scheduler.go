// Package pipeline implements the event pipeline (§4.1, §4.2): the bounded
// event bus and dispatcher, the onion-model stage scheduler, and the
// concrete stages in the fixed order from §6.
package pipeline

import (
	"context"
	"fmt"

	"github.com/astrarelay/astra/pkg/models"
)

// Stage is one link in the fixed-order pipeline (§6). Process may return a
// non-nil resume function to request the onion-model suspension described
// in §4.2/§9: the scheduler runs every later stage first, then invokes
// resume for this stage's post-processing. A nil resume means the stage is
// terminal for this event; the next stage runs immediately after Process
// returns.
type Stage interface {
	Name() string
	Process(ctx context.Context, event *models.InboundEvent) (resume func(ctx context.Context) error, err error)
}

// Scheduler runs an ordered list of Stages against one event, implementing
// the onion-model executor (§4.2, §9).
type Scheduler struct {
	stages []Stage
}

// NewScheduler creates a Scheduler that runs stages in the given order.
func NewScheduler(stages ...Stage) *Scheduler {
	return &Scheduler{stages: stages}
}

// Run drives the pipeline for event, starting at the first stage.
func (s *Scheduler) Run(ctx context.Context, event *models.InboundEvent) error {
	return s.runFrom(ctx, event, 0)
}

// runFrom recurses: it processes stages[idx], and if that stage suspends,
// recurses into stages[idx+1:] before invoking the suspended stage's
// resume. Early termination (§4.2): once event.IsStopped(), no stage after
// the one that stopped is processed, but a pending resume for the
// terminating stage itself still runs for post-processing.
func (s *Scheduler) runFrom(ctx context.Context, event *models.InboundEvent, idx int) error {
	if idx >= len(s.stages) {
		return nil
	}

	stage := s.stages[idx]
	resume, err := stage.Process(ctx, event)
	if err != nil {
		return fmt.Errorf("stage %s: %w", stage.Name(), err)
	}

	if event.IsStopped() {
		if resume != nil {
			return resume(ctx)
		}
		return nil
	}

	if resume == nil {
		return s.runFrom(ctx, event, idx+1)
	}

	if err := s.runFrom(ctx, event, idx+1); err != nil {
		return err
	}
	return resume(ctx)
}
