package pipeline

import (
	"context"

	"github.com/astrarelay/astra/pkg/models"
)

// PipelineRunner adapts a Scheduler and a Respond action into the Bus's
// Runner contract. Respond always runs after the scheduler, regardless of
// whether propagation stopped partway through the fixed stage order — see
// Respond's doc comment for why it sits outside the stop-discard path.
type PipelineRunner struct {
	scheduler *Scheduler
	respond   *Respond
}

// NewPipelineRunner composes scheduler's stages with a terminal Respond.
func NewPipelineRunner(scheduler *Scheduler, respond *Respond) *PipelineRunner {
	return &PipelineRunner{scheduler: scheduler, respond: respond}
}

// Run executes the fixed-order stages then delivers whatever result they
// left behind, satisfying Bus's Runner interface.
func (r *PipelineRunner) Run(ctx context.Context, event *models.InboundEvent) error {
	if err := r.scheduler.Run(ctx, event); err != nil {
		return err
	}
	if r.respond == nil {
		return nil
	}
	return r.respond.Send(ctx, event)
}
