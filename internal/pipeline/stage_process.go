package pipeline

import (
	"context"

	"github.com/astrarelay/astra/internal/hooks"
	"github.com/astrarelay/astra/pkg/models"
)

// Handler-registry event kinds consulted by the Process stage, in order
// (§6 step 5: "dispatches to command, regex-trigger, or LLM-request
// sub-stage"). The first kind to produce a result wins; if neither fires,
// control falls through to the LLM-request stage that follows in the
// scheduler's stage list.
const (
	KindCommand = "command"
	KindRegex   = "regex"
)

// ProcessDispatch tries plugin-contributed command and regex-trigger
// handlers before falling back to the LLM-request stage. It does not itself
// run the LLM request: it only decides whether a handler already produced a
// result, in which case it stops propagation so the LLM stage is skipped.
type ProcessDispatch struct {
	registry *hooks.Registry
}

// NewProcessDispatch creates the stage. A nil registry makes every event
// fall through to the LLM-request stage.
func NewProcessDispatch(registry *hooks.Registry) *ProcessDispatch {
	return &ProcessDispatch{registry: registry}
}

func (s *ProcessDispatch) Name() string { return "process_dispatch" }

func (s *ProcessDispatch) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	if s.registry == nil || !event.IsWake {
		return nil, nil
	}
	for _, kind := range []string{KindCommand, KindRegex} {
		result, err := s.registry.Dispatch(ctx, event.Platform, kind, event)
		if err != nil {
			return nil, err
		}
		if result != nil {
			event.SetResult(result)
			event.Stop()
			return nil, nil
		}
	}
	return nil, nil
}
