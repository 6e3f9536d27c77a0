package pipeline

import (
	"context"

	"github.com/astrarelay/astra/internal/hooks"
	"github.com/astrarelay/astra/pkg/models"
)

// ContentSafetyKind is the handler-registry event kind consulted by the
// ContentSafety stage (§6 step 4: "Content-safety / pre-processing (if
// enabled)").
const ContentSafetyKind = "content_safety"

// ContentSafety runs any contributed content_safety handlers in priority
// order. A handler that returns a result is treated as a veto: its result
// becomes the event's result and, if it stops propagation, the pipeline
// ends here (§4.3/§4.2's "first responder wins" dispatch semantics).
type ContentSafety struct {
	registry *hooks.Registry
}

// NewContentSafety creates the stage. A nil registry makes this a no-op
// pass-through, matching "if enabled" in §6.
func NewContentSafety(registry *hooks.Registry) *ContentSafety {
	return &ContentSafety{registry: registry}
}

func (s *ContentSafety) Name() string { return "content_safety" }

func (s *ContentSafety) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	if s.registry == nil {
		return nil, nil
	}
	result, err := s.registry.Dispatch(ctx, event.Platform, ContentSafetyKind, event)
	if err != nil {
		return nil, err
	}
	if result != nil {
		event.SetResult(result)
		if result.Propagation == models.PropagationStop {
			event.Stop()
		}
	}
	return nil, nil
}
