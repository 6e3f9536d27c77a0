package pipeline

import (
	"context"

	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/pkg/models"
)

// PermissionGate is the third fixed-order stage (§6): "waking prerequisites
// / permission checking". When the runtime is configured to require an
// at-mention or wake command, events that lack one are dropped silently
// (propagation stops, no reply is ever produced for them).
type PermissionGate struct {
	cfg *config.PipelineConfig
}

// NewPermissionGate creates the stage.
func NewPermissionGate(cfg *config.PipelineConfig) *PermissionGate {
	return &PermissionGate{cfg: cfg}
}

func (s *PermissionGate) Name() string { return "permission_gate" }

func (s *PermissionGate) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	if s.cfg != nil && s.cfg.RequireAtOrWake && !event.IsAtOrWakeCommand {
		event.Stop()
		return nil, nil
	}
	return nil, nil
}
