package pipeline

import (
	"context"

	"github.com/astrarelay/astra/internal/hooks"
	"github.com/astrarelay/astra/pkg/models"
)

// PlatformCompatibility is the second fixed-order stage (§6): it records
// which handlers are applicable to this event's platform (activation +
// per-platform enable, §4.3) so later stages and diagnostics can see the
// set without re-querying the registry.
type PlatformCompatibility struct {
	registry *hooks.Registry
	kinds    []string
}

// NewPlatformCompatibility creates the stage. kinds lists the event kinds
// whose registered handlers should be checked for platform compatibility
// (typically the kinds the process-dispatch stage will later consult).
func NewPlatformCompatibility(registry *hooks.Registry, kinds ...string) *PlatformCompatibility {
	return &PlatformCompatibility{registry: registry, kinds: kinds}
}

func (s *PlatformCompatibility) Name() string { return "platform_compatibility" }

func (s *PlatformCompatibility) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	if s.registry == nil {
		return nil, nil
	}
	event.SetActivatedHandlers(s.registry.CompatibleHandlerNames(event.Platform, s.kinds))
	return nil, nil
}
