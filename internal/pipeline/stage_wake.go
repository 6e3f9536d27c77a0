package pipeline

import (
	"context"
	"strings"

	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/pkg/models"
)

// WakeChecker is the first stage in the fixed order (§6): it decides
// is_wake and is_at_or_wake_command for the event.
type WakeChecker struct {
	cfg *config.PipelineConfig
}

// NewWakeChecker creates a WakeChecker stage.
func NewWakeChecker(cfg *config.PipelineConfig) *WakeChecker {
	return &WakeChecker{cfg: cfg}
}

func (s *WakeChecker) Name() string { return "wake_checker" }

func (s *WakeChecker) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	prefix, botPrefix := "", ""
	if s.cfg != nil {
		prefix = s.cfg.WakePrefix
		botPrefix = s.cfg.BotWakePrefix
	}

	atMention := false
	for _, comp := range chainComponents(event.Chain) {
		if at, ok := comp.(models.At); ok && !at.IsEmpty() {
			atMention = true
			break
		}
	}

	hasWakePrefix := prefix != "" && strings.HasPrefix(event.PlainText, prefix)
	hasBotPrefix := botPrefix != "" && strings.HasPrefix(event.PlainText, botPrefix)

	event.IsWake = atMention || hasWakePrefix || hasBotPrefix || prefix == ""
	event.IsAtOrWakeCommand = atMention || hasWakePrefix || hasBotPrefix

	return nil, nil
}

func chainComponents(chain *models.MessageChain) []models.MessageComponent {
	if chain == nil {
		return nil
	}
	return chain.Components
}
