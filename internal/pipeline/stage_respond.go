package pipeline

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/astrarelay/astra/internal/channels"
	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/internal/hooks"
	"github.com/astrarelay/astra/internal/pipeline/pathmap"
	"github.com/astrarelay/astra/pkg/models"
	"github.com/astrarelay/astra/pkg/pluginsdk"
)

// HookAfterMessageSent is the pluginsdk.HookEvent type run after a send
// completes (§4.8 "Finally run on_after_message_sent hooks").
const HookAfterMessageSent = "on_after_message_sent"

// Respond is the terminal send action (§4.8, §6 step 6). It is deliberately
// not run as a Stage inside Scheduler: propagation-stop discards remaining
// *Scheduler* stages (§4.2 "early termination"), but the result a stage
// leaves behind must still be delivered regardless of where in the earlier
// stages it was produced or stopped. The pipeline runner therefore invokes
// Respond unconditionally after Scheduler.Run returns.
type Respond struct {
	channels *channels.Registry
	hooks    *hooks.Registry
	cfg      *config.ReplyConfig
	rules    []pathmap.Rule
	logger   *slog.Logger
}

// NewRespond creates the stage. cfg may be nil, in which case segmentation
// and path-mapping are disabled and pacing falls back to the package
// defaults.
func NewRespond(registry *channels.Registry, hookRegistry *hooks.Registry, cfg *config.ReplyConfig, logger *slog.Logger) *Respond {
	if logger == nil {
		logger = slog.Default()
	}
	var rules []pathmap.Rule
	if cfg != nil {
		rules = pathmap.ParseRules(cfg.PathMapping)
	}
	return &Respond{channels: registry, hooks: hookRegistry, cfg: cfg, rules: rules, logger: logger}
}

// Send delivers event's current result to its originating platform.
func (s *Respond) Send(ctx context.Context, event *models.InboundEvent) error {
	result := event.Result()
	if result == nil {
		return nil
	}

	switch result.Kind {
	case models.ContentStreamingFinal:
		// Already dispatched by its producer (§4.8).
		return nil
	case models.ContentStreamingProgress:
		return s.sendStreaming(ctx, event, result)
	default:
		return s.sendOrdinary(ctx, event, result)
	}
}

func (s *Respond) sendStreaming(ctx context.Context, event *models.InboundEvent, result *models.EventResult) error {
	adapter, ok := s.channels.Get(models.PlatformID(event.Platform))
	if !ok {
		return nil
	}
	streaming, ok := adapter.(channels.StreamingAdapter)
	if !ok {
		// Fall back to sending the final chain once the stream is drained.
		var last *models.MessageChain
		for chain := range result.Stream {
			last = chain
		}
		return s.deliverOrdinary(ctx, event, last)
	}
	var fallback *models.MessageChain
	err := streaming.SendStreaming(ctx, event.SessionID, result.Stream, fallback)
	event.MarkSent()
	s.runAfterSentHooks(ctx, event)
	return err
}

func (s *Respond) sendOrdinary(ctx context.Context, event *models.InboundEvent, result *models.EventResult) error {
	chain := s.remapFiles(result.Chain)
	if chain == nil || chain.IsEmpty() {
		event.Stop()
		return nil
	}

	onlyLLM := s.cfg == nil || s.cfg.OnlyLLMResult
	segment := s.cfg != nil && s.cfg.SegmentationEnabled && (!onlyLLM || result.Kind == models.ContentLLMFinal)
	if !segment {
		return s.deliverOrdinary(ctx, event, chain)
	}
	return s.deliverSegmented(ctx, event, chain)
}

func (s *Respond) deliverOrdinary(ctx context.Context, event *models.InboundEvent, chain *models.MessageChain) error {
	if chain == nil || chain.IsEmpty() {
		return nil
	}
	outbound, ok := s.channels.GetOutbound(models.PlatformID(event.Platform))
	if !ok {
		s.logger.Warn("no outbound adapter for platform", "platform", event.Platform)
		return nil
	}
	if err := outbound.Send(ctx, event.SessionID, chain); err != nil {
		return err
	}
	event.MarkSent()
	s.runAfterSentHooks(ctx, event)
	return nil
}

// deliverSegmented preserves the leading at-mention/reply-quote decoration
// components on every segment, then sends every remaining component as its
// own message, pacing sends between them (§4.8).
func (s *Respond) deliverSegmented(ctx context.Context, event *models.InboundEvent, chain *models.MessageChain) error {
	var decoration []models.MessageComponent
	var rest []models.MessageComponent
	for _, comp := range chain.Components {
		switch comp.(type) {
		case models.At, models.AtAll, models.Reply:
			if len(rest) == 0 {
				decoration = append(decoration, comp)
				continue
			}
		}
		rest = append(rest, comp)
	}

	outbound, ok := s.channels.GetOutbound(models.PlatformID(event.Platform))
	if !ok {
		s.logger.Warn("no outbound adapter for platform", "platform", event.Platform)
		return nil
	}

	sent := 0
	for _, comp := range rest {
		if comp.IsEmpty() {
			continue
		}
		if sent > 0 {
			s.pace(ctx, models.NewChain(comp))
		}
		segment := models.NewChain(append(append([]models.MessageComponent{}, decoration...), comp)...)
		if err := outbound.Send(ctx, event.SessionID, segment); err != nil {
			return err
		}
		event.MarkSent()
		sent++
	}
	s.runAfterSentHooks(ctx, event)
	return nil
}

// pace sleeps the delay the reply config's pacing mode prescribes for a
// chain's word count (§4.8).
func (s *Respond) pace(ctx context.Context, chain *models.MessageChain) {
	mode := "log_word_count"
	lo, hi := 500*time.Millisecond, 1500*time.Millisecond
	if s.cfg != nil {
		if s.cfg.PacingMode != "" {
			mode = s.cfg.PacingMode
		}
		if s.cfg.IntervalLo > 0 {
			lo = s.cfg.IntervalLo
		}
		if s.cfg.IntervalHi > 0 {
			hi = s.cfg.IntervalHi
		}
	}

	var delay time.Duration
	switch mode {
	case "uniform_random":
		if hi > lo {
			delay = lo + time.Duration(rand.Int63n(int64(hi-lo)))
		} else {
			delay = lo
		}
	default: // log_word_count
		words := len(strings.Fields(chain.PlainText()))
		scale := math.Log2(float64(words) + 1)
		delay = time.Duration(scale * float64(lo))
		if delay > hi {
			delay = hi
		}
	}

	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

// remapFiles applies path-mapping rules to every File component, returning
// a clone so the event's own chain is left untouched.
func (s *Respond) remapFiles(chain *models.MessageChain) *models.MessageChain {
	if chain == nil || len(s.rules) == 0 {
		return chain
	}
	clone := chain.Clone()
	for i, comp := range clone.Components {
		if f, ok := comp.(models.File); ok {
			f.Source = pathmap.Apply(s.rules, f.Source)
			clone.Components[i] = f
		}
	}
	return clone
}

func (s *Respond) runAfterSentHooks(ctx context.Context, event *models.InboundEvent) {
	if s.hooks == nil {
		return
	}
	hookEvent := &pluginsdk.HookEvent{
		Type:      HookAfterMessageSent,
		SessionID: event.SessionID,
		ChannelID: event.Platform,
	}
	if err := s.hooks.RunHooks(ctx, hookEvent); err != nil {
		s.logger.Error("on_after_message_sent hook failed", "error", err)
	}
}
