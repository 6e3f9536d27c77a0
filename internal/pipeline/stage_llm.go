package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/astrarelay/astra/internal/agent"
	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/internal/sessions"
	"github.com/astrarelay/astra/pkg/models"
)

// LLMRequest is the LLM-request stage (§4.4): the sub-stage ProcessDispatch
// falls through to when no command or regex handler claimed the event. It
// bridges the event pipeline's InboundEvent/MessageChain model to the
// tool-augmented agent runtime's Session/Message model, deriving a prompt
// from the event and accumulating the runtime's streamed response chunks
// into a final reply chain.
type LLMRequest struct {
	cfg     *config.PipelineConfig
	runtime *agent.Runtime
	store   sessions.MessageStore
}

// NewLLMRequest creates the stage. A nil runtime makes every event fall
// through untouched (§4.4 "skipped if no provider is currently selected").
func NewLLMRequest(cfg *config.PipelineConfig, runtime *agent.Runtime, store sessions.MessageStore) *LLMRequest {
	return &LLMRequest{cfg: cfg, runtime: runtime, store: store}
}

func (s *LLMRequest) Name() string { return "llm_request" }

func (s *LLMRequest) Process(ctx context.Context, event *models.InboundEvent) (func(context.Context) error, error) {
	if s.runtime == nil || !event.IsWake {
		return nil, nil
	}

	prompt := s.stripWakePrefix(event.PlainText)
	hasImage := chainHasImage(event.Chain)
	if strings.TrimSpace(prompt) == "" && !hasImage {
		return nil, nil
	}

	agentID := "astra"
	if s.cfg != nil && s.cfg.AgentID != "" {
		agentID = s.cfg.AgentID
	}

	sessKey := event.SessionID
	session, err := s.store.GetOrCreate(ctx, sessKey, agentID, models.ChannelType(event.Platform), event.SessionID)
	if err != nil {
		event.SetResult(failureResult(fmt.Errorf("resolve session: %w", err)))
		event.Stop()
		return nil, nil
	}

	msg := &models.Message{
		SessionID: session.ID,
		Channel:   session.Channel,
		ChannelID: session.ChannelID,
		Direction: models.DirectionInbound,
		Role:      models.RoleUser,
		Content:   prompt,
	}

	chunks, err := s.runtime.Process(ctx, session, msg)
	if err != nil {
		event.SetResult(failureResult(err))
		event.Stop()
		return nil, nil
	}

	var text strings.Builder
	var runErr error
	for chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.Error != nil {
			runErr = chunk.Error
			continue
		}
		text.WriteString(chunk.Text)
	}

	if runErr != nil {
		event.SetResult(failureResult(runErr))
		event.Stop()
		return nil, nil
	}

	chain := models.NewChain(models.Text{Content: text.String()})
	event.SetResult(&models.EventResult{
		Chain:       chain,
		Propagation: models.PropagationStop,
		Kind:        models.ContentLLMFinal,
	})
	event.Stop()
	return nil, nil
}

// stripWakePrefix removes the configured wake prefix from text, stripping
// the bot-wake prefix first when the wake prefix begins with it (§4.4).
func (s *LLMRequest) stripWakePrefix(text string) string {
	if s.cfg == nil {
		return text
	}
	if s.cfg.BotWakePrefix != "" && strings.HasPrefix(s.cfg.WakePrefix, s.cfg.BotWakePrefix) {
		text = strings.TrimPrefix(text, s.cfg.BotWakePrefix)
	}
	return strings.TrimPrefix(text, s.cfg.WakePrefix)
}

func chainHasImage(chain *models.MessageChain) bool {
	for _, comp := range chainComponents(chain) {
		if img, ok := comp.(models.Image); ok && !img.IsEmpty() {
			return true
		}
	}
	return false
}

// failureResult builds the plain-text failure chain mandated by §4.4:
// "Request failed. type=<X> msg=<Y>".
func failureResult(err error) *models.EventResult {
	text := fmt.Sprintf("Request failed. type=%T msg=%s", err, err.Error())
	return &models.EventResult{
		Chain:       models.NewChain(models.Text{Content: text}),
		Propagation: models.PropagationStop,
		Kind:        models.ContentGeneric,
	}
}
