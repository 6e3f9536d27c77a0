package models

// Propagation controls whether a pipeline run continues to later stages.
type Propagation int

const (
	PropagationContinue Propagation = iota
	PropagationStop
)

// ContentKind classifies the event result left behind for the reply stage.
type ContentKind string

const (
	ContentGeneric          ContentKind = "generic"
	ContentLLMFinal         ContentKind = "llm_final"
	ContentStreamingProgress ContentKind = "streaming_in_progress"
	ContentStreamingFinal   ContentKind = "streaming_final"
)

// SenderRole classifies the inbound event's sender.
type SenderRole string

const (
	SenderMember SenderRole = "member"
	SenderAdmin  SenderRole = "admin"
)

// Sender identifies who sent an inbound message.
type Sender struct {
	ID       string     `json:"id"`
	Nickname string     `json:"nickname,omitempty"`
	Role     SenderRole `json:"role"`
}

// EventResult is what a pipeline stage leaves behind for later stages (and
// ultimately the reply stage) to act on.
type EventResult struct {
	Chain       *MessageChain
	Propagation Propagation
	Kind        ContentKind
	// Stream carries an in-progress streaming response; non-nil only when
	// Kind is ContentStreamingProgress or ContentStreamingFinal.
	Stream <-chan *MessageChain
}

// NewEventResult builds a generic, continuing result for the given chain.
func NewEventResult(chain *MessageChain) *EventResult {
	return &EventResult{Chain: chain, Propagation: PropagationContinue, Kind: ContentGeneric}
}

// Extras keys used by InboundEvent's scratchpad. Declared here so every
// stage that reads or writes one key agrees on its static type via the
// typed accessor methods below, rather than stringly-typed map access
// spread across packages.
const (
	extraProviderRequest    = "provider_request"
	extraActivatedHandlers  = "activated_handlers"
	extraToolCallResult     = "tool_call_result"
)

// InboundEvent is the unit of work the event bus carries and the pipeline
// processes. Platform/session/sender fields are set once by the adapter
// that produced it; Extras is a scratchpad stages use to pass private
// state forward without widening every stage's signature.
type InboundEvent struct {
	Platform     string
	PlatformMeta map[string]any
	SessionID    string // unified origin: "<platform>:<message-type>:<session-id>"
	MessageType  string

	Sender  Sender
	Chain   *MessageChain
	PlainText string

	IsWake             bool
	IsAtOrWakeCommand  bool

	result  *EventResult
	extras  map[string]any
	hasSent bool
}

// NewInboundEvent constructs an event ready for pipeline processing.
func NewInboundEvent(platform, messageType, sessionID string, sender Sender, chain *MessageChain) *InboundEvent {
	return &InboundEvent{
		Platform:    platform,
		MessageType: messageType,
		SessionID:   sessionID,
		Sender:      sender,
		Chain:       chain,
		PlainText:   chain.PlainText(),
		extras:      make(map[string]any),
	}
}

// Stop marks the event's propagation as stopped. Stages must not perform
// further forward work once this has been called and a suspension resumes.
func (e *InboundEvent) Stop() {
	if e.result == nil {
		e.result = &EventResult{Propagation: PropagationStop}
		return
	}
	e.result.Propagation = PropagationStop
}

// IsStopped reports whether propagation has been stopped.
func (e *InboundEvent) IsStopped() bool {
	return e.result != nil && e.result.Propagation == PropagationStop
}

// SetResult replaces the event's current result.
func (e *InboundEvent) SetResult(r *EventResult) {
	e.result = r
}

// Result returns the event's current result, or nil if no stage has set one.
func (e *InboundEvent) Result() *EventResult {
	return e.result
}

// MarkSent records that an outbound send has occurred for this event. Used
// by the web-chat empty-send guard (§4.2) to decide whether a closing empty
// send is still owed.
func (e *InboundEvent) MarkSent() {
	e.hasSent = true
}

// HasSent reports whether MarkSent has been called for this event.
func (e *InboundEvent) HasSent() bool {
	return e.hasSent
}

// SetProviderRequest stashes the in-flight provider request on the event's
// extras, so a later re-entry into the LLM-request stage (or a plugin that
// pre-seeds a request) can reuse it instead of re-deriving a prompt.
func (e *InboundEvent) SetProviderRequest(r *ProviderRequest) {
	e.ensureExtras()
	e.extras[extraProviderRequest] = r
}

// ProviderRequest returns the stashed provider request, if any.
func (e *InboundEvent) ProviderRequest() (*ProviderRequest, bool) {
	v, ok := e.extras[extraProviderRequest]
	if !ok {
		return nil, false
	}
	r, ok := v.(*ProviderRequest)
	return r, ok
}

// SetToolCallResult stashes the chain an in-flight local tool handler set
// as an intermediate event result, for the reply stage to pick up.
func (e *InboundEvent) SetToolCallResult(chain *MessageChain) {
	e.ensureExtras()
	e.extras[extraToolCallResult] = chain
}

// ToolCallResult returns the stashed tool-call result chain, if any.
func (e *InboundEvent) ToolCallResult() (*MessageChain, bool) {
	v, ok := e.extras[extraToolCallResult]
	if !ok {
		return nil, false
	}
	c, ok := v.(*MessageChain)
	return c, ok
}

// SetActivatedHandlers records the set of fully-qualified handler names
// that were found applicable for this event, for diagnostics.
func (e *InboundEvent) SetActivatedHandlers(names []string) {
	e.ensureExtras()
	e.extras[extraActivatedHandlers] = names
}

// ActivatedHandlers returns the recorded set of applicable handler names.
func (e *InboundEvent) ActivatedHandlers() []string {
	v, ok := e.extras[extraActivatedHandlers]
	if !ok {
		return nil
	}
	names, _ := v.([]string)
	return names
}

func (e *InboundEvent) ensureExtras() {
	if e.extras == nil {
		e.extras = make(map[string]any)
	}
}
