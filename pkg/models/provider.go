package models

// ProviderRequest is the provider-agnostic shape the LLM-request stage
// builds and mutates across a (possibly multi-round) call loop.
type ProviderRequest struct {
	Prompt       string
	Images       []string
	SessionID    string
	SystemPrompt string

	// FuncTool is nil when no tool should be offered this round (e.g.
	// immediately after a tool round-trip, per §4.4.3).
	FuncTools []FunctionTool

	Conversation *Conversation
	Contexts     []HistoryEntry

	// ToolCallsResult carries the most recent tool round-trip so the
	// history-write step (§4.4.5) can compose it into the persisted
	// history alongside the final assistant turn.
	ToolCallsResult *ToolCallsResult
}

// LLMResponseRole classifies an LLMResponse.
type LLMResponseRole string

const (
	LLMRoleAssistant LLMResponseRole = "assistant"
	LLMRoleTool      LLMResponseRole = "tool"
	LLMRoleErr       LLMResponseRole = "err"
)

// LLMResponse is the provider-agnostic shape returned by both TextChat and
// each element of a TextChatStream sequence.
type LLMResponse struct {
	Role           LLMResponseRole
	CompletionText string
	ResultChain    *MessageChain

	ToolCallNames []string
	ToolCallArgs  []string // raw JSON argument objects, one per name
	ToolCallIDs   []string

	// IsChunk marks a partial streaming response; the stream is
	// terminated by exactly one non-chunk response carrying the
	// aggregated completion.
	IsChunk bool

	// ErrMessage is set when Role == LLMRoleErr.
	ErrMessage string

	// Raw retains the vendor SDK's native response for callers that need
	// provider-specific detail (token usage, finish reason, etc.).
	Raw any
}
