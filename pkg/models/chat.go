package models

import "time"

// ChannelType identifies the platform a Session/Message belongs to, for the
// generic per-agent chat model consumed by the tool-execution runtime
// (internal/agent). This is a distinct, coarser-grained concept than
// PlatformID/PlatformMeta, which identify a specific adapter instance on
// the event pipeline side.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelSlack    ChannelType = "slack"
	ChannelDiscord  ChannelType = "discord"
	ChannelCLI      ChannelType = "cli"
	ChannelWeb      ChannelType = "web"
)

// Direction marks whether a Message flowed into or out of the runtime.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Attachment is a binary or remote payload carried alongside a Message,
// e.g. an image passed to a vision-capable model or a file produced by a
// tool call.
type Attachment struct {
	Kind     string `json:"kind"`
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// Session is one agent/channel conversation tracked by the tool-execution
// runtime's session store. It is deliberately simpler than Conversation:
// it has no persona or title, and its history lives in a parallel slice of
// Messages rather than HistoryEntry, because the runtime in internal/agent
// needs per-message metadata (branch, direction, attachments) that the
// pipeline's conversation model does not carry.
type Session struct {
	ID        string      `json:"id"`
	AgentID   string      `json:"agent_id"`
	Channel   ChannelType `json:"channel"`
	ChannelID string      `json:"channel_id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Message is one turn of a Session's history.
type Message struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id"`
	Channel     ChannelType  `json:"channel"`
	ChannelID   string       `json:"channel_id"`
	BranchID    string       `json:"branch_id,omitempty"`
	Direction   Direction    `json:"direction"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
