package models

import "time"

// Role identifies the author of a conversation history entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// HistoryEntry is one role-tagged turn in a conversation's history.
//
// NoSave marks an entry that must be stripped before persistence (used by
// handlers that want a message to influence the current call without
// becoming part of the durable record). ToolCallHistory marks both sides of
// an assistant/tool pair so a later read can re-apply the tool-pair pruning
// rule (§4.4.4); it is set on write and stripped on read.
type HistoryEntry struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`

	NoSave          bool `json:"-"`
	ToolCallHistory bool `json:"_tool_call_history,omitempty"`
}

// Conversation is a persistent linear history bound to a session.
type Conversation struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title,omitempty"`
	PersonaID string         `json:"persona_id,omitempty"`
	History   []HistoryEntry `json:"history"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
