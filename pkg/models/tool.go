package models

import "encoding/json"

// ToolCall represents an LLM's request to execute a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult represents the output of a tool execution.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`

	// Attachments carries binary/remote payloads a tool produced (files,
	// rendered images). Stripped before persisting tool-result history
	// entries; only surfaced on the live response stream.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ToolCallsResult pairs one assistant turn's tool calls with the tool
// entries produced by running them, for history-write composition
// (§4.4.3, §4.4.5).
type ToolCallsResult struct {
	AssistantToolCalls []ToolCall
	ToolEntries        []HistoryEntry
}

// ToMessages renders the pairing as history entries ready to append: the
// assistant turn carrying the tool calls, followed by one tool entry per
// call, in the same order the calls were issued.
func (r *ToolCallsResult) ToMessages() []HistoryEntry {
	if r == nil || len(r.AssistantToolCalls) == 0 {
		return nil
	}
	out := make([]HistoryEntry, 0, 1+len(r.ToolEntries))
	out = append(out, HistoryEntry{
		Role:      RoleAssistant,
		ToolCalls: r.AssistantToolCalls,
	})
	out = append(out, r.ToolEntries...)
	return out
}

// ToolOrigin distinguishes where a function tool's implementation lives.
type ToolOrigin string

const (
	ToolOriginLocal  ToolOrigin = "local"
	ToolOriginRemote ToolOrigin = "remote"
)

// FunctionTool is one entry in the function-tool manager's catalog.
type FunctionTool struct {
	Name        string          `json:"name"`
	Parameters  json.RawMessage `json:"parameters"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"active"`
	Origin      ToolOrigin      `json:"origin"`

	// RemoteServerName identifies the owning remote server when
	// Origin == ToolOriginRemote. Empty for local tools.
	RemoteServerName string `json:"remote_server_name,omitempty"`
}
