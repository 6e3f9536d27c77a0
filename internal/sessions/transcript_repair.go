package sessions

import (
	"context"

	"github.com/astrarelay/astra/pkg/models"
)

// TranscriptRepairReport describes the outcome of repairing a conversation
// history so it satisfies the tool-pair invariant (§3, §4.4.4): every
// assistant entry carrying tool_calls is immediately followed by one tool
// entry per call id, in order, with no orphans and no duplicates.
type TranscriptRepairReport struct {
	Entries               []models.HistoryEntry
	Added                 []models.HistoryEntry
	DroppedDuplicateCount int
	DroppedOrphanCount    int
	Moved                 bool
}

// RepairToolCallPairing walks a conversation history and restores the
// assistant(tool_calls) + consecutive tool(...) invariant:
//
//   - a bare tool entry not immediately owned by a preceding assistant
//     tool-call turn is dropped as an orphan;
//   - a tool entry whose id is not among the owning assistant's pending
//     ids is dropped as an orphan;
//   - a duplicate tool entry for an id already satisfied is dropped;
//   - any tool call left without a matching result gets a synthetic
//     error result appended, so every assistant(tool_calls) entry's
//     ids are satisfied one-for-one before the group closes.
func RepairToolCallPairing(entries []models.HistoryEntry) TranscriptRepairReport {
	report := TranscriptRepairReport{
		Entries: make([]models.HistoryEntry, 0, len(entries)),
	}

	changed := false

	for i := 0; i < len(entries); i++ {
		entry := entries[i]

		if entry.Role == models.RoleTool {
			// A tool entry encountered outside an active assistant
			// tool-call window is an orphan.
			report.DroppedOrphanCount++
			changed = true
			continue
		}

		if entry.Role != models.RoleAssistant || len(entry.ToolCalls) == 0 {
			report.Entries = append(report.Entries, entry)
			continue
		}

		// Assistant turn with tool calls: collect matching results from
		// the entries that follow, up to the next assistant entry.
		pendingOrder := make([]string, 0, len(entry.ToolCalls))
		wanted := make(map[string]struct{}, len(entry.ToolCalls))
		toolNames := make(map[string]string, len(entry.ToolCalls))
		for _, tc := range entry.ToolCalls {
			if tc.ID == "" {
				continue
			}
			pendingOrder = append(pendingOrder, tc.ID)
			wanted[tc.ID] = struct{}{}
			toolNames[tc.ID] = tc.Name
		}

		seen := make(map[string]bool, len(pendingOrder))
		resultByID := make(map[string]models.HistoryEntry, len(pendingOrder))
		remainder := make([]models.HistoryEntry, 0)

		j := i + 1
		for ; j < len(entries); j++ {
			next := entries[j]
			if next.Role == models.RoleAssistant {
				break
			}
			if next.Role != models.RoleTool {
				remainder = append(remainder, next)
				continue
			}
			if _, ok := wanted[next.ToolCallID]; !ok {
				report.DroppedOrphanCount++
				changed = true
				continue
			}
			if seen[next.ToolCallID] {
				report.DroppedDuplicateCount++
				changed = true
				continue
			}
			seen[next.ToolCallID] = true
			resultByID[next.ToolCallID] = next
		}

		if len(remainder) > 0 && len(resultByID) > 0 {
			report.Moved = true
			changed = true
		}

		report.Entries = append(report.Entries, entry)
		for _, id := range pendingOrder {
			if result, ok := resultByID[id]; ok {
				report.Entries = append(report.Entries, result)
				continue
			}
			synthetic := makeMissingToolResult(id, toolNames[id])
			report.Added = append(report.Added, synthetic)
			report.Entries = append(report.Entries, synthetic)
			changed = true
		}
		report.Entries = append(report.Entries, remainder...)

		i = j - 1
	}

	if !changed {
		report.Entries = entries
	}
	return report
}

func makeMissingToolResult(toolCallID, toolName string) models.HistoryEntry {
	if toolName == "" {
		toolName = "unknown"
	}
	return models.HistoryEntry{
		Role:            models.RoleTool,
		ToolCallID:      toolCallID,
		Content:         "error: missing tool result; inserted synthetic error result during transcript repair",
		ToolCallHistory: true,
	}
}

// SanitizeTranscript repairs tool-pair pairing and returns only the
// repaired entries.
func SanitizeTranscript(entries []models.HistoryEntry) []models.HistoryEntry {
	return RepairToolCallPairing(entries).Entries
}

// ValidateToolCallPairing reports the tool-call ids left unsatisfied by the
// given history, in the order their owning assistant turn introduced them.
func ValidateToolCallPairing(entries []models.HistoryEntry) []string {
	pending := make(map[string]bool)
	var pendingOrder []string
	var missing []string

	flush := func() {
		for _, id := range pendingOrder {
			if pending[id] {
				missing = append(missing, id)
			}
		}
		pending = make(map[string]bool)
		pendingOrder = nil
	}

	for _, entry := range entries {
		switch entry.Role {
		case models.RoleAssistant:
			flush()
			for _, tc := range entry.ToolCalls {
				pending[tc.ID] = true
				pendingOrder = append(pendingOrder, tc.ID)
			}
		case models.RoleTool:
			delete(pending, entry.ToolCallID)
		}
	}
	flush()
	return missing
}

// ToolCallGuard tracks tool calls issued mid-run that have not yet received
// a result, so a caller can flush synthetic results before writing a
// non-tool entry (mirrors the persisted-history invariant at runtime,
// incrementally, rather than as a single after-the-fact repair pass).
type ToolCallGuard struct {
	pending      map[string]string // id -> tool name
	pendingOrder []string
}

// NewToolCallGuard creates an empty guard.
func NewToolCallGuard() *ToolCallGuard {
	return &ToolCallGuard{pending: make(map[string]string)}
}

// TrackToolCalls records the tool calls carried by an assistant entry.
func (g *ToolCallGuard) TrackToolCalls(entry models.HistoryEntry) {
	if entry.Role != models.RoleAssistant {
		return
	}
	for _, tc := range entry.ToolCalls {
		if _, exists := g.pending[tc.ID]; !exists {
			g.pendingOrder = append(g.pendingOrder, tc.ID)
		}
		g.pending[tc.ID] = tc.Name
	}
}

// RecordToolResult marks a tool call id as satisfied.
func (g *ToolCallGuard) RecordToolResult(toolCallID string) {
	delete(g.pending, toolCallID)
}

// HasPending reports whether any tracked tool call lacks a result.
func (g *ToolCallGuard) HasPending() bool {
	return len(g.pending) > 0
}

// FlushPending returns synthetic error results for every pending tool call,
// in the order the calls were issued, and clears the pending set.
func (g *ToolCallGuard) FlushPending() []models.HistoryEntry {
	if len(g.pending) == 0 {
		return nil
	}
	out := make([]models.HistoryEntry, 0, len(g.pending))
	for _, id := range g.pendingOrder {
		if name, ok := g.pending[id]; ok {
			out = append(out, makeMissingToolResult(id, name))
		}
	}
	g.pending = make(map[string]string)
	g.pendingOrder = nil
	return out
}

// GuardedSessionStore wraps a Store so that any pending tool calls are
// flushed with synthetic error results before a non-tool-call entry is
// appended, keeping the durable history continuously valid rather than
// relying solely on a read-time repair pass.
type GuardedSessionStore struct {
	Store
	guard *ToolCallGuard
}

// NewGuardedSessionStore wraps store with tool-pair tracking.
func NewGuardedSessionStore(store Store) *GuardedSessionStore {
	return &GuardedSessionStore{Store: store, guard: NewToolCallGuard()}
}

// AppendMessage appends entry, first flushing any pending synthetic tool
// results if entry is not itself a tool result continuing the current
// assistant turn.
func (s *GuardedSessionStore) AppendMessage(ctx context.Context, sessionID string, entry models.HistoryEntry) error {
	if entry.Role == models.RoleTool {
		s.guard.RecordToolResult(entry.ToolCallID)
		return s.Store.AppendMessage(ctx, sessionID, entry)
	}

	if s.guard.HasPending() && entry.Role != models.RoleAssistant {
		for _, synthetic := range s.guard.FlushPending() {
			if err := s.Store.AppendMessage(ctx, sessionID, synthetic); err != nil {
				return err
			}
		}
	}

	if err := s.Store.AppendMessage(ctx, sessionID, entry); err != nil {
		return err
	}
	s.guard.TrackToolCalls(entry)
	return nil
}

// FlushPendingToolResults appends synthetic results for every tool call
// still pending, e.g. on pipeline cancellation mid-round-trip.
func (s *GuardedSessionStore) FlushPendingToolResults(ctx context.Context, sessionID string) error {
	for _, synthetic := range s.guard.FlushPending() {
		if err := s.Store.AppendMessage(ctx, sessionID, synthetic); err != nil {
			return err
		}
	}
	return nil
}
