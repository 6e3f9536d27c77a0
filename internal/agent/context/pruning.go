package context

import (
	"strconv"
	"strings"
	"time"

	"github.com/astrarelay/astra/pkg/models"
)

// ContextPruningMode controls when pruning runs.
type ContextPruningMode string

const (
	// ContextPruningOff disables pruning.
	ContextPruningOff ContextPruningMode = "off"
	// ContextPruningCacheTTL prunes when cached tool results are stale.
	ContextPruningCacheTTL ContextPruningMode = "cache-ttl"
)

// ContextPruningToolMatch controls which tool results are prunable.
type ContextPruningToolMatch struct {
	Allow []string
	Deny  []string
}

// ContextPruningSoftTrim configures soft trimming.
type ContextPruningSoftTrim struct {
	MaxChars  int
	HeadChars int
	TailChars int
}

// ContextPruningHardClear configures hard clearing.
type ContextPruningHardClear struct {
	Enabled     bool
	Placeholder string
}

// ContextPruningSettings controls in-memory tool result pruning.
type ContextPruningSettings struct {
	Mode                 ContextPruningMode
	TTL                  time.Duration
	KeepLastAssistants   int
	SoftTrimRatio        float64
	HardClearRatio       float64
	MinPrunableToolChars int
	Tools                ContextPruningToolMatch
	SoftTrim             ContextPruningSoftTrim
	HardClear            ContextPruningHardClear
}

// DefaultContextPruningSettings returns sane defaults for tool-result pruning.
func DefaultContextPruningSettings() ContextPruningSettings {
	return ContextPruningSettings{
		Mode:                 ContextPruningCacheTTL,
		TTL:                  5 * time.Minute,
		KeepLastAssistants:   3,
		SoftTrimRatio:        0.3,
		HardClearRatio:       0.5,
		MinPrunableToolChars: 50000,
		Tools:                ContextPruningToolMatch{},
		SoftTrim: ContextPruningSoftTrim{
			MaxChars:  4000,
			HeadChars: 1500,
			TailChars: 1500,
		},
		HardClear: ContextPruningHardClear{
			Enabled:     true,
			Placeholder: "[Old tool result content cleared]",
		},
	}
}

// PruneContextMessages trims or clears old tool result entries from history.
// Returns the original slice if no changes are required.
func PruneContextMessages(entries []models.HistoryEntry, settings ContextPruningSettings, charWindow int) []models.HistoryEntry {
	if len(entries) == 0 || charWindow <= 0 {
		return entries
	}

	cutoffIndex, ok := findAssistantCutoffIndex(entries, settings.KeepLastAssistants)
	if !ok {
		return entries
	}

	firstUser := findFirstUserIndex(entries)
	pruneStart := len(entries)
	if firstUser >= 0 {
		pruneStart = firstUser
	}
	if pruneStart >= cutoffIndex {
		return entries
	}

	totalChars := estimateContextChars(entries)
	if float64(totalChars)/float64(charWindow) < settings.SoftTrimRatio {
		return entries
	}

	toolNames := buildToolCallNameMap(entries)
	isToolPrunable := makeToolPrunablePredicate(settings.Tools)

	output := make([]models.HistoryEntry, len(entries))
	copy(output, entries)

	type prunableRef struct{ index int }
	var prunable []prunableRef

	for i := pruneStart; i < cutoffIndex; i++ {
		entry := output[i]
		if entry.Role != models.RoleTool {
			continue
		}
		toolName := toolNames[entry.ToolCallID]
		if !isToolPrunable(toolName) {
			continue
		}
		prunable = append(prunable, prunableRef{index: i})

		trimmed, changed := softTrimToolResult(entry.Content, settings)
		if !changed {
			continue
		}
		before := len(entry.Content)
		output[i].Content = trimmed
		totalChars += len(trimmed) - before
	}

	if float64(totalChars)/float64(charWindow) < settings.HardClearRatio || !settings.HardClear.Enabled {
		return output
	}

	prunableChars := 0
	for _, ref := range prunable {
		prunableChars += len(output[ref.index].Content)
	}
	if prunableChars < settings.MinPrunableToolChars {
		return output
	}

	ratio := float64(totalChars) / float64(charWindow)
	for _, ref := range prunable {
		if ratio < settings.HardClearRatio {
			break
		}
		before := len(output[ref.index].Content)
		output[ref.index].Content = settings.HardClear.Placeholder
		totalChars += len(settings.HardClear.Placeholder) - before
		ratio = float64(totalChars) / float64(charWindow)
	}

	return output
}

func findAssistantCutoffIndex(entries []models.HistoryEntry, keepLastAssistants int) (int, bool) {
	if keepLastAssistants <= 0 {
		return len(entries), true
	}
	remaining := keepLastAssistants
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Role == models.RoleAssistant {
			remaining--
			if remaining == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func findFirstUserIndex(entries []models.HistoryEntry) int {
	for i, e := range entries {
		if e.Role == models.RoleUser {
			return i
		}
	}
	return -1
}

func softTrimToolResult(content string, settings ContextPruningSettings) (string, bool) {
	rawLen := len(content)
	if rawLen <= settings.SoftTrim.MaxChars {
		return content, false
	}
	headChars := maxInt(settings.SoftTrim.HeadChars, 0)
	tailChars := maxInt(settings.SoftTrim.TailChars, 0)
	if headChars+tailChars >= rawLen {
		return content, false
	}
	head := content
	if headChars < len(head) {
		head = head[:headChars]
	}
	tail := content
	if tailChars < len(tail) {
		tail = tail[len(tail)-tailChars:]
	}

	trimmed := head + "\n...\n" + tail
	note := "\n\n[Tool result trimmed: kept first " + strconv.Itoa(headChars) + " chars and last " + strconv.Itoa(tailChars) + " chars of " + strconv.Itoa(rawLen) + " chars.]"
	return trimmed + note, true
}

func makeToolPrunablePredicate(match ContextPruningToolMatch) func(string) bool {
	deny := normalizePatterns(match.Deny)
	allow := normalizePatterns(match.Allow)
	return func(toolName string) bool {
		normalized := strings.ToLower(strings.TrimSpace(toolName))
		if normalized == "" {
			return false
		}
		if matchesAny(normalized, deny) {
			return false
		}
		if len(allow) == 0 {
			return true
		}
		return matchesAny(normalized, allow)
	}
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		value := strings.ToLower(strings.TrimSpace(p))
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if wildcardMatch(p, name) {
			return true
		}
	}
	return false
}

func wildcardMatch(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == value
	}
	parts := strings.Split(pattern, "*")
	idx := 0
	if len(parts) == 0 {
		return false
	}
	if parts[0] != "" {
		if !strings.HasPrefix(value, parts[0]) {
			return false
		}
		idx = len(parts[0])
	}
	for i := 1; i < len(parts)-1; i++ {
		part := parts[i]
		if part == "" {
			continue
		}
		pos := strings.Index(value[idx:], part)
		if pos < 0 {
			return false
		}
		idx += pos + len(part)
	}
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(value, last) {
		return false
	}
	return true
}

func buildToolCallNameMap(entries []models.HistoryEntry) map[string]string {
	names := make(map[string]string)
	for _, e := range entries {
		for _, tc := range e.ToolCalls {
			if tc.ID == "" || tc.Name == "" {
				continue
			}
			names[tc.ID] = tc.Name
		}
	}
	return names
}

func estimateContextChars(entries []models.HistoryEntry) int {
	total := 0
	for _, e := range entries {
		total += estimateEntryChars(e)
	}
	return total
}

func estimateEntryChars(e models.HistoryEntry) int {
	chars := len(e.Content)
	for _, tc := range e.ToolCalls {
		chars += len(tc.Name) + len(tc.Input)
	}
	return chars
}

func maxInt(value, min int) int {
	if value < min {
		return min
	}
	return value
}
