// Package context provides context management for agent conversations.
//
// This package handles:
//   - Context packing: selecting which history entries to include in LLM requests
//   - Rolling summaries: compressing old history into a summary
//   - Budget management: staying within token/char limits
package context

import (
	"github.com/astrarelay/astra/pkg/models"
)

// PackOptions configures how history entries are packed into context.
type PackOptions struct {
	// MaxMessages is the hard cap on number of entries to include (e.g. 60).
	MaxMessages int

	// MaxChars is the approximate character budget (cheap proxy for tokens).
	// Default: 30000 (~7500 tokens at 4 chars/token).
	MaxChars int

	// MaxToolResultChars is the max chars per tool result entry. Longer
	// results are truncated. Default: 6000.
	MaxToolResultChars int

	// IncludeSummary controls whether to prepend the rolling summary.
	IncludeSummary bool
}

// DefaultPackOptions returns sensible defaults for context packing.
func DefaultPackOptions() PackOptions {
	return PackOptions{
		MaxMessages:        60,
		MaxChars:           30000,
		MaxToolResultChars: 6000,
		IncludeSummary:     true,
	}
}

// Packer selects and prepares history entries for LLM context.
type Packer struct {
	opts PackOptions
}

// NewPacker creates a new context packer with the given options.
func NewPacker(opts PackOptions) *Packer {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 60
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 30000
	}
	if opts.MaxToolResultChars <= 0 {
		opts.MaxToolResultChars = 6000
	}
	return &Packer{opts: opts}
}

// Pack selects history entries to fit within budget.
//
// The packed result includes (in order):
//  1. Summary entry (if IncludeSummary and summary is present)
//  2. Recent entries from history (newest first, up to budget)
//  3. The incoming entry
//
// Tool result content is truncated to MaxToolResultChars. Entries are
// selected from the end (most recent) backwards until either MaxMessages
// or MaxChars is reached.
func (p *Packer) Pack(history []models.HistoryEntry, incoming *models.HistoryEntry, summary *models.HistoryEntry) ([]models.HistoryEntry, error) {
	var result []models.HistoryEntry

	totalChars := 0
	totalMsgs := 0

	if incoming != nil {
		totalChars += p.entryChars(*incoming)
		totalMsgs++
	}

	if p.opts.IncludeSummary && summary != nil {
		totalChars += p.entryChars(*summary)
		totalMsgs++
	}

	// Select entries from the end (most recent) backwards. Build in
	// reverse order, then reverse once (O(n) instead of O(n^2)).
	selectedReverse := make([]models.HistoryEntry, 0)
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		chars := p.entryChars(e)

		if totalMsgs+1 > p.opts.MaxMessages {
			break
		}
		if totalChars+chars > p.opts.MaxChars {
			break
		}

		selectedReverse = append(selectedReverse, e)
		totalMsgs++
		totalChars += chars
	}

	selected := make([]models.HistoryEntry, len(selectedReverse))
	for i, e := range selectedReverse {
		selected[len(selectedReverse)-1-i] = e
	}

	if p.opts.IncludeSummary && summary != nil {
		result = append(result, *summary)
	}

	for _, e := range selected {
		result = append(result, p.truncateToolResult(e))
	}

	if incoming != nil {
		result = append(result, *incoming)
	}

	return result, nil
}

// entryChars estimates the character count for a history entry.
func (p *Packer) entryChars(e models.HistoryEntry) int {
	chars := len(e.Content)
	for _, tc := range e.ToolCalls {
		chars += len(tc.Name) + len(tc.Input)
	}
	return chars
}

// truncateToolResult returns a copy with truncated content if the entry is
// an over-budget tool result.
func (p *Packer) truncateToolResult(e models.HistoryEntry) models.HistoryEntry {
	if e.Role != models.RoleTool || len(e.Content) <= p.opts.MaxToolResultChars {
		return e
	}
	e.Content = e.Content[:p.opts.MaxToolResultChars] + "\n...[truncated]"
	return e
}
