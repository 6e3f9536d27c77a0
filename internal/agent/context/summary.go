package context

import "github.com/astrarelay/astra/pkg/models"

// RollingSummary is a compressed stand-in for older conversation history.
// It is tracked alongside a conversation rather than stored inline as a
// history entry, since HistoryEntry carries no id or metadata to mark one
// entry among many as "the summary".
type RollingSummary struct {
	Content string

	// Version increments each time the summary is regenerated.
	Version int

	// CoversUpTo is the number of leading history entries (from the start
	// of Conversation.History) this summary replaces.
	CoversUpTo int
}

// AsHistoryEntry renders the summary as a system entry suitable for
// prepending to a packed context. Returns nil for a nil or empty summary.
func (s *RollingSummary) AsHistoryEntry() *models.HistoryEntry {
	if s == nil || s.Content == "" {
		return nil
	}
	return &models.HistoryEntry{Role: models.RoleSystem, Content: s.Content}
}

// EntriesSinceSummary returns the history entries not yet covered by summary.
// If summary is nil, returns the full history.
func EntriesSinceSummary(history []models.HistoryEntry, summary *RollingSummary) []models.HistoryEntry {
	if summary == nil || summary.CoversUpTo <= 0 {
		return history
	}
	if summary.CoversUpTo >= len(history) {
		return nil
	}
	return history[summary.CoversUpTo:]
}

// NeedsSummarization checks if the history needs summarization based on thresholds.
func NeedsSummarization(history []models.HistoryEntry, summary *RollingSummary, maxMsgsBeforeSummary int) bool {
	return len(EntriesSinceSummary(history, summary)) > maxMsgsBeforeSummary
}

// EntriesToSummarize returns older entries that should be folded into the
// summary, keeping the most recent keepRecent entries untouched.
func EntriesToSummarize(history []models.HistoryEntry, summary *RollingSummary, keepRecent int) []models.HistoryEntry {
	messages := EntriesSinceSummary(history, summary)
	if len(messages) <= keepRecent {
		return nil
	}
	return messages[:len(messages)-keepRecent]
}
