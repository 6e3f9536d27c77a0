package sessions

import (
	"context"

	"github.com/astrarelay/astra/pkg/models"
)

// Store is the persistence contract for conversations, keyed by the
// unified session identifier "<platform>:<message-type>:<session-id>"
// (§3 Session identifier). Each session tracks a "current" conversation;
// a caller can fork new ones and switch between them (§4.7).
type Store interface {
	// NewConversation creates and persists a fresh, empty conversation for
	// sessionID and marks it current.
	NewConversation(ctx context.Context, sessionID string) (*models.Conversation, error)

	// CurrentConversationID returns the id of sessionID's current
	// conversation, creating one if none exists yet.
	CurrentConversationID(ctx context.Context, sessionID string) (string, error)

	// SwitchConversation marks conversationID as sessionID's current
	// conversation.
	SwitchConversation(ctx context.Context, sessionID, conversationID string) error

	// GetConversation fetches one conversation by id.
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)

	// GetConversations lists every conversation bound to sessionID, most
	// recently updated first.
	GetConversations(ctx context.Context, sessionID string) ([]*models.Conversation, error)

	// UpdateConversation persists conv's full History and bumps UpdatedAt.
	UpdateConversation(ctx context.Context, conv *models.Conversation) error

	UpdateConversationTitle(ctx context.Context, conversationID, title string) error
	UpdateConversationPersonaID(ctx context.Context, conversationID, personaID string) error

	// DeleteConversation removes a conversation. If it was sessionID's
	// current conversation, the session is left with none current.
	DeleteConversation(ctx context.Context, sessionID, conversationID string) error

	// AppendMessage appends one history entry to a conversation.
	AppendMessage(ctx context.Context, conversationID string, entry models.HistoryEntry) error

	// GetHistory returns up to limit of the most recent entries, in
	// chronological order. limit <= 0 means unbounded.
	GetHistory(ctx context.Context, conversationID string, limit int) ([]models.HistoryEntry, error)
}

// SessionKey builds the unified session identifier (§3).
func SessionKey(platform, messageType, sessionID string) string {
	return platform + ":" + messageType + ":" + sessionID
}
