package sessions

import (
	"context"
	"time"

	"github.com/astrarelay/astra/pkg/models"
)

// ListOptions filters a MessageStore.List call.
type ListOptions struct {
	Channel models.ChannelType
	Limit   int
	Offset  int
}

// MessageStore is the persistence contract for the tool-execution runtime's
// Session/Message model (internal/agent). It is a distinct, lower-level
// contract from Store: Store tracks a session's current Conversation for
// the event pipeline, while MessageStore tracks per-agent sessions whose
// history is a flat, branch-aware Message log.
type MessageStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error

	// GetByKey looks up a session by its unified key (see SessionKey).
	GetByKey(ctx context.Context, key string) (*models.Session, error)

	// GetOrCreate returns the session bound to key, creating one for
	// agentID/channel/channelID if none exists yet.
	GetOrCreate(ctx context.Context, key, agentID string, channel models.ChannelType, channelID string) (*models.Session, error)

	List(ctx context.Context, agentID string, opts ListOptions) ([]*models.Session, error)

	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
}

// Branch is one fork of a session's message history.
type Branch struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BranchStore provides branch-aware history operations for runtimes that
// support forking a conversation into parallel branches. A MessageStore
// implementation may optionally also implement BranchStore; the agentic
// loop falls back to flat session history when no BranchStore is
// configured.
type BranchStore interface {
	// EnsurePrimaryBranch returns sessionID's primary branch, creating it
	// if the session has no branches yet.
	EnsurePrimaryBranch(ctx context.Context, sessionID string) (*Branch, error)

	GetBranchHistory(ctx context.Context, branchID string, limit int) ([]*models.Message, error)
	AppendMessageToBranch(ctx context.Context, sessionID, branchID string, msg *models.Message) error
}
