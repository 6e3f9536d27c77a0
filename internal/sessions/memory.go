package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/astrarelay/astra/pkg/models"
)

// maxHistoryPerConversation limits stored entries per conversation to
// prevent unbounded memory growth. When exceeded, the oldest entries are
// trimmed to maintain the limit.
const maxHistoryPerConversation = 2000

// ErrConversationNotFound is returned when a conversation id has no record.
var ErrConversationNotFound = errors.New("conversation not found")

// MemoryStore is an in-memory Store implementation for testing and local runs.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	currentBySess map[string]string
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: map[string]*models.Conversation{},
		currentBySess: map[string]string{},
	}
}

func (m *MemoryStore) NewConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    sessionID,
		History:   []models.HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[conv.ID] = conv
	m.currentBySess[sessionID] = conv.ID
	return cloneConversation(conv), nil
}

func (m *MemoryStore) CurrentConversationID(ctx context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	id, ok := m.currentBySess[sessionID]
	m.mu.RUnlock()
	if ok {
		return id, nil
	}
	conv, err := m.NewConversation(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

func (m *MemoryStore) SwitchConversation(ctx context.Context, sessionID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	m.currentBySess[sessionID] = conversationID
	return nil
}

func (m *MemoryStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

func (m *MemoryStore) GetConversations(ctx context.Context, sessionID string) ([]*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Conversation
	for _, conv := range m.conversations {
		if conv.UserID == sessionID {
			out = append(out, cloneConversation(conv))
		}
	}
	sortConversationsByUpdatedDesc(out)
	return out, nil
}

func (m *MemoryStore) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv == nil {
		return errors.New("conversation is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.conversations[conv.ID]
	if !ok {
		return ErrConversationNotFound
	}
	clone := cloneConversation(conv)
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	m.conversations[clone.ID] = clone
	return nil
}

func (m *MemoryStore) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	conv.Title = title
	conv.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) UpdateConversationPersonaID(ctx context.Context, conversationID, personaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	conv.PersonaID = personaID
	conv.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) DeleteConversation(ctx context.Context, sessionID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	delete(m.conversations, conversationID)
	if m.currentBySess[sessionID] == conversationID {
		delete(m.currentBySess, sessionID)
	}
	return nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, conversationID string, entry models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	conv.History = append(conv.History, cloneHistoryEntry(entry))
	if len(conv.History) > maxHistoryPerConversation {
		excess := len(conv.History) - maxHistoryPerConversation
		conv.History = conv.History[excess:]
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, conversationID string, limit int) ([]models.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	history := conv.History
	start := 0
	if limit > 0 && len(history) > limit {
		start = len(history) - limit
	}
	out := make([]models.HistoryEntry, len(history)-start)
	for i, entry := range history[start:] {
		out[i] = cloneHistoryEntry(entry)
	}
	return out, nil
}

func sortConversationsByUpdatedDesc(convs []*models.Conversation) {
	for i := 1; i < len(convs); i++ {
		for j := i; j > 0 && convs[j].UpdatedAt.After(convs[j-1].UpdatedAt); j-- {
			convs[j], convs[j-1] = convs[j-1], convs[j]
		}
	}
}

func cloneConversation(conv *models.Conversation) *models.Conversation {
	if conv == nil {
		return nil
	}
	clone := *conv
	if len(conv.History) > 0 {
		clone.History = make([]models.HistoryEntry, len(conv.History))
		for i, entry := range conv.History {
			clone.History[i] = cloneHistoryEntry(entry)
		}
	}
	return &clone
}

func cloneHistoryEntry(entry models.HistoryEntry) models.HistoryEntry {
	clone := entry
	if len(entry.ToolCalls) > 0 {
		clone.ToolCalls = append([]models.ToolCall{}, entry.ToolCalls...)
	}
	return clone
}
