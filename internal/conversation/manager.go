// Package conversation implements the conversation manager (§4.7): it binds
// a chat session to its current dialogue, caching the session-to-dialogue
// mapping in memory and periodically flushing it to a preference store.
//
// Conversation CRUD itself is delegated to sessions.Store (the unified
// origin keyed conversation store); this package adds the one thing that
// store doesn't do on its own: warm-loading and durably persisting the
// "current dialogue per session" map across restarts.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/astrarelay/astra/internal/sessions"
	"github.com/astrarelay/astra/internal/storage"
	"github.com/astrarelay/astra/pkg/models"
)

// sessionConversationKey is the one mandated persistent key (§6): it holds
// map<unified-origin, dialogue-id>.
const sessionConversationKey = "session_conversation"

// DefaultFlushInterval is how often the session-to-dialogue map is flushed
// to the preference store (§4.7).
const DefaultFlushInterval = 60 * time.Second

// Manager caches "current dialogue per session" and flushes it to a
// preference store on a timer and on explicit Close.
type Manager struct {
	conversations sessions.Store
	prefs         storage.PreferenceStore
	logger        *slog.Logger

	mu      sync.RWMutex
	current map[string]string // session-id -> dialogue-id
	dirty   atomic.Bool

	flushInterval time.Duration
	stopCh        chan struct{}
	stopped       atomic.Bool
	wg            sync.WaitGroup
}

// New creates a Manager, warm-loading the session-to-dialogue cache from
// prefs. The caller must call Close on shutdown so the final mutations are
// flushed (§9: "The periodic flush ... must also run on graceful shutdown").
func New(ctx context.Context, conversations sessions.Store, prefs storage.PreferenceStore, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		conversations: conversations,
		prefs:         prefs,
		logger:        logger,
		current:       make(map[string]string),
		flushInterval: DefaultFlushInterval,
		stopCh:        make(chan struct{}),
	}

	if err := m.warmLoad(ctx); err != nil {
		return nil, fmt.Errorf("warm load session cache: %w", err)
	}

	m.wg.Add(1)
	go m.flushLoop()

	return m, nil
}

func (m *Manager) warmLoad(ctx context.Context) error {
	raw, err := m.prefs.Get(ctx, sessionConversationKey, map[string]any{})
	if err != nil {
		return err
	}
	asMap, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for session, dialogue := range asMap {
		if id, ok := dialogue.(string); ok {
			m.current[session] = id
		}
	}
	return nil
}

func (m *Manager) flushLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.flush(context.Background()); err != nil {
				m.logger.Error("flush session cache", "error", err)
			}
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) flush(ctx context.Context) error {
	if !m.dirty.CompareAndSwap(true, false) {
		return nil
	}
	m.mu.RLock()
	snapshot := make(map[string]any, len(m.current))
	for session, id := range m.current {
		snapshot[session] = id
	}
	m.mu.RUnlock()
	return m.prefs.Put(ctx, sessionConversationKey, snapshot)
}

// Close stops the flush loop and performs a final flush.
func (m *Manager) Close(ctx context.Context) error {
	if m.stopped.CompareAndSwap(false, true) {
		close(m.stopCh)
	}
	m.wg.Wait()
	m.dirty.Store(true)
	return m.flush(ctx)
}

// NewDialogue creates a new conversation for session and makes it current.
func (m *Manager) NewDialogue(ctx context.Context, session string) (*models.Conversation, error) {
	conv, err := m.conversations.NewConversation(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("new conversation: %w", err)
	}
	m.setCurrent(session, conv.ID)
	return conv, nil
}

// Switch sets session's current dialogue to id without creating it.
func (m *Manager) Switch(ctx context.Context, session, id string) error {
	if err := m.conversations.SwitchConversation(ctx, session, id); err != nil {
		return fmt.Errorf("switch dialogue: %w", err)
	}
	m.setCurrent(session, id)
	return nil
}

// Delete removes session's current dialogue and clears the mapping.
func (m *Manager) Delete(ctx context.Context, session string) error {
	id, ok := m.GetCurrentID(session)
	if !ok {
		return nil
	}
	if err := m.conversations.DeleteConversation(ctx, session, id); err != nil {
		return fmt.Errorf("delete dialogue: %w", err)
	}
	m.mu.Lock()
	delete(m.current, session)
	m.mu.Unlock()
	m.dirty.Store(true)
	return nil
}

// GetCurrentID returns session's current dialogue id, if any.
func (m *Manager) GetCurrentID(session string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.current[session]
	return id, ok
}

// Get returns session's dialogue by id, creating the current-dialogue
// mapping if session has none yet.
func (m *Manager) Get(ctx context.Context, session, id string) (*models.Conversation, error) {
	if id == "" {
		var ok bool
		id, ok = m.GetCurrentID(session)
		if !ok {
			return m.NewDialogue(ctx, session)
		}
	}
	return m.conversations.GetConversation(ctx, id)
}

// List returns every dialogue belonging to session.
func (m *Manager) List(ctx context.Context, session string) ([]*models.Conversation, error) {
	return m.conversations.GetConversations(ctx, session)
}

// Update replaces session's dialogue history.
func (m *Manager) Update(ctx context.Context, conv *models.Conversation) error {
	return m.conversations.UpdateConversation(ctx, conv)
}

// UpdateTitle sets a dialogue's display title.
func (m *Manager) UpdateTitle(ctx context.Context, id, title string) error {
	return m.conversations.UpdateConversationTitle(ctx, id, title)
}

// UpdatePersona sets a dialogue's persona id.
func (m *Manager) UpdatePersona(ctx context.Context, id, personaID string) error {
	return m.conversations.UpdateConversationPersonaID(ctx, id, personaID)
}

// AppendMessage appends one history entry to a dialogue.
func (m *Manager) AppendMessage(ctx context.Context, id string, entry models.HistoryEntry) error {
	return m.conversations.AppendMessage(ctx, id, entry)
}

// GetHistory returns up to limit of a dialogue's most recent entries.
func (m *Manager) GetHistory(ctx context.Context, id string, limit int) ([]models.HistoryEntry, error) {
	return m.conversations.GetHistory(ctx, id, limit)
}

// Turn is one reconstructed user/assistant pair for HumanReadable display.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

// HumanReadable reconstructs user/assistant pairs newest-first and
// paginates them (§4.7).
func (m *Manager) HumanReadable(ctx context.Context, session, id string, page, pageSize int) ([]Turn, error) {
	conv, err := m.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if page < 1 {
		page = 1
	}

	turns := pairTurns(conv.History, conv.UpdatedAt)
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].At.After(turns[j].At) })

	start := (page - 1) * pageSize
	if start >= len(turns) {
		return []Turn{}, nil
	}
	end := start + pageSize
	if end > len(turns) {
		end = len(turns)
	}
	return turns[start:end], nil
}

func pairTurns(history []models.HistoryEntry, fallback time.Time) []Turn {
	var turns []Turn
	var pendingUser string
	haveUser := false
	for _, entry := range history {
		switch entry.Role {
		case models.RoleUser:
			pendingUser = entry.Content
			haveUser = true
		case models.RoleAssistant:
			if haveUser {
				turns = append(turns, Turn{User: pendingUser, Assistant: entry.Content, At: fallback})
				haveUser = false
				pendingUser = ""
			}
		}
	}
	return turns
}

func (m *Manager) setCurrent(session, id string) {
	m.mu.Lock()
	m.current[session] = id
	m.mu.Unlock()
	m.dirty.Store(true)
}
