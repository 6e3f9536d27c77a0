package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/astrarelay/astra/pkg/models"
	_ "github.com/lib/pq"
)

// CockroachStore implements Store using CockroachDB.
type CockroachStore struct {
	db *sql.DB

	stmtInsertConversation   *sql.Stmt
	stmtGetConversation      *sql.Stmt
	stmtGetConversations     *sql.Stmt
	stmtUpdateHistory        *sql.Stmt
	stmtUpdateTitle          *sql.Stmt
	stmtUpdatePersona        *sql.Stmt
	stmtDeleteConversation   *sql.Stmt
	stmtGetCurrent           *sql.Stmt
	stmtUpsertCurrent        *sql.Stmt
}

// DB exposes the underlying connection for related stores.
func (s *CockroachStore) DB() *sql.DB {
	return s.db
}

// CockroachConfig holds CockroachDB connection configuration.
type CockroachConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultCockroachConfig returns default configuration.
func DefaultCockroachConfig() *CockroachConfig {
	return &CockroachConfig{
		Host:            "localhost",
		Port:            26257,
		User:            "root",
		Password:        "",
		Database:        "astra",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// NewCockroachStore creates a new CockroachDB store.
func NewCockroachStore(config *CockroachConfig) (*CockroachStore, error) {
	if config == nil {
		config = DefaultCockroachConfig()
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		config.Host, config.Port, config.User, config.Password,
		config.Database, config.SSLMode, int(config.ConnectTimeout.Seconds()),
	)
	return newCockroachStoreWithDSN(dsn, config)
}

// NewCockroachStoreFromDSN creates a new CockroachDB store using a raw DSN/URL.
func NewCockroachStoreFromDSN(dsn string, config *CockroachConfig) (*CockroachStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultCockroachConfig()
	}
	return newCockroachStoreWithDSN(dsn, config)
}

func newCockroachStoreWithDSN(dsn string, config *CockroachConfig) (*CockroachStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &CockroachStore{db: db}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return store, nil
}

// prepareStatements prepares all SQL statements for reuse. Conversation
// history is stored as a JSON array column; CockroachDB's JSONB indexing
// is not needed here since history is always read/written whole per §4.7.
func (s *CockroachStore) prepareStatements() error {
	var err error

	s.stmtInsertConversation, err = s.db.Prepare(`
		INSERT INTO conversations (id, user_id, title, persona_id, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert conversation: %w", err)
	}

	s.stmtGetConversation, err = s.db.Prepare(`
		SELECT id, user_id, title, persona_id, history, created_at, updated_at
		FROM conversations WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get conversation: %w", err)
	}

	s.stmtGetConversations, err = s.db.Prepare(`
		SELECT id, user_id, title, persona_id, history, created_at, updated_at
		FROM conversations WHERE user_id = $1
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get conversations: %w", err)
	}

	s.stmtUpdateHistory, err = s.db.Prepare(`
		UPDATE conversations SET history = $1, updated_at = $2 WHERE id = $3
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update history: %w", err)
	}

	s.stmtUpdateTitle, err = s.db.Prepare(`
		UPDATE conversations SET title = $1, updated_at = $2 WHERE id = $3
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update title: %w", err)
	}

	s.stmtUpdatePersona, err = s.db.Prepare(`
		UPDATE conversations SET persona_id = $1, updated_at = $2 WHERE id = $3
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update persona: %w", err)
	}

	s.stmtDeleteConversation, err = s.db.Prepare(`
		DELETE FROM conversations WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete conversation: %w", err)
	}

	s.stmtGetCurrent, err = s.db.Prepare(`
		SELECT conversation_id FROM session_current_conversation WHERE session_id = $1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get current: %w", err)
	}

	s.stmtUpsertCurrent, err = s.db.Prepare(`
		INSERT INTO session_current_conversation (session_id, conversation_id)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET conversation_id = excluded.conversation_id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert current: %w", err)
	}

	return nil
}

// Close closes the database connection and prepared statements.
func (s *CockroachStore) Close() error {
	var errs []error
	stmts := []*sql.Stmt{
		s.stmtInsertConversation, s.stmtGetConversation, s.stmtGetConversations,
		s.stmtUpdateHistory, s.stmtUpdateTitle, s.stmtUpdatePersona,
		s.stmtDeleteConversation, s.stmtGetCurrent, s.stmtUpsertCurrent,
	}
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing store: %v", errs)
	}
	return nil
}

func (s *CockroachStore) NewConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    sessionID,
		History:   []models.HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	historyJSON, err := json.Marshal(conv.History)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	if _, err := s.stmtInsertConversation.ExecContext(ctx,
		conv.ID, conv.UserID, conv.Title, conv.PersonaID, historyJSON, conv.CreatedAt, conv.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	if _, err := s.stmtUpsertCurrent.ExecContext(ctx, sessionID, conv.ID); err != nil {
		return nil, fmt.Errorf("failed to set current conversation: %w", err)
	}
	return conv, nil
}

func (s *CockroachStore) CurrentConversationID(ctx context.Context, sessionID string) (string, error) {
	var id string
	err := s.stmtGetCurrent.QueryRowContext(ctx, sessionID).Scan(&id)
	if err == sql.ErrNoRows {
		conv, err := s.NewConversation(ctx, sessionID)
		if err != nil {
			return "", err
		}
		return conv.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get current conversation: %w", err)
	}
	return id, nil
}

func (s *CockroachStore) SwitchConversation(ctx context.Context, sessionID, conversationID string) error {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return err
	}
	if _, err := s.stmtUpsertCurrent.ExecContext(ctx, sessionID, conversationID); err != nil {
		return fmt.Errorf("failed to switch conversation: %w", err)
	}
	return nil
}

func (s *CockroachStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var historyJSON []byte
	err := s.stmtGetConversation.QueryRowContext(ctx, conversationID).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &conv.PersonaID, &historyJSON, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if len(historyJSON) > 0 && string(historyJSON) != "null" {
		if err := json.Unmarshal(historyJSON, &conv.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}
	return conv, nil
}

func (s *CockroachStore) GetConversations(ctx context.Context, sessionID string) ([]*models.Conversation, error) {
	rows, err := s.stmtGetConversations.QueryContext(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		var historyJSON []byte
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.PersonaID, &historyJSON, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if len(historyJSON) > 0 && string(historyJSON) != "null" {
			if err := json.Unmarshal(historyJSON, &conv.History); err != nil {
				return nil, fmt.Errorf("failed to unmarshal history: %w", err)
			}
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return out, nil
}

func (s *CockroachStore) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	historyJSON, err := json.Marshal(conv.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	conv.UpdatedAt = time.Now()
	result, err := s.stmtUpdateHistory.ExecContext(ctx, historyJSON, conv.UpdatedAt, conv.ID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (s *CockroachStore) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	result, err := s.stmtUpdateTitle.ExecContext(ctx, title, time.Now(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return requireRowsAffected(result)
}

func (s *CockroachStore) UpdateConversationPersonaID(ctx context.Context, conversationID, personaID string) error {
	result, err := s.stmtUpdatePersona.ExecContext(ctx, personaID, time.Now(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to update persona: %w", err)
	}
	return requireRowsAffected(result)
}

func (s *CockroachStore) DeleteConversation(ctx context.Context, sessionID, conversationID string) error {
	result, err := s.stmtDeleteConversation.ExecContext(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM session_current_conversation WHERE session_id = $1 AND conversation_id = $2",
		sessionID, conversationID,
	); err != nil {
		return fmt.Errorf("failed to clear current conversation: %w", err)
	}
	return nil
}

func (s *CockroachStore) AppendMessage(ctx context.Context, conversationID string, entry models.HistoryEntry) error {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	conv.History = append(conv.History, entry)
	return s.UpdateConversation(ctx, conv)
}

func (s *CockroachStore) GetHistory(ctx context.Context, conversationID string, limit int) ([]models.HistoryEntry, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	history := conv.History
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrConversationNotFound
	}
	return nil
}
