package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// CockroachPreferenceStore implements PreferenceStore using CockroachDB.
// Preferences are stored as a single JSONB-ish blob column per key, since
// values are arbitrary JSON-serializable data (§6) rather than a fixed
// relational shape.
type CockroachPreferenceStore struct {
	db *sql.DB

	stmtGet    *sql.Stmt
	stmtUpsert *sql.Stmt
	stmtDelete *sql.Stmt
}

// NewCockroachPreferenceStoreFromDSN opens a CockroachDB-backed preference
// store using a raw DSN/URL.
func NewCockroachPreferenceStoreFromDSN(dsn string, config *CockroachConfig) (*CockroachPreferenceStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultCockroachConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &CockroachPreferenceStore{db: db}
	if err := store.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return store, nil
}

func (s *CockroachPreferenceStore) prepareStatements() error {
	var err error

	s.stmtGet, err = s.db.Prepare(`SELECT value FROM preferences WHERE key = $1`)
	if err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}

	s.stmtUpsert, err = s.db.Prepare(`
		INSERT INTO preferences (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}

	s.stmtDelete, err = s.db.Prepare(`DELETE FROM preferences WHERE key = $1`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}

	return nil
}

// Close closes the underlying connection and prepared statements.
func (s *CockroachPreferenceStore) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.stmtGet, s.stmtUpsert, s.stmtDelete} {
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

func (s *CockroachPreferenceStore) Get(ctx context.Context, key string, def any) (any, error) {
	var raw []byte
	err := s.stmtGet.QueryRowContext(ctx, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unmarshal preference: %w", err)
	}
	return value, nil
}

func (s *CockroachPreferenceStore) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal preference: %w", err)
	}
	if _, err := s.stmtUpsert.ExecContext(ctx, key, raw); err != nil {
		return fmt.Errorf("put preference: %w", err)
	}
	return nil
}

func (s *CockroachPreferenceStore) Delete(ctx context.Context, key string) error {
	if _, err := s.stmtDelete.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}
