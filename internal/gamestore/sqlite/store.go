// Package sqlite implements the gamestore.Provider interface on SQLite.
// Records are stored as JSON rows; this mirrors the external game layer for
// the demo binary and integration-style tests. The memory engine itself
// persists nothing.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/huddleworks/huddle/internal/gamestore"
	"github.com/huddleworks/huddle/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store implements gamestore.Provider using SQLite.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database at the given DSN, configures WAL mode, and
// creates the schema.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetGame retrieves a game record by ID.
func (s *Store) GetGame(ctx context.Context, id string) (*types.GameRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM games WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("game %q: %w", id, gamestore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load game %q: %w", id, err)
	}

	var record types.GameRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("sqlite: failed to decode game %q: %w", id, err)
	}
	return &record, nil
}

// SaveGame creates or updates a game record.
func (s *Store) SaveGame(ctx context.Context, record *types.GameRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("sqlite: record with ID is required")
	}

	clone := record.Clone()
	now := time.Now()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now

	payload, err := json.Marshal(clone)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode game %q: %w", clone.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, record, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at
	`, clone.ID, string(payload), clone.CreatedAt, clone.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save game %q: %w", clone.ID, err)
	}
	return nil
}
