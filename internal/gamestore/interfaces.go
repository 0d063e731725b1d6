// Package gamestore provides the game-record provider boundary.
//
// The authoritative game record is owned by the external game layer; the
// memory engine only ever reads it. Implementations hand out deep copies so
// the engine can never alias or mutate authoritative state.
package gamestore

import (
	"context"
	"errors"

	"github.com/huddleworks/huddle/pkg/types"
)

// ErrNotFound is returned when the referenced game does not exist.
var ErrNotFound = errors.New("gamestore: game not found")

// Provider supplies authoritative game records.
type Provider interface {
	// GetGame retrieves a game record by ID.
	// Returns ErrNotFound if the game doesn't exist.
	GetGame(ctx context.Context, id string) (*types.GameRecord, error)

	// SaveGame creates or updates a game record (upsert semantics).
	SaveGame(ctx context.Context, record *types.GameRecord) error
}
