package gamestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huddleworks/huddle/pkg/types"
)

// MemoryProvider is an in-process Provider used by tests and the demo binary.
type MemoryProvider struct {
	mu    sync.RWMutex
	games map[string]*types.GameRecord
}

// NewMemoryProvider creates an empty in-memory game store.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{games: make(map[string]*types.GameRecord)}
}

// GetGame retrieves a clone of the stored record.
func (p *MemoryProvider) GetGame(ctx context.Context, id string) (*types.GameRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	record, ok := p.games[id]
	if !ok {
		return nil, fmt.Errorf("game %q: %w", id, ErrNotFound)
	}
	return record.Clone(), nil
}

// SaveGame stores a clone of the record, stamping timestamps.
func (p *MemoryProvider) SaveGame(ctx context.Context, record *types.GameRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("gamestore: record with ID is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	clone := record.Clone()
	now := time.Now()
	if clone.CreatedAt.IsZero() {
		if existing, ok := p.games[clone.ID]; ok {
			clone.CreatedAt = existing.CreatedAt
		} else {
			clone.CreatedAt = now
		}
	}
	clone.UpdatedAt = now
	p.games[clone.ID] = clone
	return nil
}
