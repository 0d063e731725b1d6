package gamestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddleworks/huddle/pkg/types"
)

func TestMemoryProviderRoundtrip(t *testing.T) {
	ctx := context.Background()
	provider := NewMemoryProvider()

	record := &types.GameRecord{
		ID:           "game-1",
		RedWords:     []string{"WAVE", "FISH"},
		BlueWords:    []string{"MOON"},
		AssassinWord: "SHARK",
		CurrentTurn:  types.TeamRed,
	}
	require.NoError(t, provider.SaveGame(ctx, record))

	got, err := provider.GetGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, record.RedWords, got.RedWords)
	assert.Equal(t, types.TeamRed, got.CurrentTurn)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMemoryProviderNotFound(t *testing.T) {
	provider := NewMemoryProvider()

	_, err := provider.GetGame(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryProviderClonesRecords(t *testing.T) {
	ctx := context.Background()
	provider := NewMemoryProvider()

	record := &types.GameRecord{ID: "game-1", RedWords: []string{"WAVE"}}
	require.NoError(t, provider.SaveGame(ctx, record))

	// Mutating the caller's record after save must not leak into the store.
	record.RedWords[0] = "TAMPERED"

	got, err := provider.GetGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"WAVE"}, got.RedWords)

	// Mutating a loaded record must not leak back either.
	got.RedWords[0] = "TAMPERED"
	again, err := provider.GetGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"WAVE"}, again.RedWords)
}

func TestMemoryProviderRejectsEmptyID(t *testing.T) {
	provider := NewMemoryProvider()
	assert.Error(t, provider.SaveGame(context.Background(), &types.GameRecord{}))
	assert.Error(t, provider.SaveGame(context.Background(), nil))
}

func TestMemoryProviderPreservesCreatedAtOnUpdate(t *testing.T) {
	ctx := context.Background()
	provider := NewMemoryProvider()

	require.NoError(t, provider.SaveGame(ctx, &types.GameRecord{ID: "game-1"}))
	first, err := provider.GetGame(ctx, "game-1")
	require.NoError(t, err)

	require.NoError(t, provider.SaveGame(ctx, &types.GameRecord{ID: "game-1", Score: types.Score{Red: 1}}))
	second, err := provider.GetGame(ctx, "game-1")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 1, second.Score.Red)
}
