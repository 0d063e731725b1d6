package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddleworks/huddle/pkg/types"
)

func testRecord() *types.GameRecord {
	return &types.GameRecord{
		ID:           "game-1",
		RedWords:     []string{"WAVE", "FISH", "ANCHOR", "CORAL"},
		BlueWords:    []string{"MOON", "ROCKET", "STAR"},
		AssassinWord: "SHARK",
		CurrentTurn:  types.TeamRed,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(testEngineConfig(), nil)
	require.NoError(t, store.Sync("game-1", testRecord()))
	return store
}

func discussionRound(offsets ...types.DiscussionEntry) []types.DiscussionEntry {
	return offsets
}

func TestUpdateFromDiscussion(t *testing.T) {
	store := newTestStore(t)

	summary, err := store.UpdateFromDiscussion(
		"game-1", types.TeamRed,
		types.Clue{Text: "ocean", Number: 2},
		discussionRound(
			entry("alice", "WAVE is clearly ocean", "WAVE", 0.9, 0),
			entry("bob", "WAVE then FISH", "WAVE", 0.8, time.Second),
			entry("carol", "CORAL instead of WAVE, WAVE is too risky", "CORAL", 0.7, 2*time.Second),
		),
		nil, nil, 1,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Round)
	assert.Equal(t, 3, summary.Participants)
	assert.True(t, summary.Consensus.Reached)
	assert.Equal(t, "WAVE", summary.Consensus.Word)
	require.Len(t, summary.Conflicts, 1)
	assert.False(t, summary.Conflicts[0].Resolved)

	snap := store.GetOrCreate("game-1", types.TeamRed)
	require.Len(t, snap.ActiveClues, 1)
	clue := snap.ActiveClues[0]
	assert.Equal(t, "ocean", clue.Text)
	assert.ElementsMatch(t, []string{"WAVE", "CORAL"}, clue.SuggestedWords)
	assert.Equal(t, 3, clue.RemainingGuesses)

	waves := snap.Associations["WAVE"]
	require.Len(t, waves, 1)
	assert.Equal(t, "ocean", waves[0].Clue)
	assert.True(t, waves[0].IsTeamWord)
	assert.Equal(t, AssociationActive, waves[0].Status)
	assert.Equal(t, []string{"alice", "bob"}, waves[0].Supporters)
}

func TestUpdateFromDiscussionRejectsInvalidEntries(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateFromDiscussion(
		"game-1", types.TeamRed, types.Clue{},
		discussionRound(types.DiscussionEntry{Agent: "alice", Message: "ok", Confidence: 1.5}),
		nil, nil, 1,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")
}

func TestUpdateFromDiscussionMergesAcrossRounds(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateFromDiscussion("game-1", types.TeamRed,
		types.Clue{Text: "ocean", Number: 2},
		discussionRound(entry("alice", "WAVE fits", "WAVE", 0.7, 0)),
		nil, nil, 1)
	require.NoError(t, err)

	later := entry("bob", "WAVE, definitely", "WAVE", 0.9, time.Second)
	later.Round = 2
	_, err = store.UpdateFromDiscussion("game-1", types.TeamRed,
		types.Clue{Text: "ocean", Number: 2},
		discussionRound(later),
		nil, nil, 2)
	require.NoError(t, err)

	assocs, err := store.WordAssociations("game-1", types.TeamRed, "wave")
	require.NoError(t, err)
	require.Len(t, assocs, 1, "same word under the same clue merges into one association")
	assert.Equal(t, 0.9, assocs[0].Confidence, "merged confidence takes the max")
	assert.Equal(t, 2, assocs[0].MentionCount)
	assert.Equal(t, []string{"alice", "bob"}, assocs[0].Supporters)
}

func TestApplyTurnResultThroughStore(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateFromDiscussion("game-1", types.TeamRed,
		types.Clue{Text: "ocean", Number: 1},
		discussionRound(entry("alice", "WAVE fits", "WAVE", 0.8, 0)),
		nil, nil, 1)
	require.NoError(t, err)

	require.NoError(t, store.ApplyTurnResult("game-1", types.TeamRed, "wave", types.OutcomeCorrect, "ocean"))

	snap := store.GetOrCreate("game-1", types.TeamRed)
	assert.Equal(t, 1, snap.Score.Red)
	assert.Equal(t, 1, snap.CorrectGuesses)
	assert.Empty(t, snap.ActiveClues, "only suggested word revealed, clue archives")
	require.Len(t, snap.SuccessfulClues, 1)

	waves := snap.Associations["WAVE"]
	require.Len(t, waves, 1)
	assert.Equal(t, AssociationGuessed, waves[0].Status)
}

func TestResolveConflictExactlyOnce(t *testing.T) {
	store := newTestStore(t)

	summary, err := store.UpdateFromDiscussion("game-1", types.TeamRed,
		types.Clue{Text: "ocean", Number: 2},
		discussionRound(
			entry("alice", "WAVE is best", "WAVE", 0.9, 0),
			entry("bob", "CORAL instead of WAVE", "CORAL", 0.7, time.Second),
		),
		nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, summary.Conflicts, 1)

	// Resolution matches the unordered pair.
	assert.True(t, store.ResolveConflict("game-1", types.TeamRed, "coral", "wave", "alice", "going with WAVE"))
	assert.False(t, store.ResolveConflict("game-1", types.TeamRed, "WAVE", "CORAL", "bob", "again"),
		"a conflict resolves true exactly once")
	assert.False(t, store.ResolveConflict("game-1", types.TeamRed, "WAVE", "FISH", "bob", "no such conflict"))
	assert.False(t, store.ResolveConflict("game-2", types.TeamRed, "WAVE", "CORAL", "bob", "no such game"))

	open, err := store.UnresolvedConflicts("game-1", types.TeamRed)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestConflictNotReRecordedAcrossRounds(t *testing.T) {
	store := newTestStore(t)

	round := discussionRound(
		entry("alice", "WAVE is best", "WAVE", 0.9, 0),
		entry("bob", "CORAL instead of WAVE", "CORAL", 0.7, time.Second),
	)
	_, err := store.UpdateFromDiscussion("game-1", types.TeamRed, types.Clue{Text: "ocean", Number: 2}, round, nil, nil, 1)
	require.NoError(t, err)

	for i := range round {
		round[i].Round = 2
	}
	_, err = store.UpdateFromDiscussion("game-1", types.TeamRed, types.Clue{Text: "ocean", Number: 2}, round, nil, nil, 2)
	require.NoError(t, err)

	snap := store.GetOrCreate("game-1", types.TeamRed)
	assert.Len(t, snap.Conflicts, 1, "the same unordered word pair is recorded once per game")
}

func TestSyncRebuildsFromTranscript(t *testing.T) {
	store := NewStore(testEngineConfig(), nil)
	base := time.Now().Add(-time.Hour)

	record := testRecord()
	record.Revealed = []string{"WAVE"}
	record.Score = types.Score{Red: 1}
	record.History = []types.HistoryEntry{
		{Kind: types.HistoryClue, Team: types.TeamRed, Clue: "ocean", Number: 2, Timestamp: base},
		{Kind: types.HistoryGuess, Team: types.TeamRed, Word: "WAVE", Outcome: types.OutcomeCorrect, Timestamp: base.Add(time.Minute)},
	}

	require.NoError(t, store.Sync("game-1", record))

	for _, team := range types.Teams() {
		snap := store.GetOrCreate("game-1", team)
		assert.Equal(t, 1, snap.Score.Red, "score mirrors the record for team %s", team)
		assert.Equal(t, types.TeamRed, snap.CurrentTurn)
	}

	red := store.GetOrCreate("game-1", types.TeamRed)
	require.Len(t, red.ActiveClues, 1)
	assert.Equal(t, []string{"WAVE"}, red.ActiveClues[0].GuessedWords)
	assert.Equal(t, 2, red.ActiveClues[0].RemainingGuesses)
	assert.Equal(t, 1, red.CorrectGuesses)

	blue := store.GetOrCreate("game-1", types.TeamBlue)
	assert.Empty(t, blue.ActiveClues, "red's clue is invisible to blue")
}

func TestSnapshotsAreCopies(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateFromDiscussion("game-1", types.TeamRed,
		types.Clue{Text: "ocean", Number: 1},
		discussionRound(entry("alice", "WAVE fits", "WAVE", 0.8, 0)),
		nil, nil, 1)
	require.NoError(t, err)

	snap := store.GetOrCreate("game-1", types.TeamRed)
	snap.ActiveClues[0].SuggestedWords[0] = "TAMPERED"
	snap.Associations["WAVE"][0].Supporters[0] = "mallory"

	fresh := store.GetOrCreate("game-1", types.TeamRed)
	assert.Equal(t, []string{"WAVE"}, fresh.ActiveClues[0].SuggestedWords)
	assert.Equal(t, []string{"alice"}, fresh.Associations["WAVE"][0].Supporters)
}

func TestQueriesReturnNotFoundForUnknownKey(t *testing.T) {
	store := NewStore(testEngineConfig(), nil)

	_, err := store.ActiveClues("nope", types.TeamRed, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.DiscussionSummary("nope", types.TeamRed, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.AnalyzeInteractions("nope", types.TeamRed)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetSpymasterSummary("nope", types.TeamRed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonalityTracking(t *testing.T) {
	store := newTestStore(t)

	for round := 1; round <= 3; round++ {
		entries := discussionRound(
			types.DiscussionEntry{Agent: "alice", Message: "WAVE again", Suggestion: "WAVE", Confidence: 0.9, Risk: types.RiskLow, Round: round, Timestamp: time.Now()},
			types.DiscussionEntry{Agent: "bob", Message: "WAVE works", Suggestion: "WAVE", Confidence: 0.8, Risk: types.RiskLow, Round: round, Timestamp: time.Now()},
			types.DiscussionEntry{Agent: "carol", Message: "FISH is bolder", Suggestion: "FISH", Confidence: 0.7, Risk: types.RiskHigh, Round: round, Timestamp: time.Now()},
		)
		_, err := store.UpdateFromDiscussion("game-1", types.TeamRed, types.Clue{Text: "ocean", Number: 2}, entries, nil, nil, round)
		require.NoError(t, err)
	}

	analysis, err := store.AnalyzeInteractions("game-1", types.TeamRed)
	require.NoError(t, err)

	assert.Equal(t, RiskToleranceConservative, analysis.RiskProfiles["alice"])
	assert.Equal(t, RiskToleranceAggressive, analysis.RiskProfiles["carol"])

	// alice+bob agreed three times (+3); both diverged from carol (-1.5).
	require.Len(t, analysis.StrongPairs, 1)
	assert.Equal(t, AgentPairScore{AgentA: "alice", AgentB: "bob", Score: 3}, analysis.StrongPairs[0])
	assert.Empty(t, analysis.ConflictingPairs)

	// alice and bob hit consensus on all three suggestions, carol on none.
	assert.Equal(t, []string{"alice", "bob"}, analysis.Influencers)

	snap := store.GetOrCreate("game-1", types.TeamRed)
	assert.Equal(t, 3, snap.Agents["alice"].SuggestionsMade)
	assert.Equal(t, 3, snap.Agents["alice"].ConsensusHits)
	assert.Equal(t, 0, snap.Agents["carol"].ConsensusHits)
}

func TestDiscussionSummaryByRound(t *testing.T) {
	store := newTestStore(t)

	for round := 1; round <= 2; round++ {
		e := entry("alice", "WAVE fits", "WAVE", 0.8, 0)
		e.Round = round
		_, err := store.UpdateFromDiscussion("game-1", types.TeamRed, types.Clue{Text: "ocean", Number: 2},
			discussionRound(e), nil, nil, round)
		require.NoError(t, err)
	}

	latest, err := store.DiscussionSummary("game-1", types.TeamRed, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Round)

	first, err := store.DiscussionSummary("game-1", types.TeamRed, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Round)

	_, err = store.DiscussionSummary("game-1", types.TeamRed, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}
