package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddleworks/huddle/internal/config"
	"github.com/huddleworks/huddle/pkg/types"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		SupportThreshold:         0.6,
		OpposeThreshold:          0.3,
		HighSupportPercentage:    0.7,
		MediumSupportPercentage:  0.5,
		StrongAgreementThreshold: 2.0,
		InfluencerConsensusRate:  0.7,
		InfluencerMinSuggestions: 3,
		RiskHistoryWindow:        10,
		DisagreementPhrases:      config.DefaultDisagreementPhrases(),
	}
}

func entry(agent, message, suggestion string, confidence float64, offset time.Duration) types.DiscussionEntry {
	return types.DiscussionEntry{
		Agent:      agent,
		Message:    message,
		Suggestion: suggestion,
		Confidence: confidence,
		Round:      1,
		Timestamp:  time.Now().Add(offset),
	}
}

func TestConsensusThreeParticipants(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)

	entries := []types.DiscussionEntry{
		entry("alice", "OCEAN points straight at WAVE", "WAVE", 0.9, 0),
		entry("bob", "WAVE works for me too", "WAVE", 0.8, time.Second),
		entry("carol", "thinking about FISH", "FISH", 0.4, 2*time.Second),
	}

	out := ce.aggregate(entries, 1, nil)
	require.Equal(t, 3, out.Participants)

	// Two of three supporters is Medium: the 0.7 share for High is not met.
	assert.True(t, out.Consensus.Reached)
	assert.Equal(t, "WAVE", out.Consensus.Word)
	assert.Equal(t, types.ConsensusMedium, out.Consensus.Level)
	assert.Equal(t, []string{"alice", "bob"}, out.Consensus.Supporters)

	// Carol coming around at 0.65 makes it three supporters: High.
	entries = append(entries, entry("carol", "fine, WAVE is safer", "WAVE", 0.65, 3*time.Second))
	out = ce.aggregate(entries, 1, nil)
	assert.Equal(t, types.ConsensusHigh, out.Consensus.Level)
	assert.Equal(t, []string{"alice", "bob", "carol"}, out.Consensus.Supporters)
}

func TestConsensusLevelMonotonicInSupporters(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)
	levels := map[types.ConsensusLevel]int{
		types.ConsensusNone:   0,
		types.ConsensusLow:    1,
		types.ConsensusMedium: 2,
		types.ConsensusHigh:   3,
	}

	agents := []string{"a", "b", "c", "d", "e"}
	previous := types.ConsensusNone
	var entries []types.DiscussionEntry
	for i, agent := range agents {
		entries = append(entries, entry(agent, "WAVE looks right", "WAVE", 0.8, time.Duration(i)*time.Second))
		out := ce.aggregate(entries, 1, nil)
		assert.GreaterOrEqual(t, levels[out.Consensus.Level], levels[previous],
			"adding supporter %s must not lower the consensus level", agent)
		previous = out.Consensus.Level
	}
}

func TestConsensusOpposersAndRevealedWords(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)

	entries := []types.DiscussionEntry{
		entry("alice", "WAVE feels strong", "WAVE", 0.9, 0),
		entry("bob", "not sold on WAVE at all", "WAVE", 0.1, time.Second),
		entry("carol", "FISH could work", "FISH", 0.7, 2*time.Second),
	}

	out := ce.aggregate(entries, 1, map[string]bool{"FISH": true})

	// FISH is revealed so only WAVE remains a candidate.
	require.Len(t, out.Candidates, 1)
	wave := out.Candidates[0]
	assert.Equal(t, "WAVE", wave.Word)
	assert.Equal(t, []string{"alice"}, sortedKeys(wave.Supporters))
	assert.Equal(t, []string{"bob"}, sortedKeys(wave.Opposers))
}

func TestConsensusMidConfidenceIsNeitherSupportNorOpposition(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)

	out := ce.aggregate([]types.DiscussionEntry{
		entry("alice", "WAVE maybe", "WAVE", 0.45, 0),
	}, 1, nil)

	require.Len(t, out.Candidates, 1)
	c := out.Candidates[0]
	assert.Equal(t, 1, c.Mentions)
	assert.Empty(t, c.Supporters)
	assert.Empty(t, c.Opposers)
	assert.Equal(t, types.ConsensusNone, out.Consensus.Level)
	assert.False(t, out.Consensus.Reached)
}

func TestConsensusRepeatedSupportDoesNotInflateConfidence(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)

	entries := []types.DiscussionEntry{
		entry("alice", "WAVE is great", "WAVE", 0.8, 0),
		entry("alice", "WAVE, I repeat", "WAVE", 0.8, time.Second),
		entry("alice", "still WAVE but less sure", "WAVE", 0.6, 2*time.Second),
	}

	out := ce.aggregate(entries, 1, nil)
	require.Len(t, out.Candidates, 1)
	c := out.Candidates[0]

	assert.Equal(t, 3, c.Mentions)
	assert.Equal(t, []string{"alice"}, sortedKeys(c.Supporters))
	assert.Equal(t, 0.8, c.avgConfidence,
		"one supporter repeating themselves keeps their highest confidence, never a sum")
	assert.LessOrEqual(t, c.avgConfidence, 1.0)
}

func TestConsensusRankingPrefersNetSupport(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)

	entries := []types.DiscussionEntry{
		entry("alice", "WAVE is great", "WAVE", 0.9, 0),
		entry("bob", "WAVE is great", "WAVE", 0.85, time.Second),
		entry("carol", "FISH then", "FISH", 0.95, 2*time.Second),
	}

	out := ce.aggregate(entries, 1, nil)
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "WAVE", out.Candidates[0].Word, "two supporters beat one higher-confidence supporter")
}

func TestDetectConflicts(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)

	entries := []types.DiscussionEntry{
		entry("alice", "WAVE is the pick", "WAVE", 0.9, 0),
		entry("bob", "CORAL instead of WAVE, WAVE is too risky", "CORAL", 0.7, time.Second),
		entry("carol", "I'd avoid WAVE as well, CORAL it is", "CORAL", 0.7, 2*time.Second),
	}

	conflicts := ce.detectConflicts(entries)
	require.Len(t, conflicts, 1, "the same unordered word pair is recorded once")
	assert.Equal(t, "WAVE", conflicts[0].WordA)
	assert.Equal(t, "CORAL", conflicts[0].WordB)
	assert.Equal(t, "alice", conflicts[0].AgentA)
	assert.Equal(t, "bob", conflicts[0].AgentB)
}

func TestDetectConflictsIgnoresSameAgentAndSameWord(t *testing.T) {
	ce := newConsensusEngine(testEngineConfig(), nil)

	entries := []types.DiscussionEntry{
		entry("alice", "WAVE is the pick", "WAVE", 0.9, 0),
		// Same agent changing their mind is not a conflict.
		entry("alice", "actually CORAL instead of WAVE", "CORAL", 0.7, time.Second),
		// Agreeing on the same word is not a conflict even with marker phrases.
		entry("bob", "I don't think WAVE is bad at all", "WAVE", 0.8, 2*time.Second),
	}

	assert.Empty(t, ce.detectConflicts(entries))
}

func TestPhraseDisagreementRequiresMentionAndMarker(t *testing.T) {
	d := NewPhraseDisagreement(nil)

	earlier := types.DiscussionEntry{Agent: "alice", Message: "WAVE", Suggestion: "WAVE"}

	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"marker and mention", "CORAL instead of wave", true},
		{"marker without mention", "CORAL is too risky", false},
		{"mention without marker", "wave sounds good", false},
		{"case-insensitive mention", "I disagree, WaVe is wrong", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			later := types.DiscussionEntry{Agent: "bob", Message: tt.message, Suggestion: "CORAL"}
			assert.Equal(t, tt.want, d.Disagrees(later, earlier))
		})
	}
}
