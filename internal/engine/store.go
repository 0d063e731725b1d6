package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huddleworks/huddle/internal/config"
	"github.com/huddleworks/huddle/pkg/types"
)

// ErrNotFound is returned by query operations when no memory exists for the
// requested (game, team) key.
var ErrNotFound = errors.New("engine: no memory for game and team")

// Store owns one TeamGameMemory per (game, team) key. It is constructed once
// per process and passed explicitly to every caller; there are no ambient
// singletons. Writes for the same key are serialized; queries observe a
// consistent snapshot as of the last completed write.
type Store struct {
	mu       sync.RWMutex
	memories map[string]*TeamGameMemory

	cfg       config.EngineConfig
	consensus *consensusEngine
}

// NewStore creates an empty memory store with the given heuristics. A nil
// detector falls back to the phrase-based default built from the config's
// disagreement phrase list.
func NewStore(cfg config.EngineConfig, detector DisagreementDetector) *Store {
	if cfg.RiskHistoryWindow < 1 {
		cfg.RiskHistoryWindow = 10
	}
	return &Store{
		memories:  make(map[string]*TeamGameMemory),
		cfg:       cfg,
		consensus: newConsensusEngine(cfg, detector),
	}
}

func memoryKey(gameID string, team types.Team) string {
	return gameID + ":" + string(team)
}

// getOrCreate returns the memory for the key, creating it lazily.
func (s *Store) getOrCreate(gameID string, team types.Team) *TeamGameMemory {
	key := memoryKey(gameID, team)

	s.mu.RLock()
	m, ok := s.memories[key]
	s.mu.RUnlock()
	if ok {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok = s.memories[key]; ok {
		return m
	}
	m = newTeamGameMemory(gameID, team)
	s.memories[key] = m
	return m
}

// lookup returns the memory for the key or ErrNotFound.
func (s *Store) lookup(gameID string, team types.Team) (*TeamGameMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[memoryKey(gameID, team)]
	if !ok {
		return nil, fmt.Errorf("game %q team %q: %w", gameID, team, ErrNotFound)
	}
	return m, nil
}

// GetOrCreate lazily creates the memory for the key (empty on first access)
// and returns a read-only snapshot of it.
func (s *Store) GetOrCreate(gameID string, team types.Team) *MemorySnapshot {
	m := s.getOrCreate(gameID, team)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshotMemory(m)
}

// Sync refreshes both teams' memories from the authoritative game record:
// word sets, revealed cards, assassin, mirrored score, and current-turn
// pointer, then replays the transcript through the clue lifecycle tracker.
// The record itself is never mutated.
func (s *Store) Sync(gameID string, record *types.GameRecord) error {
	if record == nil {
		return fmt.Errorf("engine: game record is required")
	}
	if gameID == "" {
		gameID = record.ID
	}
	if gameID == "" {
		return fmt.Errorf("engine: game ID is required")
	}

	for _, team := range types.Teams() {
		m := s.getOrCreate(gameID, team)
		m.mu.Lock()

		m.TeamWords = wordSet(record.WordsFor(team))
		m.OpponentWords = wordSet(record.WordsFor(team.Opponent()))
		m.Revealed = wordSet(record.Revealed)
		m.Assassin = types.NormalizeWord(record.AssassinWord)
		m.Score = record.Score
		m.CurrentTurn = record.CurrentTurn

		m.applyHistory(record.History)
		m.refreshLedger()
		m.UpdatedAt = time.Now()

		m.mu.Unlock()
	}
	return nil
}

// UpdateFromDiscussion is the per-round entry point. It validates the
// entries, opens or updates the clue, aggregates the round through the
// consensus engine, updates the word-association ledger and agent
// personalities, appends the round to history, and replays the transcript to
// self-heal clue state. Returns a summary of the appended round.
func (s *Store) UpdateFromDiscussion(
	gameID string,
	team types.Team,
	clue types.Clue,
	entries []types.DiscussionEntry,
	history []types.HistoryEntry,
	revealed []string,
	round int,
) (*RoundSummary, error) {
	if gameID == "" {
		return nil, fmt.Errorf("engine: game ID is required")
	}
	if !team.Valid() {
		return nil, fmt.Errorf("engine: unknown team %q", team)
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("engine: invalid discussion entry %d: %w", i, err)
		}
	}

	m := s.getOrCreate(gameID, team)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range revealed {
		m.Revealed[types.NormalizeWord(w)] = true
	}
	if round <= 0 {
		round = len(m.Rounds) + 1
	}

	var clueMem *ClueMemory
	if clue.Text != "" {
		clueMem = m.openOrUpdateClue(clue.Text, clue.Number)
	}

	out := s.consensus.aggregate(entries, round, m.Revealed)

	roundRecord := &DiscussionRound{
		ID:           uuid.NewString(),
		Round:        round,
		Timestamp:    time.Now(),
		Consensus:    out.Consensus,
		Participants: out.Participants,
	}

	for _, c := range out.Candidates {
		m.upsertAssociation(c.Word, clue.Text, AssociationUpdate{
			Confidence:  c.avgConfidence,
			Mentions:    c.Mentions,
			MentionedAt: c.LastMention,
			Supporters:  sortedKeys(c.Supporters),
			Opposers:    sortedKeys(c.Opposers),
			Risk:        c.Risk,
		})
		if clueMem != nil {
			clueMem.addSuggestedWord(c.Word)
		}
		roundRecord.SuggestedWords = append(roundRecord.SuggestedWords, c.Word)
	}

	for _, pair := range out.Conflicts {
		conflict := m.registerConflict(pair, round)
		roundRecord.Conflicts = append(roundRecord.Conflicts, *conflict)
	}

	s.updatePersonalities(m, out, clue)

	m.Rounds = append(m.Rounds, roundRecord)

	// Replay the transcript when one was provided; otherwise just re-check
	// clue resolution against the merged reveal state.
	if len(history) > 0 {
		m.applyHistory(history)
	} else {
		m.archiveResolvedClues()
	}
	m.refreshLedger()
	m.UpdatedAt = time.Now()

	return summarizeRound(roundRecord), nil
}

// registerConflict appends a conflict record for the pair unless one already
// exists for the same unordered pair (resolved or not). Returns the record
// covering the pair.
func (m *TeamGameMemory) registerConflict(pair conflictPair, round int) *ConflictMemory {
	for _, existing := range m.Conflicts {
		if existing.matches(pair.WordA, pair.WordB) {
			return existing
		}
	}
	conflict := &ConflictMemory{
		ID:         uuid.NewString(),
		WordA:      pair.WordA,
		WordB:      pair.WordB,
		AgentA:     pair.AgentA,
		AgentB:     pair.AgentB,
		Round:      round,
		DetectedAt: time.Now(),
	}
	m.Conflicts = append(m.Conflicts, conflict)
	return conflict
}

// updatePersonalities applies one round's entries to the agents' risk
// profiles, per-clue suggestion history, and pairwise agreement scores.
func (s *Store) updatePersonalities(m *TeamGameMemory, out *roundOutcome, clue types.Clue) {
	suggestionByAgent := make(map[string]string)

	for _, e := range out.Entries {
		p := m.personality(e.Agent)
		p.recordRisk(e.Risk, s.cfg.RiskHistoryWindow)

		word := types.NormalizeWord(e.Suggestion)
		if word == "" {
			continue
		}
		p.SuggestionsMade++
		suggestionByAgent[e.Agent] = word
		if clue.Text != "" {
			key := foldClue(clue.Text)
			if !containsString(p.ClueAssociations[key], word) {
				p.ClueAssociations[key] = append(p.ClueAssociations[key], word)
			}
		}
	}

	// Pairwise agreement: +1 for matching suggestions, -0.5 for differing
	// suggestions within the same round.
	agents := sortedAgentKeys(suggestionByAgent)
	for i := 1; i < len(agents); i++ {
		for j := 0; j < i; j++ {
			a, b := agents[j], agents[i]
			delta := -0.5
			if suggestionByAgent[a] == suggestionByAgent[b] {
				delta = 1.0
			}
			m.personality(a).Agreement[b] += delta
			m.personality(b).Agreement[a] += delta
		}
	}

	if out.Consensus.Reached {
		for agent, word := range suggestionByAgent {
			if word == out.Consensus.Word {
				m.personality(agent).ConsensusHits++
			}
		}
	}
}

// ApplyTurnResult is the per-guess entry point. It records the outcome
// against the team's active clue and updates the mirrored score, counters,
// reveal state, and current-turn pointer per the outcome.
func (s *Store) ApplyTurnResult(gameID string, team types.Team, word string, outcome types.Outcome, clueText string) error {
	if gameID == "" || word == "" {
		return fmt.Errorf("engine: game ID and word are required")
	}
	if !team.Valid() {
		return fmt.Errorf("engine: unknown team %q", team)
	}

	m := s.getOrCreate(gameID, team)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applyTurnResult(word, outcome, clueText)
	m.UpdatedAt = time.Now()
	return nil
}

// ResolveConflict marks the conflict covering the unordered pair (wordA,
// wordB) as resolved. It returns false — not an error — when no unresolved
// conflict exists for the pair; a conflict resolves true exactly once.
func (s *Store) ResolveConflict(gameID string, team types.Team, wordA, wordB, resolvedBy, resolution string) bool {
	m, err := s.lookup(gameID, team)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conflict := range m.Conflicts {
		if !conflict.matches(wordA, wordB) {
			continue
		}
		if conflict.Resolved {
			return false
		}
		conflict.Resolved = true
		conflict.ResolvedBy = resolvedBy
		conflict.Resolution = resolution
		conflict.ResolvedAt = time.Now()
		m.UpdatedAt = time.Now()
		return true
	}
	return false
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[types.NormalizeWord(w)] = true
	}
	return set
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func sortedAgentKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
