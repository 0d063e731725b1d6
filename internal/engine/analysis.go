package engine

import (
	"sort"
	"time"

	"github.com/huddleworks/huddle/pkg/types"
)

// Snapshot types returned by Store queries. Every snapshot is a deep copy:
// callers never receive a mutable reference into live memory.

// AssociationSnapshot is the read-only view of one word/clue association.
type AssociationSnapshot struct {
	Word             string
	Clue             string
	Confidence       float64
	MentionCount     int
	FirstMentionedAt time.Time
	LastMentionedAt  time.Time
	Supporters       []string
	Opposers         []string
	Risk             types.RiskLevel
	Status           AssociationStatus
	IsTeamWord       bool
	IsOpponentWord   bool
	IsNeutralWord    bool
	IsAssassin       bool
	RelatedWords     []string
}

// ClueSnapshot is the read-only view of one clue's lifecycle state.
type ClueSnapshot struct {
	Text             string
	Number           int
	CreatedAt        time.Time
	SuggestedWords   []string
	GuessedWords     []string
	UnrevealedWords  []string
	RemainingGuesses int
	Success          bool
	Failed           bool
}

// ConflictSnapshot is the read-only view of one recorded conflict.
type ConflictSnapshot struct {
	ID         string
	WordA      string
	WordB      string
	AgentA     string
	AgentB     string
	Round      int
	DetectedAt time.Time
	Resolved   bool
	ResolvedBy string
	Resolution string
	ResolvedAt time.Time
}

// RoundSummary is the read-only view of one discussion round.
type RoundSummary struct {
	ID             string
	Round          int
	Timestamp      time.Time
	SuggestedWords []string
	Conflicts      []ConflictSnapshot
	Consensus      ConsensusSnapshot
	Participants   int
}

// AgentSnapshot is the read-only view of one agent's accumulated personality.
type AgentSnapshot struct {
	Agent            string
	RiskTolerance    RiskTolerance
	ClueAssociations map[string][]string
	Agreement        map[string]float64
	SuggestionsMade  int
	ConsensusHits    int
}

// MemorySnapshot is the full read-only view of one (game, team) memory.
type MemorySnapshot struct {
	GameID      string
	Team        types.Team
	Score       types.Score
	CurrentTurn types.Team

	Associations    map[string][]AssociationSnapshot
	ActiveClues     []ClueSnapshot
	SuccessfulClues []ClueSnapshot
	FailedClues     []ClueSnapshot
	Conflicts       []ConflictSnapshot
	Rounds          []RoundSummary
	Agents          map[string]AgentSnapshot

	CorrectGuesses   int
	IncorrectGuesses int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AgentPairScore is one agent pair's accumulated agreement score.
type AgentPairScore struct {
	AgentA string
	AgentB string
	Score  float64
}

// InteractionAnalysis summarizes team dynamics: pairs that consistently
// agree or clash, agents whose suggestions usually become the consensus
// pick, and each agent's risk appetite.
type InteractionAnalysis struct {
	StrongPairs      []AgentPairScore
	ConflictingPairs []AgentPairScore
	Influencers      []string
	RiskProfiles     map[string]RiskTolerance
}

// WordStatus pairs a board word with its reveal state.
type WordStatus struct {
	Word     string
	Revealed bool
}

// SpymasterSummary is the team-level performance digest used to brief the
// clue giver before the next clue.
type SpymasterSummary struct {
	GameID      string
	Team        types.Team
	Score       types.Score
	CurrentTurn types.Team

	TeamWords       []WordStatus
	OpponentWords   []WordStatus
	NeutralRevealed []string

	SuccessfulClues []ClueSnapshot
	FailedClues     []ClueSnapshot

	CorrectGuessRate      float64
	AverageGuessesPerClue float64
}

// ActiveClues returns the team's unresolved clues, most recent first.
// excludeClue, when non-empty, filters out that clue by case-folded identity.
// Only clues with at least one unrevealed suggested word are returned.
func (s *Store) ActiveClues(gameID string, team types.Team, excludeClue string) ([]ClueSnapshot, error) {
	m, err := s.lookup(gameID, team)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	exclude := foldClue(excludeClue)
	var out []ClueSnapshot
	for key, clue := range m.ActiveClues {
		if exclude != "" && key == exclude {
			continue
		}
		if len(clue.unrevealedSuggested(m.Revealed)) == 0 {
			continue
		}
		out = append(out, snapshotClue(clue, m.Revealed))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DiscussionSummary returns the summary of the given round, or of the most
// recent round when round <= 0. A missing round yields ErrNotFound.
func (s *Store) DiscussionSummary(gameID string, team types.Team, round int) (*RoundSummary, error) {
	m, err := s.lookup(gameID, team)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.Rounds) == 0 {
		return nil, ErrNotFound
	}
	if round <= 0 {
		return summarizeRound(m.Rounds[len(m.Rounds)-1]), nil
	}
	for i := len(m.Rounds) - 1; i >= 0; i-- {
		if m.Rounds[i].Round == round {
			return summarizeRound(m.Rounds[i]), nil
		}
	}
	return nil, ErrNotFound
}

// UnresolvedConflicts returns the team's open conflicts in detection order.
func (s *Store) UnresolvedConflicts(gameID string, team types.Team) ([]ConflictSnapshot, error) {
	m, err := s.lookup(gameID, team)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ConflictSnapshot
	for _, conflict := range m.Conflicts {
		if !conflict.Resolved {
			out = append(out, snapshotConflict(conflict))
		}
	}
	return out, nil
}

// WordAssociations returns every association recorded for the word, in clue
// arrival order. An unknown word yields an empty slice, not an error.
func (s *Store) WordAssociations(gameID string, team types.Team, word string) ([]AssociationSnapshot, error) {
	m, err := s.lookup(gameID, team)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	assocs := m.Associations[types.NormalizeWord(word)]
	out := make([]AssociationSnapshot, 0, len(assocs))
	for _, assoc := range assocs {
		out = append(out, snapshotAssociation(assoc))
	}
	return out, nil
}

// AnalyzeInteractions derives team dynamics from the accumulated agreement
// scores, consensus hit rates, and risk histories.
func (s *Store) AnalyzeInteractions(gameID string, team types.Team) (*InteractionAnalysis, error) {
	m, err := s.lookup(gameID, team)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	analysis := &InteractionAnalysis{
		RiskProfiles: make(map[string]RiskTolerance, len(m.Personalities)),
	}

	agents := make([]string, 0, len(m.Personalities))
	for agent, p := range m.Personalities {
		agents = append(agents, agent)
		analysis.RiskProfiles[agent] = p.RiskTolerance

		if p.SuggestionsMade >= s.cfg.InfluencerMinSuggestions {
			rate := float64(p.ConsensusHits) / float64(p.SuggestionsMade)
			if rate >= s.cfg.InfluencerConsensusRate {
				analysis.Influencers = append(analysis.Influencers, agent)
			}
		}
	}
	sort.Strings(agents)
	sort.Strings(analysis.Influencers)

	for i := 1; i < len(agents); i++ {
		for j := 0; j < i; j++ {
			a, b := agents[j], agents[i]
			score, ok := m.Personalities[a].Agreement[b]
			if !ok {
				continue
			}
			pair := AgentPairScore{AgentA: a, AgentB: b, Score: score}
			switch {
			case score >= s.cfg.StrongAgreementThreshold:
				analysis.StrongPairs = append(analysis.StrongPairs, pair)
			case score <= -s.cfg.StrongAgreementThreshold:
				analysis.ConflictingPairs = append(analysis.ConflictingPairs, pair)
			}
		}
	}

	sort.Slice(analysis.StrongPairs, func(i, j int) bool {
		return analysis.StrongPairs[i].Score > analysis.StrongPairs[j].Score
	})
	sort.Slice(analysis.ConflictingPairs, func(i, j int) bool {
		return analysis.ConflictingPairs[i].Score < analysis.ConflictingPairs[j].Score
	})
	return analysis, nil
}

// GetSpymasterSummary builds the clue-giver briefing: board state by
// ownership, clue track record, and guess accuracy.
func (s *Store) GetSpymasterSummary(gameID string, team types.Team) (*SpymasterSummary, error) {
	m, err := s.lookup(gameID, team)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := &SpymasterSummary{
		GameID:        m.GameID,
		Team:          m.Team,
		Score:         m.Score,
		CurrentTurn:   m.CurrentTurn,
		TeamWords:     wordStatuses(m.TeamWords, m.Revealed),
		OpponentWords: wordStatuses(m.OpponentWords, m.Revealed),
	}

	for word := range m.Revealed {
		_, _, neutral, _ := m.wordOwnership(word)
		if neutral {
			summary.NeutralRevealed = append(summary.NeutralRevealed, word)
		}
	}
	sort.Strings(summary.NeutralRevealed)

	for _, clue := range m.SuccessfulClues {
		summary.SuccessfulClues = append(summary.SuccessfulClues, snapshotClue(clue, m.Revealed))
	}
	for _, clue := range m.FailedClues {
		summary.FailedClues = append(summary.FailedClues, snapshotClue(clue, m.Revealed))
	}

	if total := m.CorrectGuesses + m.IncorrectGuesses; total > 0 {
		summary.CorrectGuessRate = float64(m.CorrectGuesses) / float64(total)
	}
	archived := len(m.SuccessfulClues) + len(m.FailedClues)
	if archived > 0 {
		guesses := 0
		for _, clue := range m.SuccessfulClues {
			guesses += len(clue.GuessedWords)
		}
		for _, clue := range m.FailedClues {
			guesses += len(clue.GuessedWords)
		}
		summary.AverageGuessesPerClue = float64(guesses) / float64(archived)
	}
	return summary, nil
}

func wordStatuses(words, revealed map[string]bool) []WordStatus {
	out := make([]WordStatus, 0, len(words))
	for word := range words {
		out = append(out, WordStatus{Word: word, Revealed: revealed[word]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out
}

func snapshotAssociation(a *WordAssociation) AssociationSnapshot {
	return AssociationSnapshot{
		Word:             a.Word,
		Clue:             a.Clue,
		Confidence:       a.Confidence,
		MentionCount:     a.MentionCount,
		FirstMentionedAt: a.FirstMentionedAt,
		LastMentionedAt:  a.LastMentionedAt,
		Supporters:       sortedKeys(a.Supporters),
		Opposers:         sortedKeys(a.Opposers),
		Risk:             a.Risk,
		Status:           a.Status,
		IsTeamWord:       a.IsTeamWord,
		IsOpponentWord:   a.IsOpponentWord,
		IsNeutralWord:    a.IsNeutralWord,
		IsAssassin:       a.IsAssassin,
		RelatedWords:     append([]string(nil), a.RelatedWords...),
	}
}

func snapshotClue(c *ClueMemory, revealed map[string]bool) ClueSnapshot {
	return ClueSnapshot{
		Text:             c.Text,
		Number:           c.Number,
		CreatedAt:        c.CreatedAt,
		SuggestedWords:   append([]string(nil), c.SuggestedWords...),
		GuessedWords:     append([]string(nil), c.GuessedWords...),
		UnrevealedWords:  c.unrevealedSuggested(revealed),
		RemainingGuesses: c.RemainingGuesses,
		Success:          c.Success,
		Failed:           c.Failed,
	}
}

func snapshotConflict(c *ConflictMemory) ConflictSnapshot {
	return ConflictSnapshot{
		ID:         c.ID,
		WordA:      c.WordA,
		WordB:      c.WordB,
		AgentA:     c.AgentA,
		AgentB:     c.AgentB,
		Round:      c.Round,
		DetectedAt: c.DetectedAt,
		Resolved:   c.Resolved,
		ResolvedBy: c.ResolvedBy,
		Resolution: c.Resolution,
		ResolvedAt: c.ResolvedAt,
	}
}

func summarizeRound(r *DiscussionRound) *RoundSummary {
	summary := &RoundSummary{
		ID:             r.ID,
		Round:          r.Round,
		Timestamp:      r.Timestamp,
		SuggestedWords: append([]string(nil), r.SuggestedWords...),
		Consensus:      r.Consensus,
		Participants:   r.Participants,
	}
	summary.Consensus.Supporters = append([]string(nil), r.Consensus.Supporters...)
	summary.Consensus.Opposers = append([]string(nil), r.Consensus.Opposers...)
	for i := range r.Conflicts {
		summary.Conflicts = append(summary.Conflicts, snapshotConflict(&r.Conflicts[i]))
	}
	return summary
}

func snapshotAgent(p *AgentPersonality) AgentSnapshot {
	snap := AgentSnapshot{
		Agent:            p.Agent,
		RiskTolerance:    p.RiskTolerance,
		ClueAssociations: make(map[string][]string, len(p.ClueAssociations)),
		Agreement:        make(map[string]float64, len(p.Agreement)),
		SuggestionsMade:  p.SuggestionsMade,
		ConsensusHits:    p.ConsensusHits,
	}
	for clue, words := range p.ClueAssociations {
		snap.ClueAssociations[clue] = append([]string(nil), words...)
	}
	for agent, score := range p.Agreement {
		snap.Agreement[agent] = score
	}
	return snap
}

// snapshotMemory deep-copies the entire memory. Caller holds m.mu.
func snapshotMemory(m *TeamGameMemory) *MemorySnapshot {
	snap := &MemorySnapshot{
		GameID:           m.GameID,
		Team:             m.Team,
		Score:            m.Score,
		CurrentTurn:      m.CurrentTurn,
		Associations:     make(map[string][]AssociationSnapshot, len(m.Associations)),
		Agents:           make(map[string]AgentSnapshot, len(m.Personalities)),
		CorrectGuesses:   m.CorrectGuesses,
		IncorrectGuesses: m.IncorrectGuesses,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}

	for word, assocs := range m.Associations {
		copies := make([]AssociationSnapshot, 0, len(assocs))
		for _, assoc := range assocs {
			copies = append(copies, snapshotAssociation(assoc))
		}
		snap.Associations[word] = copies
	}

	for _, clue := range m.ActiveClues {
		snap.ActiveClues = append(snap.ActiveClues, snapshotClue(clue, m.Revealed))
	}
	sort.Slice(snap.ActiveClues, func(i, j int) bool {
		return snap.ActiveClues[i].CreatedAt.Before(snap.ActiveClues[j].CreatedAt)
	})
	for _, clue := range m.SuccessfulClues {
		snap.SuccessfulClues = append(snap.SuccessfulClues, snapshotClue(clue, m.Revealed))
	}
	for _, clue := range m.FailedClues {
		snap.FailedClues = append(snap.FailedClues, snapshotClue(clue, m.Revealed))
	}

	for _, conflict := range m.Conflicts {
		snap.Conflicts = append(snap.Conflicts, snapshotConflict(conflict))
	}
	for _, round := range m.Rounds {
		snap.Rounds = append(snap.Rounds, *summarizeRound(round))
	}
	for agent, p := range m.Personalities {
		snap.Agents[agent] = snapshotAgent(p)
	}
	return snap
}
