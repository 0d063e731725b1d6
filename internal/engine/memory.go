// Package engine implements the team game-memory engine: the per-team,
// per-game strategic state that accumulates across discussion rounds and
// turns. Memory is owned by the Store, mutated only through its operations,
// and rebuilt from the authoritative game transcript on each sync — it has
// no durability beyond the process lifetime.
package engine

import (
	"sync"
	"time"

	"github.com/huddleworks/huddle/pkg/types"
)

// AssociationStatus is the lifecycle status of a word/clue association.
type AssociationStatus string

const (
	// AssociationActive means the word has supporters and is still in play.
	AssociationActive AssociationStatus = "active"
	// AssociationGuessed means the word has been revealed.
	AssociationGuessed AssociationStatus = "guessed"
	// AssociationRejected means opposers outnumber supporters.
	AssociationRejected AssociationStatus = "rejected"
	// AssociationUncertain means nobody has taken a position yet.
	AssociationUncertain AssociationStatus = "uncertain"
)

// RiskTolerance classifies an agent's overall risk appetite.
type RiskTolerance string

const (
	RiskToleranceConservative RiskTolerance = "conservative"
	RiskToleranceBalanced     RiskTolerance = "balanced"
	RiskToleranceAggressive   RiskTolerance = "aggressive"
)

// WordAssociation records one (word, clue) pairing and the support it has
// gathered. Ownership flags are always recomputed from the current team,
// opponent, assassin, and revealed state, never stored independently of it.
type WordAssociation struct {
	Word             string
	Clue             string
	Confidence       float64
	MentionCount     int
	FirstMentionedAt time.Time
	LastMentionedAt  time.Time
	Supporters       map[string]bool
	Opposers         map[string]bool
	Risk             types.RiskLevel
	Status           AssociationStatus

	// Derived ownership flags, mutually exclusive and exhaustive.
	IsTeamWord     bool
	IsOpponentWord bool
	IsNeutralWord  bool
	IsAssassin     bool

	// RelatedWords lists other words sharing at least one clue with this one.
	// Recomputed on each full ledger pass.
	RelatedWords []string
}

// ClueMemory tracks the lifecycle of one clue given by the team.
// Invariant: RemainingGuesses = max(0, Number + 1 - |GuessedWords|); the +1
// reflects the rule that a team may guess once beyond the declared count.
type ClueMemory struct {
	Text             string
	Number           int
	CreatedAt        time.Time
	SuggestedWords   []string
	GuessedWords     []string
	RemainingGuesses int
	Success          bool
	Failed           bool
}

// hasGuessed reports whether the word is already in the guessed set.
func (c *ClueMemory) hasGuessed(word string) bool {
	norm := types.NormalizeWord(word)
	for _, g := range c.GuessedWords {
		if types.NormalizeWord(g) == norm {
			return true
		}
	}
	return false
}

// recordGuess appends word to the guessed set once and recomputes the
// remaining-guess counter.
func (c *ClueMemory) recordGuess(word string) {
	if !c.hasGuessed(word) {
		c.GuessedWords = append(c.GuessedWords, types.NormalizeWord(word))
	}
	c.recomputeRemaining()
}

// recomputeRemaining restores the remaining-guess invariant.
func (c *ClueMemory) recomputeRemaining() {
	remaining := c.Number + 1 - len(c.GuessedWords)
	if remaining < 0 {
		remaining = 0
	}
	c.RemainingGuesses = remaining
}

// hasSuggested reports whether word is in the clue's suggested list.
func (c *ClueMemory) hasSuggested(word string) bool {
	norm := types.NormalizeWord(word)
	for _, s := range c.SuggestedWords {
		if types.NormalizeWord(s) == norm {
			return true
		}
	}
	return false
}

// addSuggestedWord appends word to the suggested list once.
func (c *ClueMemory) addSuggestedWord(word string) {
	if !c.hasSuggested(word) {
		c.SuggestedWords = append(c.SuggestedWords, types.NormalizeWord(word))
	}
}

// unrevealedSuggested returns suggested words not yet in the revealed set.
func (c *ClueMemory) unrevealedSuggested(revealed map[string]bool) []string {
	var out []string
	for _, w := range c.SuggestedWords {
		if !revealed[types.NormalizeWord(w)] {
			out = append(out, w)
		}
	}
	return out
}

// allSuggestedRevealed reports whether the clue has at least one suggested
// word and every one of them has been revealed. Exhausting the guess counter
// alone never resolves a clue; an unresolved clue can be reconsidered later.
func (c *ClueMemory) allSuggestedRevealed(revealed map[string]bool) bool {
	if len(c.SuggestedWords) == 0 {
		return false
	}
	return len(c.unrevealedSuggested(revealed)) == 0
}

// ConflictMemory records a disagreement between two agents over a pair of
// suggested words. Conflicts are append-only and never deleted; resolution
// is permanent once set.
type ConflictMemory struct {
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

// matches reports whether the conflict covers the unordered word pair (a, b).
func (c *ConflictMemory) matches(a, b string) bool {
	na, nb := types.NormalizeWord(a), types.NormalizeWord(b)
	ca, cb := types.NormalizeWord(c.WordA), types.NormalizeWord(c.WordB)
	return (ca == na && cb == nb) || (ca == nb && cb == na)
}

// ConsensusSnapshot captures the outcome of one round's consensus ranking.
type ConsensusSnapshot struct {
	Reached    bool
	Word       string
	Level      types.ConsensusLevel
	Support    float64
	Supporters []string
	Opposers   []string
}

// DiscussionRound is the immutable record of one discussion round. Rounds
// accumulate as an ordered sequence and are never modified once appended.
type DiscussionRound struct {
	ID             string
	Round          int
	Timestamp      time.Time
	SuggestedWords []string
	Conflicts      []ConflictMemory
	Consensus      ConsensusSnapshot
	Participants   int
}

// AgentPersonality tracks a single agent's risk profile, per-clue suggestion
// history, and pairwise agreement with every other agent. Updated
// incrementally; never reset except when the memory is recreated.
type AgentPersonality struct {
	Agent            string
	RiskTolerance    RiskTolerance
	RiskHistory      []types.RiskLevel
	ClueAssociations map[string][]string
	Agreement        map[string]float64
	SuggestionsMade  int
	ConsensusHits    int
}

func newAgentPersonality(agent string) *AgentPersonality {
	return &AgentPersonality{
		Agent:            agent,
		RiskTolerance:    RiskToleranceBalanced,
		ClueAssociations: make(map[string][]string),
		Agreement:        make(map[string]float64),
	}
}

// recordRisk appends a risk label, trims the history to the window, and
// recomputes the tolerance by majority vote over the window.
func (p *AgentPersonality) recordRisk(risk types.RiskLevel, window int) {
	if risk == types.RiskUnknown {
		return
	}
	p.RiskHistory = append(p.RiskHistory, risk)
	if window > 0 && len(p.RiskHistory) > window {
		p.RiskHistory = p.RiskHistory[len(p.RiskHistory)-window:]
	}

	counts := make(map[types.RiskLevel]int, 3)
	for _, r := range p.RiskHistory {
		counts[r]++
	}
	best, bestCount := types.RiskMedium, 0
	for _, level := range []types.RiskLevel{types.RiskLow, types.RiskMedium, types.RiskHigh} {
		if counts[level] > bestCount {
			best, bestCount = level, counts[level]
		}
	}
	switch best {
	case types.RiskLow:
		p.RiskTolerance = RiskToleranceConservative
	case types.RiskHigh:
		p.RiskTolerance = RiskToleranceAggressive
	default:
		p.RiskTolerance = RiskToleranceBalanced
	}
}

// TeamGameMemory is the complete strategic memory for one (game, team) key.
// It is created lazily, lives for the process lifetime of the game, and is
// owned exclusively by the Store — never shared by mutable reference.
type TeamGameMemory struct {
	mu sync.RWMutex

	GameID string
	Team   types.Team

	TeamWords     map[string]bool
	OpponentWords map[string]bool
	Revealed      map[string]bool
	Assassin      string
	Score         types.Score
	CurrentTurn   types.Team

	// Associations maps each word to its ordered sequence of per-clue
	// associations, in clue arrival order.
	Associations map[string][]*WordAssociation

	ActiveClues     map[string]*ClueMemory
	SuccessfulClues []*ClueMemory
	FailedClues     []*ClueMemory

	Conflicts     []*ConflictMemory
	Rounds        []*DiscussionRound
	Personalities map[string]*AgentPersonality

	CorrectGuesses   int
	IncorrectGuesses int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newTeamGameMemory(gameID string, team types.Team) *TeamGameMemory {
	now := time.Now()
	return &TeamGameMemory{
		GameID:        gameID,
		Team:          team,
		TeamWords:     make(map[string]bool),
		OpponentWords: make(map[string]bool),
		Revealed:      make(map[string]bool),
		Associations:  make(map[string][]*WordAssociation),
		ActiveClues:   make(map[string]*ClueMemory),
		Personalities: make(map[string]*AgentPersonality),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// personality returns the agent's personality record, creating it on first use.
func (m *TeamGameMemory) personality(agent string) *AgentPersonality {
	p, ok := m.Personalities[agent]
	if !ok {
		p = newAgentPersonality(agent)
		m.Personalities[agent] = p
	}
	return p
}

// wordOwnership classifies a word against the current team, opponent,
// assassin, and revealed state. Exactly one of the returned flags is true
// for every word in the team's known vocabulary.
func (m *TeamGameMemory) wordOwnership(word string) (team, opponent, neutral, assassin bool) {
	norm := types.NormalizeWord(word)
	switch {
	case m.Assassin != "" && types.NormalizeWord(m.Assassin) == norm:
		assassin = true
	case m.TeamWords[norm]:
		team = true
	case m.OpponentWords[norm]:
		opponent = true
	default:
		neutral = true
	}
	return
}
