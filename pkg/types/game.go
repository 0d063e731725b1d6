// Package types defines the shared data structures exchanged between the
// game layer, the discussion transcript provider, and the memory engine.
// These are in-process boundaries: no wire or file format is owned here.
package types

import "time"

// Team identifies one of the two competing teams.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Teams lists both teams in a fixed order.
func Teams() []Team {
	return []Team{TeamRed, TeamBlue}
}

// Opponent returns the opposing team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Valid reports whether t names a known team.
func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Outcome classifies the result of a single guess.
type Outcome string

const (
	// OutcomeCorrect means the guessed word belongs to the acting team.
	OutcomeCorrect Outcome = "correct"
	// OutcomeOpponent means the guessed word belongs to the other team.
	OutcomeOpponent Outcome = "opponent"
	// OutcomeNeutral means the guessed word belongs to neither team.
	OutcomeNeutral Outcome = "neutral"
	// OutcomeAssassin means the guessed word was the assassin.
	OutcomeAssassin Outcome = "assassin"
)

// Score is the mirrored score pair for both teams.
type Score struct {
	Red  int `json:"red"`
	Blue int `json:"blue"`
}

// For returns the score for the given team.
func (s Score) For(team Team) int {
	if team == TeamRed {
		return s.Red
	}
	return s.Blue
}

// Add adjusts the score for the given team by delta.
func (s *Score) Add(team Team, delta int) {
	if team == TeamRed {
		s.Red += delta
		return
	}
	s.Blue += delta
}

// HistoryKind distinguishes transcript entry types.
type HistoryKind string

const (
	HistoryClue  HistoryKind = "clue"
	HistoryGuess HistoryKind = "guess"
)

// HistoryEntry is one timestamped event in the authoritative game transcript.
// Clue entries carry Clue and Number; guess entries carry Word and Outcome.
type HistoryEntry struct {
	Kind      HistoryKind `json:"kind"`
	Team      Team        `json:"team"`
	Word      string      `json:"word,omitempty"`
	Clue      string      `json:"clue,omitempty"`
	Number    int         `json:"number,omitempty"`
	Outcome   Outcome     `json:"outcome,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Clue is a clue word together with its declared number.
type Clue struct {
	Text   string `json:"text"`
	Number int    `json:"number"`
}

// GameRecord is the authoritative game state supplied by the game layer.
// The memory engine only reads records; it never mutates one it loaded.
type GameRecord struct {
	ID            string          `json:"id"`
	RedWords      []string        `json:"red_words"`
	BlueWords     []string        `json:"blue_words"`
	AssassinWord  string          `json:"assassin_word"`
	Revealed      []string        `json:"revealed"`
	CurrentTurn   Team            `json:"current_turn"`
	Score         Score           `json:"score"`
	History       []HistoryEntry  `json:"history"`
	AdvisorModels map[Team]string `json:"advisor_models,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// WordsFor returns the word list owned by the given team.
func (g *GameRecord) WordsFor(team Team) []string {
	if team == TeamRed {
		return g.RedWords
	}
	return g.BlueWords
}

// AdvisorModel returns the advisor model configured for the team, if any.
func (g *GameRecord) AdvisorModel(team Team) string {
	if g.AdvisorModels == nil {
		return ""
	}
	return g.AdvisorModels[team]
}

// AllWordsRevealed reports whether every word owned by team has been revealed.
func (g *GameRecord) AllWordsRevealed(team Team) bool {
	revealed := make(map[string]bool, len(g.Revealed))
	for _, w := range g.Revealed {
		revealed[NormalizeWord(w)] = true
	}
	for _, w := range g.WordsFor(team) {
		if !revealed[NormalizeWord(w)] {
			return false
		}
	}
	return len(g.WordsFor(team)) > 0
}

// Clone returns a deep copy of the record. Providers hand out clones so the
// engine can never alias the authoritative state.
func (g *GameRecord) Clone() *GameRecord {
	if g == nil {
		return nil
	}
	clone := *g
	clone.RedWords = append([]string(nil), g.RedWords...)
	clone.BlueWords = append([]string(nil), g.BlueWords...)
	clone.Revealed = append([]string(nil), g.Revealed...)
	clone.History = append([]HistoryEntry(nil), g.History...)
	if g.AdvisorModels != nil {
		clone.AdvisorModels = make(map[Team]string, len(g.AdvisorModels))
		for k, v := range g.AdvisorModels {
			clone.AdvisorModels[k] = v
		}
	}
	return &clone
}
