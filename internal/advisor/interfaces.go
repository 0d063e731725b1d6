// Package advisor defines the boundary to the clue/guess generation service.
// The engine treats the service as an opaque function with unspecified
// latency and possible failure; nothing here specifies its algorithm.
package advisor

import (
	"context"

	"github.com/huddleworks/huddle/pkg/types"
)

// Request carries the game state handed to the generation service.
type Request struct {
	GameID        string
	Team          types.Team
	Model         string
	TeamWords     []string
	OpponentWords []string
	Assassin      string
	Revealed      []string
	History       []types.HistoryEntry
	Score         types.Score
	CurrentTurn   types.Team
}

// Suggestion is the structured form of a generated clue suggestion.
// Words lists the board words the clue is meant to cover; Rationale is the
// free-text explanation produced alongside it.
type Suggestion struct {
	Agent      string
	Clue       string
	Number     int
	Words      []string
	Confidence float64
	Risk       types.RiskLevel
	Rationale  string
}

// Advisor produces clue suggestions for a team.
type Advisor interface {
	// SuggestClue generates one clue suggestion for the requesting team.
	// Implementations may block on network calls; callers pass a context
	// with an appropriate deadline.
	SuggestClue(ctx context.Context, req Request) (*Suggestion, error)
}
