package types

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeWord canonicalizes a board word or suggestion for comparison.
// Words are matched case-insensitively throughout the engine.
func NormalizeWord(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

// RiskLevel classifies how risky a suggested guess is considered.
type RiskLevel string

const (
	// RiskUnknown means no risk label was provided.
	RiskUnknown RiskLevel = ""
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

// Valid reports whether r is a known risk level (including unknown).
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskUnknown, RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// rank orders risk levels Low < Medium < High. Unknown ranks below Low.
func (r RiskLevel) rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 0
}

// MaxRisk returns the higher of two risk levels using the monotonic
// Low < Medium < High ordering. Risk only ever escalates.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ConsensusLevel classifies how strongly a discussion round agreed on a word.
type ConsensusLevel string

const (
	ConsensusNone   ConsensusLevel = "none"
	ConsensusLow    ConsensusLevel = "low"
	ConsensusMedium ConsensusLevel = "medium"
	ConsensusHigh   ConsensusLevel = "high"
)

// DiscussionEntry is one validated discussion message from an agent.
// Suggestion, Risk, and Round are optional; a zero Round means the entry
// belongs to the current round.
type DiscussionEntry struct {
	Agent      string    `json:"agent"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	Confidence float64   `json:"confidence"`
	Risk       RiskLevel `json:"risk,omitempty"`
	Round      int       `json:"round,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate checks the required fields of a discussion entry at the ingestion
// boundary. Entries are never inferred ad hoc past this point.
func (e *DiscussionEntry) Validate() error {
	if strings.TrimSpace(e.Agent) == "" {
		return fmt.Errorf("discussion entry: agent is required")
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("discussion entry from %q: message is required", e.Agent)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("discussion entry from %q: confidence %.2f outside [0,1]", e.Agent, e.Confidence)
	}
	if !e.Risk.Valid() {
		return fmt.Errorf("discussion entry from %q: unknown risk level %q", e.Agent, e.Risk)
	}
	if e.Round < 0 {
		return fmt.Errorf("discussion entry from %q: round %d is negative", e.Agent, e.Round)
	}
	return nil
}
