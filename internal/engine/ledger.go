package engine

import (
	"sort"
	"time"

	"github.com/huddleworks/huddle/pkg/types"
)

// AssociationUpdate carries one round's worth of evidence for a (word, clue)
// pair into the ledger.
type AssociationUpdate struct {
	Confidence  float64
	Mentions    int
	MentionedAt time.Time
	Supporters  []string
	Opposers    []string
	Risk        types.RiskLevel
}

// upsertAssociation merges upd into the association for (word, clue),
// creating it if absent. Merge rules: confidence takes the max, mention
// counts add, supporter/opposer sets union, risk escalates monotonically,
// and status is recomputed from the merged state.
func (m *TeamGameMemory) upsertAssociation(word, clue string, upd AssociationUpdate) *WordAssociation {
	norm := types.NormalizeWord(word)

	assoc := m.findAssociation(norm, clue)
	if assoc == nil {
		assoc = &WordAssociation{
			Word:             norm,
			Clue:             clue,
			FirstMentionedAt: upd.MentionedAt,
			Supporters:       make(map[string]bool),
			Opposers:         make(map[string]bool),
			Status:           AssociationUncertain,
		}
		m.Associations[norm] = append(m.Associations[norm], assoc)
	}

	if upd.Confidence > assoc.Confidence {
		assoc.Confidence = upd.Confidence
	}
	assoc.MentionCount += upd.Mentions
	if upd.MentionedAt.After(assoc.LastMentionedAt) {
		assoc.LastMentionedAt = upd.MentionedAt
	}
	if assoc.FirstMentionedAt.IsZero() || (!upd.MentionedAt.IsZero() && upd.MentionedAt.Before(assoc.FirstMentionedAt)) {
		assoc.FirstMentionedAt = upd.MentionedAt
	}
	for _, agent := range upd.Supporters {
		assoc.Supporters[agent] = true
	}
	for _, agent := range upd.Opposers {
		assoc.Opposers[agent] = true
	}
	assoc.Risk = types.MaxRisk(assoc.Risk, upd.Risk)

	m.recomputeAssociationState(assoc)
	return assoc
}

// findAssociation locates the association for (word, clue), if any. Multiple
// associations may exist for one word under different clues.
func (m *TeamGameMemory) findAssociation(word, clue string) *WordAssociation {
	norm := types.NormalizeWord(word)
	for _, assoc := range m.Associations[norm] {
		if assoc.Clue == clue {
			return assoc
		}
	}
	return nil
}

// recomputeAssociationState refreshes the ownership flags and lifecycle
// status of one association from the current board state.
func (m *TeamGameMemory) recomputeAssociationState(assoc *WordAssociation) {
	assoc.IsTeamWord, assoc.IsOpponentWord, assoc.IsNeutralWord, assoc.IsAssassin = m.wordOwnership(assoc.Word)

	switch {
	case m.Revealed[types.NormalizeWord(assoc.Word)]:
		assoc.Status = AssociationGuessed
	case len(assoc.Opposers) > len(assoc.Supporters):
		assoc.Status = AssociationRejected
	case len(assoc.Supporters) > 0:
		assoc.Status = AssociationActive
	default:
		assoc.Status = AssociationUncertain
	}
}

// refreshLedger runs the full update pass over every association: ownership
// flags and status from current board state, then related-word derivation.
// The related-word pass is O(distinct words²), which is fine at game scale
// of tens of words.
func (m *TeamGameMemory) refreshLedger() {
	for _, assocs := range m.Associations {
		for _, assoc := range assocs {
			m.recomputeAssociationState(assoc)
		}
	}

	// cluesByWord: word -> set of clues it appears under.
	cluesByWord := make(map[string]map[string]bool, len(m.Associations))
	for word, assocs := range m.Associations {
		set := make(map[string]bool, len(assocs))
		for _, assoc := range assocs {
			set[assoc.Clue] = true
		}
		cluesByWord[word] = set
	}

	for word, assocs := range m.Associations {
		var related []string
		for other, otherClues := range cluesByWord {
			if other == word {
				continue
			}
			for clue := range cluesByWord[word] {
				if otherClues[clue] {
					related = append(related, other)
					break
				}
			}
		}
		sort.Strings(related)
		for _, assoc := range assocs {
			assoc.RelatedWords = related
		}
	}
}
