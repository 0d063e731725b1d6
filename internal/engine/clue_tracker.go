package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/huddleworks/huddle/pkg/types"
)

// foldClue canonicalizes clue text for identity comparisons.
func foldClue(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// openOrUpdateClue returns the active clue memory for text, creating it if
// absent. Idempotent: re-opening an existing clue updates the declared number
// and restores the remaining-guess invariant.
func (m *TeamGameMemory) openOrUpdateClue(text string, number int) *ClueMemory {
	key := foldClue(text)
	if key == "" {
		return nil
	}

	if clue, ok := m.ActiveClues[key]; ok {
		if number > 0 && number != clue.Number {
			clue.Number = number
			clue.recomputeRemaining()
		}
		return clue
	}

	// A clue already archived is not reopened; history replay keeps its
	// record in the successful/failed lists.
	if archived := m.findArchivedClue(key); archived != nil {
		return archived
	}

	clue := &ClueMemory{
		Text:      strings.TrimSpace(text),
		Number:    number,
		CreatedAt: time.Now(),
	}
	clue.recomputeRemaining()
	m.ActiveClues[key] = clue
	return clue
}

func (m *TeamGameMemory) findArchivedClue(key string) *ClueMemory {
	for _, clue := range m.SuccessfulClues {
		if foldClue(clue.Text) == key {
			return clue
		}
	}
	for _, clue := range m.FailedClues {
		if foldClue(clue.Text) == key {
			return clue
		}
	}
	return nil
}

// applyHistory replays the authoritative transcript, reconstructing the
// guess sets, success/failure flags, remaining-guess counters, and running
// guess counters per clue. Each guess is matched to the most recent clue
// issued by the same team at or before it. This is how memory self-heals
// after being rebuilt from scratch.
func (m *TeamGameMemory) applyHistory(history []types.HistoryEntry) {
	ordered := append([]types.HistoryEntry(nil), history...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	type replay struct {
		text    string
		number  int
		issued  time.Time
		guesses []types.HistoryEntry
	}

	var current *replay
	replays := make(map[string]*replay)
	correct, incorrect := 0, 0

	for _, entry := range ordered {
		if entry.Team != m.Team {
			continue
		}
		switch entry.Kind {
		case types.HistoryClue:
			key := foldClue(entry.Clue)
			if key == "" {
				continue
			}
			r, ok := replays[key]
			if !ok {
				r = &replay{text: entry.Clue, number: entry.Number, issued: entry.Timestamp}
				replays[key] = r
			} else if entry.Number > 0 {
				r.number = entry.Number
			}
			current = r
		case types.HistoryGuess:
			if entry.Outcome == types.OutcomeCorrect {
				correct++
			} else {
				incorrect++
			}
			if current != nil {
				current.guesses = append(current.guesses, entry)
			}
		}
	}

	m.CorrectGuesses = correct
	m.IncorrectGuesses = incorrect

	for _, r := range replays {
		clue := m.openOrUpdateClue(r.text, r.number)
		if clue == nil {
			continue
		}
		if !r.issued.IsZero() {
			clue.CreatedAt = r.issued
		}

		// Rebuild the guess set and flags from the transcript alone.
		clue.GuessedWords = nil
		clue.Success = false
		clue.Failed = false
		for _, guess := range r.guesses {
			if !clue.hasGuessed(guess.Word) {
				clue.GuessedWords = append(clue.GuessedWords, types.NormalizeWord(guess.Word))
			}
			if guess.Outcome == types.OutcomeCorrect {
				clue.Success = true
			} else {
				clue.Failed = true
			}
		}
		clue.recomputeRemaining()
	}

	m.archiveResolvedClues()
}

// applyTurnResult records one guess outcome against the team's active clue.
// clueText is optional; when empty the most recently issued active clue is
// used. The guessed word joins the revealed set, the mirrored score and
// running counters are adjusted per the outcome, and an assassin outcome
// flips the current-team pointer (the game-ending score stays with the game
// layer).
func (m *TeamGameMemory) applyTurnResult(word string, outcome types.Outcome, clueText string) {
	norm := types.NormalizeWord(word)
	m.Revealed[norm] = true

	switch outcome {
	case types.OutcomeCorrect:
		m.CorrectGuesses++
		m.Score.Add(m.Team, 1)
	case types.OutcomeOpponent:
		m.IncorrectGuesses++
		m.Score.Add(m.Team.Opponent(), 1)
	case types.OutcomeNeutral:
		m.IncorrectGuesses++
	case types.OutcomeAssassin:
		m.IncorrectGuesses++
		m.CurrentTurn = m.Team.Opponent()
	}

	clue := m.activeClueFor(clueText)
	if clue != nil {
		clue.recordGuess(norm)
		if outcome == types.OutcomeCorrect {
			clue.Success = true
		} else {
			clue.Failed = true
		}
	}

	for _, assoc := range m.Associations[norm] {
		m.recomputeAssociationState(assoc)
	}

	m.archiveResolvedClues()
}

// activeClueFor resolves which active clue a guess applies to: the named clue
// when given, otherwise the most recently issued active clue.
func (m *TeamGameMemory) activeClueFor(clueText string) *ClueMemory {
	if clueText != "" {
		return m.ActiveClues[foldClue(clueText)]
	}

	var latest *ClueMemory
	for _, clue := range m.ActiveClues {
		if latest == nil || clue.CreatedAt.After(latest.CreatedAt) {
			latest = clue
		}
	}
	return latest
}

// archiveResolvedClues moves every active clue whose suggested words are all
// revealed into the successful or failed history, per its accumulated success
// flag. A clue with unrevealed suggested words stays active across turn
// boundaries even when its guess counter is exhausted.
func (m *TeamGameMemory) archiveResolvedClues() {
	for key, clue := range m.ActiveClues {
		if !clue.allSuggestedRevealed(m.Revealed) {
			continue
		}
		delete(m.ActiveClues, key)
		if clue.Success {
			m.SuccessfulClues = append(m.SuccessfulClues, clue)
		} else {
			m.FailedClues = append(m.FailedClues, clue)
		}
	}
}
