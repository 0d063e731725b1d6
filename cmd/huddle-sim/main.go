// huddle-sim seeds a small game, runs a scripted discussion through the
// memory engine, and prints the resulting team memory. It exists to exercise
// the full wiring (config, game store, advisor, scheduler) outside of tests.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/huddleworks/huddle/internal/advisor"
	"github.com/huddleworks/huddle/internal/config"
	"github.com/huddleworks/huddle/internal/engine"
	"github.com/huddleworks/huddle/internal/gamestore"
	sqlitestore "github.com/huddleworks/huddle/internal/gamestore/sqlite"
	"github.com/huddleworks/huddle/pkg/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("huddle-sim: %v", err)
	}

	provider, cleanup, err := buildProvider(cfg.Storage)
	if err != nil {
		log.Fatalf("huddle-sim: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	store := engine.NewStore(cfg.Engine, nil)

	record := seedGame()
	if err := provider.SaveGame(ctx, record); err != nil {
		log.Fatalf("huddle-sim: save game: %v", err)
	}
	if err := store.Sync(record.ID, record); err != nil {
		log.Fatalf("huddle-sim: sync: %v", err)
	}
	log.Printf("seeded game %s, %s to move", record.ID, record.CurrentTurn)

	runDiscussion(store, record)
	runGuesses(store, record)
	runBackgroundThinking(ctx, cfg, store, provider, record)
	printSummary(store, record)
}

func buildProvider(cfg config.StorageConfig) (gamestore.Provider, func(), error) {
	switch cfg.Provider {
	case "sqlite":
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, nil, err
		}
		st, err := sqlitestore.New(filepath.Join(cfg.DataPath, "huddle.db"))
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		return gamestore.NewMemoryProvider(), func() {}, nil
	}
}

func seedGame() *types.GameRecord {
	return &types.GameRecord{
		ID:           "sim-game",
		RedWords:     []string{"WAVE", "FISH", "ANCHOR", "CORAL"},
		BlueWords:    []string{"MOON", "ROCKET", "STAR", "COMET"},
		AssassinWord: "SHARK",
		CurrentTurn:  types.TeamRed,
		AdvisorModels: map[types.Team]string{
			types.TeamRed:  "scripted-v1",
			types.TeamBlue: "scripted-v1",
		},
	}
}

func runDiscussion(store *engine.Store, record *types.GameRecord) {
	now := time.Now()
	entries := []types.DiscussionEntry{
		{Agent: "alice", Message: "WAVE is the clearest ocean word", Suggestion: "WAVE", Confidence: 0.9, Risk: types.RiskLow, Round: 1, Timestamp: now},
		{Agent: "bob", Message: "agreed, WAVE first then FISH", Suggestion: "WAVE", Confidence: 0.8, Risk: types.RiskLow, Round: 1, Timestamp: now.Add(time.Second)},
		{Agent: "carol", Message: "CORAL instead of WAVE, too risky with SHARK on the board", Suggestion: "CORAL", Confidence: 0.65, Risk: types.RiskHigh, Round: 1, Timestamp: now.Add(2 * time.Second)},
	}

	summary, err := store.UpdateFromDiscussion(
		record.ID, types.TeamRed,
		types.Clue{Text: "ocean", Number: 2},
		entries, record.History, record.Revealed, 1,
	)
	if err != nil {
		log.Fatalf("huddle-sim: discussion: %v", err)
	}
	log.Printf("round %d: consensus=%v word=%s level=%s conflicts=%d",
		summary.Round, summary.Consensus.Reached, summary.Consensus.Word, summary.Consensus.Level, len(summary.Conflicts))

	if len(summary.Conflicts) > 0 {
		c := summary.Conflicts[0]
		resolved := store.ResolveConflict(record.ID, types.TeamRed, c.WordA, c.WordB, "alice", "picked "+c.WordA)
		log.Printf("conflict %s vs %s resolved=%v", c.WordA, c.WordB, resolved)
	}
}

func runGuesses(store *engine.Store, record *types.GameRecord) {
	for _, guess := range []struct {
		word    string
		outcome types.Outcome
	}{
		{"WAVE", types.OutcomeCorrect},
		{"CORAL", types.OutcomeCorrect},
	} {
		if err := store.ApplyTurnResult(record.ID, types.TeamRed, guess.word, guess.outcome, "ocean"); err != nil {
			log.Fatalf("huddle-sim: turn result: %v", err)
		}
		record.Revealed = append(record.Revealed, guess.word)
		log.Printf("guessed %s: %s", guess.word, guess.outcome)
	}

	active, err := store.ActiveClues(record.ID, types.TeamRed, "")
	if err != nil {
		log.Fatalf("huddle-sim: active clues: %v", err)
	}
	for _, clue := range active {
		log.Printf("still active: %q (%d) remaining=%d unrevealed=%v",
			clue.Text, clue.Number, clue.RemainingGuesses, clue.UnrevealedWords)
	}
}

func runBackgroundThinking(ctx context.Context, cfg *config.Config, store *engine.Store, provider gamestore.Provider, record *types.GameRecord) {
	scripted := advisor.NewScripted(
		&advisor.Suggestion{
			Agent:      "advisor-blue",
			Clue:       "space",
			Number:     2,
			Words:      []string{"MOON", "STAR"},
			Confidence: 0.85,
			Risk:       types.RiskLow,
			Rationale:  "MOON and STAR both orbit the space theme",
		},
	)
	thinker := engine.NewBackgroundThinker(store, provider, advisor.NewBreaker(scripted), cfg.Scheduler)

	// Red is playing, so blue thinks in the background.
	if err := thinker.Start(ctx, record.ID, types.TeamBlue, false); err != nil {
		log.Fatalf("huddle-sim: start thinker: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	thinker.StopAll()
	log.Printf("background advisor calls: %d", scripted.Calls())
}

func printSummary(store *engine.Store, record *types.GameRecord) {
	summary, err := store.GetSpymasterSummary(record.ID, types.TeamRed)
	if err != nil {
		log.Fatalf("huddle-sim: summary: %v", err)
	}
	log.Printf("red summary: score %d-%d, guess rate %.2f, avg guesses/clue %.2f",
		summary.Score.Red, summary.Score.Blue, summary.CorrectGuessRate, summary.AverageGuessesPerClue)
	for _, w := range summary.TeamWords {
		log.Printf("  team word %-8s revealed=%v", w.Word, w.Revealed)
	}

	analysis, err := store.AnalyzeInteractions(record.ID, types.TeamRed)
	if err != nil {
		log.Fatalf("huddle-sim: analysis: %v", err)
	}
	for agent, tolerance := range analysis.RiskProfiles {
		log.Printf("  agent %-6s risk tolerance: %s", agent, tolerance)
	}
}
