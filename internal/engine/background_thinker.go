package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/huddleworks/huddle/internal/advisor"
	"github.com/huddleworks/huddle/internal/config"
	"github.com/huddleworks/huddle/internal/gamestore"
	"github.com/huddleworks/huddle/pkg/types"
)

// thinkSession is one (game, team) background task. The limiter and in-flight
// flag together form the single-flight debounce: at most one advisor call per
// session at a time, and never more often than the configured minimum gap.
type thinkSession struct {
	id       string
	gameID   string
	team     types.Team
	cancel   context.CancelFunc
	limiter  *rate.Limiter
	inFlight atomic.Bool
	done     chan struct{}
}

// BackgroundThinker runs periodic advisor passes for each registered
// (game, team) key while the opponent is playing, feeding the results back
// into the memory store as discussion input. Starting a session for a key
// atomically replaces any session already running for it.
type BackgroundThinker struct {
	mu       sync.Mutex
	sessions map[string]*thinkSession

	store    *Store
	games    gamestore.Provider
	advisors advisor.Advisor
	interval time.Duration
	minGap   time.Duration
}

// NewBackgroundThinker wires the scheduler to the memory store, the game
// record provider, and the advisor used for background suggestions.
func NewBackgroundThinker(store *Store, games gamestore.Provider, adv advisor.Advisor, cfg config.SchedulerConfig) *BackgroundThinker {
	interval := cfg.ThinkInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	minGap := cfg.MinThinkGap
	if minGap <= 0 {
		minGap = 5 * time.Second
	}
	return &BackgroundThinker{
		sessions: make(map[string]*thinkSession),
		store:    store,
		games:    games,
		advisors: adv,
		interval: interval,
		minGap:   minGap,
	}
}

// Start begins background thinking for the key. An existing session for the
// same key is stopped first and fully drained before the replacement starts,
// so at most one live task exists per key. skipFirst suppresses the immediate
// think that otherwise precedes the ticker loop.
//
// A missing game record or a team without a configured advisor model is not
// an error: the former is logged and skipped, the latter declines silently.
func (t *BackgroundThinker) Start(ctx context.Context, gameID string, team types.Team, skipFirst bool) error {
	if gameID == "" {
		return fmt.Errorf("thinker: game ID is required")
	}
	if !team.Valid() {
		return fmt.Errorf("thinker: unknown team %q", team)
	}

	record, err := t.games.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, gamestore.ErrNotFound) {
			log.Printf("thinker: game %s not found, skipping background thinking", gameID)
			return nil
		}
		return fmt.Errorf("thinker: load game %s: %w", gameID, err)
	}
	if record.AdvisorModel(team) == "" {
		return nil
	}
	if record.AllWordsRevealed(team) {
		log.Printf("thinker: game %s team %s has no words left, staying idle", gameID, team)
		return nil
	}

	key := memoryKey(gameID, team)
	sessionCtx, cancel := context.WithCancel(ctx)
	session := &thinkSession{
		id:      uuid.NewString(),
		gameID:  gameID,
		team:    team,
		cancel:  cancel,
		limiter: rate.NewLimiter(rate.Every(t.minGap), 1),
		done:    make(chan struct{}),
	}

	// Drain until the key is free. Concurrent Starts for the same key can
	// each install a session; re-checking after every drain guarantees the
	// one we install never overwrites a still-live loop.
	t.mu.Lock()
	for {
		old, ok := t.sessions[key]
		if !ok {
			break
		}
		old.cancel()
		t.mu.Unlock()
		<-old.done
		t.mu.Lock()
		if current, ok := t.sessions[key]; ok && current.id == old.id {
			delete(t.sessions, key)
		}
	}
	t.sessions[key] = session
	t.mu.Unlock()

	go t.run(sessionCtx, session, skipFirst)
	return nil
}

// Stop halts the session for the key and waits for its loop to exit.
// Stopping a key with no session is a no-op.
func (t *BackgroundThinker) Stop(gameID string, team types.Team) {
	key := memoryKey(gameID, team)

	t.mu.Lock()
	session, ok := t.sessions[key]
	if ok {
		delete(t.sessions, key)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	session.cancel()
	<-session.done
}

// StopAll halts every session.
func (t *BackgroundThinker) StopAll() {
	t.mu.Lock()
	sessions := make([]*thinkSession, 0, len(t.sessions))
	for key, session := range t.sessions {
		sessions = append(sessions, session)
		delete(t.sessions, key)
	}
	t.mu.Unlock()

	for _, session := range sessions {
		session.cancel()
		<-session.done
	}
}

// RestartAll stops and restarts both teams' sessions for the game, typically
// after an advisor model change.
func (t *BackgroundThinker) RestartAll(ctx context.Context, gameID string) error {
	for _, team := range types.Teams() {
		t.Stop(gameID, team)
		if err := t.Start(ctx, gameID, team, true); err != nil {
			return err
		}
	}
	return nil
}

// Running reports whether a session exists for the key.
func (t *BackgroundThinker) Running(gameID string, team types.Team) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[memoryKey(gameID, team)]
	return ok
}

// run is the session loop: an optional immediate think, then one tick per
// interval until cancelled or the team runs out of words.
func (t *BackgroundThinker) run(ctx context.Context, session *thinkSession, skipFirst bool) {
	defer close(session.done)
	defer t.remove(session)

	if !skipFirst && !t.tick(ctx, session) {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.tick(ctx, session) {
				return
			}
		}
	}
}

// remove deregisters the session unless it was already replaced.
func (t *BackgroundThinker) remove(session *thinkSession) {
	key := memoryKey(session.gameID, session.team)
	t.mu.Lock()
	if current, ok := t.sessions[key]; ok && current.id == session.id {
		delete(t.sessions, key)
	}
	t.mu.Unlock()
}

// tick reloads the game record and decides whether to think this cycle.
// Returns false when the session should terminate.
func (t *BackgroundThinker) tick(ctx context.Context, session *thinkSession) bool {
	record, err := t.games.GetGame(ctx, session.gameID)
	if err != nil {
		if errors.Is(err, gamestore.ErrNotFound) {
			log.Printf("thinker: game %s disappeared, stopping session for team %s", session.gameID, session.team)
			return false
		}
		log.Printf("thinker: load game %s: %v", session.gameID, err)
		return true
	}

	if record.AllWordsRevealed(session.team) {
		log.Printf("thinker: game %s team %s finished its words, stopping", session.gameID, session.team)
		return false
	}

	// Background thinking happens while the opponent plays; the team's own
	// turn is driven by live discussion instead.
	if record.CurrentTurn == session.team {
		return true
	}

	t.think(ctx, session, record)
	return true
}

// think runs one single-flight, rate-limited advisor pass and feeds the
// suggestion into the memory store. Transient advisor failures (including an
// open circuit) are logged and absorbed; the loop keeps its schedule.
func (t *BackgroundThinker) think(ctx context.Context, session *thinkSession, record *types.GameRecord) {
	if !session.inFlight.CompareAndSwap(false, true) {
		return
	}
	if !session.limiter.Allow() {
		session.inFlight.Store(false)
		return
	}

	go func() {
		defer session.inFlight.Store(false)

		suggestion, err := t.advisors.SuggestClue(ctx, advisor.Request{
			GameID:        session.gameID,
			Team:          session.team,
			Model:         record.AdvisorModel(session.team),
			TeamWords:     record.WordsFor(session.team),
			OpponentWords: record.WordsFor(session.team.Opponent()),
			Assassin:      record.AssassinWord,
			Revealed:      record.Revealed,
			History:       record.History,
			Score:         record.Score,
			CurrentTurn:   record.CurrentTurn,
		})
		if err != nil {
			log.Printf("thinker: game %s team %s suggestion failed: %v", session.gameID, session.team, err)
			return
		}
		// A cancelled session must not write results back.
		if ctx.Err() != nil {
			return
		}

		entries := suggestionEntries(suggestion)
		clue := types.Clue{Text: suggestion.Clue, Number: suggestion.Number}
		if _, err := t.store.UpdateFromDiscussion(session.gameID, session.team, clue, entries, record.History, record.Revealed, 0); err != nil {
			log.Printf("thinker: game %s team %s memory update failed: %v", session.gameID, session.team, err)
		}
	}()
}

// suggestionEntries converts one advisor suggestion into discussion entries,
// one per suggested word so the ledger records each association.
func suggestionEntries(s *advisor.Suggestion) []types.DiscussionEntry {
	now := time.Now()
	words := s.Words
	if len(words) == 0 && s.Clue != "" {
		words = []string{""}
	}

	message := s.Rationale
	if message == "" {
		message = fmt.Sprintf("background suggestion for clue %q", s.Clue)
	}

	entries := make([]types.DiscussionEntry, 0, len(words))
	for _, word := range words {
		entries = append(entries, types.DiscussionEntry{
			Agent:      s.Agent,
			Message:    message,
			Suggestion: word,
			Confidence: s.Confidence,
			Risk:       s.Risk,
			Timestamp:  now,
		})
	}
	return entries
}
