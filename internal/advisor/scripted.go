package advisor

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned when a Scripted advisor runs out of queued
// suggestions.
var ErrScriptExhausted = errors.New("advisor: scripted suggestions exhausted")

// Scripted is a deterministic Advisor for tests and the demo binary. It pops
// suggestions from a queue in order.
type Scripted struct {
	mu    sync.Mutex
	queue []*Suggestion
	calls int
}

// NewScripted creates a scripted advisor with the given suggestion sequence.
func NewScripted(suggestions ...*Suggestion) *Scripted {
	return &Scripted{queue: suggestions}
}

// Enqueue appends further suggestions to the script.
func (s *Scripted) Enqueue(suggestions ...*Suggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, suggestions...)
}

// Calls returns how many times SuggestClue has been invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SuggestClue pops the next queued suggestion.
func (s *Scripted) SuggestClue(ctx context.Context, req Request) (*Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.queue) == 0 {
		return nil, ErrScriptExhausted
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, nil
}
