package advisor

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the circuit breaker is in open state
// and rejects requests to prevent cascading failures.
var ErrCircuitOpen = errors.New("advisor: circuit breaker is open")

// BreakerConfig holds the configuration for the circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip the
	// circuit. Default: 3
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning to
	// half-open. Default: 30 seconds
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of consecutive successes required in
	// half-open state to close the circuit again. Default: 2
	HalfOpenMaxSuccesses uint32
}

// Breaker wraps an Advisor with a circuit breaker so a flapping generation
// service cannot stall background thinking sessions. A rejected or failed
// call surfaces as an error the scheduler logs and retries on its next tick.
type Breaker struct {
	inner   Advisor
	breaker *gobreaker.CircuitBreaker
}

// NewBreaker wraps the given advisor with default breaker settings:
// MaxFailures 3, Timeout 30s, HalfOpenMaxSuccesses 2.
func NewBreaker(inner Advisor) *Breaker {
	return NewBreakerWithConfig(inner, BreakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	})
}

// NewBreakerWithConfig wraps the given advisor with custom breaker settings.
func NewBreakerWithConfig(inner Advisor, config BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        "AdvisorCircuitBreaker",
		MaxRequests: config.HalfOpenMaxSuccesses,
		Interval:    0, // don't clear counts periodically
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
	}

	return &Breaker{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SuggestClue runs the wrapped advisor through the circuit breaker.
// If the circuit is open it returns ErrCircuitOpen immediately.
func (b *Breaker) SuggestClue(ctx context.Context, req Request) (*Suggestion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.SuggestClue(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	return result.(*Suggestion), nil
}

// State returns the current breaker state: "closed", "open", or "half-open".
func (b *Breaker) State() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
