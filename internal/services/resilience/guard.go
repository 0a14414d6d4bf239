// Package resilience wraps risky calls to external dependencies with a
// circuit breaker and a cached-value fallback. It guards the external
// authorization source and the notification dispatch; the wallet/ledger
// persistence path is never guarded.
package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// ErrServiceUnavailable is returned when a guarded dependency is down and no
// cached fallback value exists.
var ErrServiceUnavailable = errors.New("service unavailable")

// State mirrors the breaker's state machine.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// FallbackStore persists the last successful result per logical call key.
type FallbackStore interface {
	GetFallback(ctx context.Context, key string, dest interface{}) (bool, error)
	SetFallback(ctx context.Context, key string, value interface{}) error
}

// Config holds the breaker thresholds.
type Config struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which the closed-state failure counts reset.
	Interval time.Duration
	// Cooldown before an open breaker lets a probe through.
	Cooldown time.Duration
	// FailureRatio that trips the breaker once MinRequests were seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultConfig returns conservative thresholds suitable for the
// authorization and notification dependencies.
func DefaultConfig() Config {
	return Config{
		MaxRequests:  1,
		Interval:     time.Minute,
		Cooldown:     30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Guard wraps calls to one external dependency. When the call fails or the
// breaker is open it substitutes the last cached successful result for the
// same logical key.
type Guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	store   FallbackStore
}

// NewGuard creates a guard named after the dependency it protects.
// store may be nil for calls whose results are not worth caching; such a
// guard fails with ErrServiceUnavailable when the dependency is down.
func NewGuard(name string, cfg Config, store FallbackStore) *Guard {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Guard{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
		store:   store,
	}
}

// Execute runs fn through the circuit breaker. A successful result is cached
// under key; a failed or short-circuited call returns the cached value for
// the same key, or ErrServiceUnavailable when none exists.
func (g *Guard) Execute(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := g.breaker.Execute(fn)
	if err == nil {
		g.cache(ctx, key, result)
		return result, nil
	}

	if cached, ok := g.fallback(ctx, key); ok {
		log.Printf("guard %s: using cached result for %s after failure: %v", g.name, key, err)
		return cached, nil
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrServiceUnavailable, g.name, err)
}

// State reports the breaker's current state.
func (g *Guard) State() State {
	switch g.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

func (g *Guard) cache(ctx context.Context, key string, value interface{}) {
	if g.store == nil {
		return
	}
	if err := g.store.SetFallback(ctx, key, value); err != nil {
		log.Printf("guard %s: failed to cache result for %s: %v", g.name, key, err)
	}
}

func (g *Guard) fallback(ctx context.Context, key string) (interface{}, bool) {
	if g.store == nil {
		return nil, false
	}
	var raw json.RawMessage
	found, err := g.store.GetFallback(ctx, key, &raw)
	if err != nil || !found {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return value, true
}
