// Package resilience guards calls to external services with a circuit
// breaker, so a failing dependency is given time to recover instead of
// being hammered by every request.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/edgard/baristabot/internal/metrics"
)

// ErrCircuitOpen is returned without calling the operation while the
// breaker is open or its half-open probe quota is used up.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState mirrors the breaker state for logs and metrics.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func mapState(state gobreaker.State) CircuitState {
	switch state {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// BreakerConfig configures a CircuitBreaker. Zero values take defaults.
type BreakerConfig struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker. Default 5.
	MaxFailures int
	// Cooldown is how long the breaker stays open before probing. Default 30s.
	Cooldown time.Duration
	// HalfOpenLimit is the number of probe calls allowed while half-open. Default 1.
	HalfOpenLimit int
	// IsFailure decides which errors count against the service. By default
	// every error does except context cancellation and deadline expiry.
	IsFailure func(err error) bool
	Logger    *slog.Logger
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "circuit_breaker", "name", cfg.Name)

	maxFailures := uint32(cfg.MaxFailures)
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.HalfOpenLimit),
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !cfg.IsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromState, toState := mapState(from), mapState(to)
			metrics.BreakerState.WithLabelValues(name).Set(float64(toState))
			log.Warn("Circuit breaker state changed", "from", fromState, "to", toState)
		},
	}

	metrics.BreakerState.WithLabelValues(cfg.Name).Set(float64(StateClosed))
	return &CircuitBreaker{name: cfg.Name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the current breaker state.
func (b *CircuitBreaker) State() CircuitState {
	return mapState(b.cb.State())
}

// Execute runs op through the breaker. Errors from op are returned
// unchanged; a rejected call returns ErrCircuitOpen.
func Execute[T any](b *CircuitBreaker, op func() (T, error)) (T, error) {
	var zero T
	res, err := b.cb.Execute(func() (any, error) {
		return op()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, ErrCircuitOpen
	}
	if err != nil {
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}
