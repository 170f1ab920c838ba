package ai

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

// ErrCircuitOpen is returned without calling the provider while the circuit is open.
var ErrCircuitOpen = errors.New("ai circuit open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets every call through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the recovery timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after failureThreshold consecutive provider failures.
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	state            CircuitState
	failureCount     int
	openedAt         time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments fall back to 3 failures and 30s.
func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{name: name, failureThreshold: failureThreshold, recoveryTimeout: recoveryTimeout, now: time.Now}
}

// Allow reports whether a call may proceed, moving open to half-open once the timeout elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.recoveryTimeout {
			return false
		}
		cb.setState(CircuitHalfOpen)
		cb.probing = true
		return true
	default:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.probing = false
	if cb.state != CircuitClosed {
		slog.Info("ai circuit closed", slog.String("name", cb.name))
		cb.setState(CircuitClosed)
	}
}

// RecordFailure counts a failure; a failed probe reopens the circuit immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.probing = false
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("ai circuit opened", slog.String("name", cb.name), slog.Int("failures", cb.failureCount))
		}
		cb.openedAt = cb.now()
		cb.setState(CircuitOpen)
	}
}

func (cb *CircuitBreaker) releaseProbe() {
	cb.mu.Lock()
	cb.probing = false
	cb.mu.Unlock()
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	observability.AICircuitState.WithLabelValues(cb.name).Set(float64(s))
}

type breakerGenerator struct {
	base domain.TextGenerator
	cb   *CircuitBreaker
}

// WithCircuitBreaker guards base with cb. Caller cancellation is not counted as a failure.
func WithCircuitBreaker(base domain.TextGenerator, cb *CircuitBreaker) domain.TextGenerator {
	if cb == nil || base == nil {
		return base
	}
	return &breakerGenerator{base: base, cb: cb}
}

func (g *breakerGenerator) Generate(ctx domain.Context, prompt string) (string, error) {
	if !g.cb.Allow() {
		return "", fmt.Errorf("op=ai.generate: %w: %w", ErrCircuitOpen, domain.ErrUpstreamTimeout)
	}
	text, err := g.base.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() == nil {
			g.cb.RecordFailure()
		} else {
			g.cb.releaseProbe()
		}
		return "", err
	}
	g.cb.RecordSuccess()
	return text, nil
}
