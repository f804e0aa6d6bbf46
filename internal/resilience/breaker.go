package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a call is rejected without invoking the
// wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the breaker state machine position.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards one collaborator source: it opens after consecutive
// failures, rejects calls while open, and after the cooldown lets exactly
// one probe through. One instance per source; sharing a breaker across
// sources would let one source's failures block another.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	timeout          time.Duration

	state        CircuitState
	failureCount int
	openedAt     time.Time
}

// NewCircuitBreaker creates a closed breaker for the named source.
func NewCircuitBreaker(name string, failureThreshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		timeout:          timeout,
		state:            CircuitClosed,
	}
}

// Call executes op under breaker protection.
func (b *CircuitBreaker) Call(op func() error) error {
	b.mu.Lock()
	switch b.state {
	case CircuitOpen:
		if time.Since(b.openedAt) < b.timeout {
			b.mu.Unlock()
			return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
		}
		b.state = CircuitHalfOpen
	case CircuitHalfOpen:
		// A probe is already in flight; exactly one trial call passes.
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	b.mu.Unlock()

	err := op()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failureCount++
		if b.state == CircuitHalfOpen || b.failureCount >= b.failureThreshold {
			b.state = CircuitOpen
			b.openedAt = time.Now()
		}
		return err
	}

	b.state = CircuitClosed
	b.failureCount = 0
	return nil
}

// State returns the current state. Read by the status server while a run is
// in flight.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current consecutive-failure count.
func (b *CircuitBreaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Name returns the guarded source name.
func (b *CircuitBreaker) Name() string { return b.name }
