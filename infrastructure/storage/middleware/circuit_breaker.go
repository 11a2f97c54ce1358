package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-tender/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a call without
// reaching the store. It is the ports sentinel so callers outside this
// package classify it as a storage failure.
var ErrCircuitOpen = ports.ErrCircuitOpen

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all calls to pass through normally.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all calls immediately.
	// The circuit enters this state after too many consecutive failures.
	StateOpen

	// StateHalfOpen lets one call through to test recovery.
	// The circuit transitions to this state after the cooldown period expires.
	StateHalfOpen
)

// String returns the state name used in metric labels.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after maxFailures consecutive store failures and
// rejects calls until cooldownDuration has passed. Only infrastructure
// failures count: a not-found or duplicate-bid answer means the store is
// healthy.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	halfOpenInFlight bool
	now              func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the specified configuration.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// Call executes fn through the circuit breaker.
// If the circuit is open, this returns ErrCircuitOpen immediately. The lock
// is held only while the state is checked and updated, so calls in the
// closed state run concurrently. In the half-open state a single trial call
// is let through and every other call is rejected until it finishes.
func (cb *CircuitBreaker) Call(fn func() error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(trial, err)
	return err
}

// admit decides whether a call may run and whether it is the half-open
// trial call.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldownDuration {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenInFlight = true
		return true, nil
	case StateHalfOpen:
		if cb.halfOpenInFlight {
			return false, ErrCircuitOpen
		}
		cb.halfOpenInFlight = true
		return true, nil
	default:
		return false, nil
	}
}

// record folds the outcome of an admitted call into the breaker state.
func (cb *CircuitBreaker) record(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.halfOpenInFlight = false
		if countsAsFailure(err) {
			cb.failureCount++
			cb.lastFailure = cb.now()
			cb.state = StateOpen
			return
		}
		cb.failureCount = 0
		cb.state = StateClosed
		return
	}

	// A call admitted while closed may finish after the breaker opened; it
	// must not close the breaker again.
	if countsAsFailure(err) {
		cb.failureCount++
		cb.lastFailure = cb.now()
		if cb.state == StateClosed && cb.failureCount >= cb.maxFailures {
			cb.state = StateOpen
		}
		return
	}
	if cb.state == StateClosed {
		cb.failureCount = 0
	}
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func countsAsFailure(err error) bool {
	return err != nil && (ports.IsStorageError(err) || errors.Is(err, context.DeadlineExceeded))
}

// CircuitBreakerMiddleware creates middleware that guards the store with cb.
// One breaker is shared by every operation of the wrapped store.
func CircuitBreakerMiddleware(cb *CircuitBreaker, collector ports.MetricsCollector) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, op Operation) error {
			err := cb.Call(func() error { return next(ctx, op) })
			if collector != nil {
				collector.RecordGauge("store_circuit_state", float64(cb.GetState()),
					map[string]string{"state": cb.GetState().String()})
				if errors.Is(err, ErrCircuitOpen) {
					collector.RecordCounter("store_circuit_rejections_total", 1,
						map[string]string{"operation": op.Name})
				}
			}
			return err
		}
	}
}
