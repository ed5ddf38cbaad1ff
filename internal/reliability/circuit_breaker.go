package reliability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	// StateClosed - Normal operation, requests pass through
	StateClosed CircuitState = iota
	// StateOpen - Circuit is open, requests fail fast
	StateOpen
	// StateHalfOpen - Testing state, limited requests allowed
	StateHalfOpen
)

// String returns the string representation of the circuit state
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit
	FailureThreshold int
	// SuccessThreshold is the number of successes needed to close the circuit in half-open state
	SuccessThreshold int
	// Timeout is how long the circuit stays open before transitioning to half-open
	Timeout time.Duration
	// MaxConcurrentRequests is the maximum number of requests allowed in half-open state
	MaxConcurrentRequests int
	// ShouldTrip reports whether an error counts as a failure
	ShouldTrip func(error) bool
	// OnStateChange is called when the circuit state changes
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns a default configuration
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:      5,
		SuccessThreshold:      2,
		Timeout:               30 * time.Second,
		MaxConcurrentRequests: 1,
		ShouldTrip: func(err error) bool {
			return err != nil
		},
		OnStateChange: func(string, CircuitState, CircuitState) {},
	}
}

// CircuitBreaker fails requests fast after repeated failures of a backend
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	now    func() time.Time

	mutex              sync.Mutex
	state              CircuitState
	failureCount       int
	successCount       int
	nextAttemptTime    time.Time
	concurrentRequests int
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxConcurrentRequests <= 0 {
		config.MaxConcurrentRequests = defaults.MaxConcurrentRequests
	}
	if config.ShouldTrip == nil {
		config.ShouldTrip = defaults.ShouldTrip
	}
	if config.OnStateChange == nil {
		config.OnStateChange = defaults.OnStateChange
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute executes fn with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	halfOpen, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.afterRequest(halfOpen, err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() (bool, error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.currentState() {
	case StateOpen:
		return false, NewCircuitOpenError(cb.name, cb.nextAttemptTime)
	case StateHalfOpen:
		if cb.concurrentRequests >= cb.config.MaxConcurrentRequests {
			return false, NewCircuitOpenError(cb.name, cb.nextAttemptTime)
		}
		cb.concurrentRequests++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) afterRequest(halfOpen bool, err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if halfOpen && cb.concurrentRequests > 0 {
		cb.concurrentRequests--
	}
	if cb.config.ShouldTrip(err) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

func (cb *CircuitBreaker) setState(state CircuitState) {
	prev := cb.state
	cb.state = state

	switch state {
	case StateClosed:
		cb.failureCount = 0
		cb.successCount = 0
		cb.nextAttemptTime = time.Time{}
	case StateOpen:
		cb.nextAttemptTime = cb.now().Add(cb.config.Timeout)
		cb.successCount = 0
	case StateHalfOpen:
		cb.successCount = 0
		cb.concurrentRequests = 0
	}

	cb.config.OnStateChange(cb.name, prev, state)
}

// currentState moves an expired open circuit to half-open. Callers hold the mutex.
func (cb *CircuitBreaker) currentState() CircuitState {
	if cb.state == StateOpen && !cb.now().Before(cb.nextAttemptTime) {
		cb.setState(StateHalfOpen)
	}
	return cb.state
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.currentState()
}

// CircuitOpenError is returned when the circuit breaker is open
type CircuitOpenError struct {
	CircuitName     string
	NextAttemptTime time.Time
}

// NewCircuitOpenError creates a new circuit open error
func NewCircuitOpenError(circuitName string, nextAttemptTime time.Time) *CircuitOpenError {
	return &CircuitOpenError{
		CircuitName:     circuitName,
		NextAttemptTime: nextAttemptTime,
	}
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is open, next attempt allowed at %s",
		e.CircuitName, e.NextAttemptTime.Format(time.RFC3339))
}

// IsCircuitOpenError checks if an error is a circuit open error
func IsCircuitOpenError(err error) bool {
	var circuitErr *CircuitOpenError
	return errors.As(err, &circuitErr)
}
