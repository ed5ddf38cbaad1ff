// Package resilient wraps a remote structio.Store with retries and a circuit
// breaker. Only transient I/O failures are retried; missing keys, invalid
// input and canceled contexts are returned at once and never trip the breaker.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hengadev/structio"
	"github.com/hengadev/structio/internal/reliability"
)

// Config tunes the retry and circuit breaker behavior.
type Config struct {
	// Name identifies the breaker in errors and state change callbacks.
	Name string

	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	FailureThreshold int
	OpenTimeout      time.Duration

	// OnRetry is called before each retry attempt.
	OnRetry func(op, key string, attempt int, delay time.Duration, err error)
	// OnStateChange is called when the breaker changes state.
	OnStateChange func(name string, from, to string)
}

// DefaultConfig returns three attempts with exponential backoff from 100ms
// and a breaker that opens after five consecutive failures for 30 seconds.
func DefaultConfig() Config {
	return Config{
		Name:             "store",
		MaxAttempts:      3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Store retries transient failures of an inner store.
type Store struct {
	inner   structio.Store
	config  Config
	retry   *reliability.RetryExecutor
	breaker *reliability.CircuitBreaker
}

var _ structio.Store = (*Store)(nil)

// New wraps inner. Zero fields of config take their DefaultConfig values.
func New(inner structio.Store, config Config) (*Store, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: inner store is required", structio.ErrInvalidConfiguration)
	}
	if config.Name == "" {
		config.Name = DefaultConfig().Name
	}

	policy := reliability.NewExponentialBackoffPolicy(reliability.RetryConfig{
		MaxAttempts:  config.MaxAttempts,
		InitialDelay: config.InitialDelay,
		MaxDelay:     config.MaxDelay,
		Jitter:       0.1,
		ShouldRetry: func(err error, _ int) bool {
			return isTransient(err)
		},
	})

	breakerConfig := reliability.CircuitBreakerConfig{
		FailureThreshold: config.FailureThreshold,
		Timeout:          config.OpenTimeout,
		ShouldTrip:       isTransient,
	}
	if config.OnStateChange != nil {
		breakerConfig.OnStateChange = func(name string, from, to reliability.CircuitState) {
			config.OnStateChange(name, from.String(), to.String())
		}
	}

	return &Store{
		inner:   inner,
		config:  config,
		retry:   reliability.NewRetryExecutor(policy),
		breaker: reliability.NewCircuitBreaker(config.Name, breakerConfig),
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	return s.do(ctx, "put", key, func(ctx context.Context) error {
		return s.inner.Put(ctx, key, data)
	})
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.do(ctx, "get", key, func(ctx context.Context) error {
		var err error
		data, err = s.inner.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// State reports the breaker state: CLOSED, OPEN or HALF_OPEN.
func (s *Store) State() string {
	return s.breaker.State().String()
}

func (s *Store) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	executor := *s.retry
	if s.config.OnRetry != nil {
		executor.SetOnRetryCallback(func(attempt int, delay time.Duration, err error) {
			s.config.OnRetry(op, key, attempt, delay, err)
		})
	}

	err := executor.Execute(ctx, func(ctx context.Context) error {
		return s.breaker.Execute(ctx, fn)
	})
	if reliability.IsCircuitOpenError(err) {
		return fmt.Errorf("%w: %s %q: %w", structio.ErrIO, op, key, err)
	}
	return err
}

// isTransient reports whether err is an I/O failure worth another attempt.
func isTransient(err error) bool {
	if err == nil || reliability.IsCircuitOpenError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, structio.ErrNotFound) || errors.Is(err, structio.ErrInvalidConfiguration) || errors.Is(err, structio.ErrParse) {
		return false
	}
	return errors.Is(err, structio.ErrIO)
}
