// Package provider bounds calls into external model providers: a weighted
// semaphore caps in-flight calls, each call gets its own deadline, and a
// circuit breaker sheds load while a provider keeps failing.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/cinematch/internal/metrics"
)

// Defaults for unset Settings fields.
const (
	DefaultMaxInFlight     = 8
	DefaultTimeout         = 30 * time.Second
	DefaultBreakerFailures = 5
	DefaultBreakerOpen     = 30 * time.Second
)

// Settings configures one guarded provider.
type Settings struct {
	Name            string
	MaxInFlight     int64
	Timeout         time.Duration
	BreakerFailures uint32        // consecutive failures that open the circuit
	BreakerOpen     time.Duration // open -> half-open delay
}

func (s *Settings) applyDefaults() {
	if s.MaxInFlight <= 0 {
		s.MaxInFlight = DefaultMaxInFlight
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.BreakerFailures == 0 {
		s.BreakerFailures = DefaultBreakerFailures
	}
	if s.BreakerOpen <= 0 {
		s.BreakerOpen = DefaultBreakerOpen
	}
}

type guard[T any] struct {
	name    string
	sem     *semaphore.Weighted
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[T]
	wrap    error
	logger  *zap.Logger
}

func newGuard[T any](s Settings, wrap error, logger *zap.Logger) *guard[T] {
	s.applyDefaults()
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.BreakerFailures
		},
		// A caller that went away says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &guard[T]{
		name:    s.Name,
		sem:     semaphore.NewWeighted(s.MaxInFlight),
		timeout: s.Timeout,
		cb:      cb,
		wrap:    wrap,
		logger:  logger,
	}
}

// do runs fn holding a concurrency slot, under the call deadline and the
// breaker. Every failure is wrapped with the provider sentinel.
func (g *guard[T]) do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("%s: waiting for a slot: %w: %w", g.name, err, g.wrap)
	}
	defer g.sem.Release(1)

	inFlight := metrics.ProviderInFlight.WithLabelValues(g.name)
	inFlight.Inc()
	defer inFlight.Dec()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.cb.Execute(func() (T, error) {
		return fn(callCtx)
	})
	if err == nil {
		return res, nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return zero, fmt.Errorf("%s: circuit open: %w", g.name, g.wrap)
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		g.logger.Warn("Provider call timed out", zap.String("provider", g.name), zap.Duration("timeout", g.timeout))
		return zero, fmt.Errorf("%s: timed out after %s: %w", g.name, g.timeout, g.wrap)
	case errors.Is(err, g.wrap):
		return zero, err
	default:
		return zero, fmt.Errorf("%s: %w: %w", g.name, err, g.wrap)
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
