package summarizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// CircuitBreakerState is the position of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states. The numeric values are what the circuit_state
// gauge reports.
const (
	// StateClosed lets every request through.
	StateClosed CircuitBreakerState = iota
	// StateHalfOpen lets a single probe through after the cooldown.
	StateHalfOpen
	// StateOpen rejects requests until the cooldown expires.
	StateOpen
)

// String returns the lowercase state name.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and lets one
// probe through once cooldown has elapsed. The lock is never held while the
// protected call runs.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. A maxFailures below
// one is treated as one.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      max(1, maxFailures),
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// Call runs fn unless the circuit is open, in which case it returns
// ports.ErrCircuitOpen without calling fn. Errors for which countsAsFailure
// is false pass through without affecting the state.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldownDuration {
			return ports.ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ports.ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probing = false
	}
	if err == nil || !countsAsFailure(err) {
		if err == nil {
			cb.failureCount = 0
			cb.state = StateClosed
		}
		return
	}

	cb.failureCount++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// countsAsFailure excludes caller mistakes and caller cancellation, which
// say nothing about the engine's health.
func countsAsFailure(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownStyle),
		errors.Is(err, context.Canceled):
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && (pe.Type == ErrorTypeBadRequest || pe.Type == ErrorTypeContentPolicy) {
		return false
	}
	return true
}

// circuitBreakerBackend guards a Backend with a CircuitBreaker.
type circuitBreakerBackend struct {
	next      Backend
	cb        *CircuitBreaker
	engine    string
	collector ports.MetricsCollector
}

// CircuitBreakerMiddleware creates middleware that fails fast with
// ports.ErrCircuitOpen once the engine has failed maxFailures times in a
// row. The breaker state is published as the circuit_state gauge when
// collector is non-nil.
func CircuitBreakerMiddleware(engine string, maxFailures int, cooldown time.Duration, collector ports.MetricsCollector) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next Backend) Backend {
		return &circuitBreakerBackend{next: next, cb: cb, engine: engine, collector: collector}
	}
}

// Summarize executes the request through the circuit breaker.
func (c *circuitBreakerBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	var summary domain.Summary
	err := c.cb.Call(func() error {
		var err error
		summary, err = c.next.Summarize(ctx, req)
		return err
	})

	if c.collector != nil {
		c.collector.RecordGauge(ports.MetricCircuitState, float64(c.cb.State()), map[string]string{
			"engine": c.engine,
		})
	}
	return summary, err
}

// Breaker exposes the underlying breaker for status reporting.
func (c *circuitBreakerBackend) Breaker() *CircuitBreaker { return c.cb }

func (c *circuitBreakerBackend) Name() string    { return c.next.Name() }
func (c *circuitBreakerBackend) Model() string   { return c.next.Model() }
func (c *circuitBreakerBackend) Unwrap() Backend { return c.next }
