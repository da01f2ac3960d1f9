package summarizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

var testRequest = domain.SummaryRequest{Text: "text", Style: domain.StyleNeutral, MaxWords: 50}

// TestCircuitBreakerMiddleware_AllowsRequestsWhenClosed tests that requests
// pass through while the circuit is closed.
func TestCircuitBreakerMiddleware_AllowsRequestsWhenClosed(t *testing.T) {
	mock := NewMockBackend("gemini")
	wrapped := CircuitBreakerMiddleware("gemini", 3, time.Minute, nil)(mock)

	got, err := wrapped.Summarize(context.Background(), testRequest)

	require.NoError(t, err)
	assert.Equal(t, "mock summary", got.Text)
	assert.Equal(t, 1, mock.GetCallCount())
}

// TestCircuitBreakerMiddleware_OpensAfterMaxFailures tests that the circuit
// opens after the configured number of consecutive failures.
func TestCircuitBreakerMiddleware_OpensAfterMaxFailures(t *testing.T) {
	mock := NewMockBackend("gemini")
	mock.Error = errors.New("service error")
	wrapped := CircuitBreakerMiddleware("gemini", 2, time.Minute, nil)(mock)
	ctx := context.Background()

	_, err1 := wrapped.Summarize(ctx, testRequest)
	_, err2 := wrapped.Summarize(ctx, testRequest)
	require.EqualError(t, err1, "service error")
	require.EqualError(t, err2, "service error")

	_, err3 := wrapped.Summarize(ctx, testRequest)
	require.ErrorIs(t, err3, ports.ErrCircuitOpen)
	assert.Equal(t, 2, mock.GetCallCount(), "open circuit must not reach the backend")

	state, ok := CircuitState(wrapped)
	require.True(t, ok)
	assert.Equal(t, StateOpen, state)
}

// TestCircuitBreaker_HalfOpenProbe tests recovery through a single probe
// after the cooldown, and re-opening when the probe fails.
func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(1, 10*time.Second)
	cb.now = func() time.Time { return now }

	fail := errors.New("down")
	require.ErrorIs(t, cb.Call(func() error { return fail }), fail)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	require.ErrorIs(t, err, ports.ErrCircuitOpen)
	assert.False(t, called, "cooldown has not elapsed")

	now = now.Add(11 * time.Second)
	require.ErrorIs(t, cb.Call(func() error { return fail }), fail)
	assert.Equal(t, StateOpen, cb.State(), "failed probe re-opens the circuit")

	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State(), "successful probe closes the circuit")
}

// TestCircuitBreaker_SingleProbeWhileHalfOpen tests that only one request
// is let through while a probe is in flight.
func TestCircuitBreaker_SingleProbeWhileHalfOpen(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(1, time.Second)
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("down") })
	now = now.Add(2 * time.Second)

	var inner error
	err := cb.Call(func() error {
		inner = cb.Call(func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, inner, ports.ErrCircuitOpen)
	assert.Equal(t, StateClosed, cb.State())
}

// TestCircuitBreaker_IgnoresCallerErrors tests that invalid requests and
// cancellations do not count against the engine.
func TestCircuitBreaker_IgnoresCallerErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)

	callerErrors := []error{
		domain.ErrUnknownStyle,
		domain.NewValidationError("req"),
		context.Canceled,
		NewProviderError("openai", ErrorTypeBadRequest, 400, "bad", nil),
	}
	for _, e := range callerErrors {
		_ = cb.Call(func() error { return e })
	}
	assert.Equal(t, StateClosed, cb.State())
}

// TestCircuitBreakerMiddleware_PublishesState tests the circuit_state gauge.
func TestCircuitBreakerMiddleware_PublishesState(t *testing.T) {
	collector := &recordingCollector{}
	mock := NewMockBackend("bart")
	mock.Error = errors.New("down")
	wrapped := CircuitBreakerMiddleware("bart", 1, time.Minute, collector)(mock)

	_, _ = wrapped.Summarize(context.Background(), testRequest)

	require.Len(t, collector.gauges, 1)
	assert.Equal(t, ports.MetricCircuitState, collector.gauges[0].name)
	assert.Equal(t, float64(StateOpen), collector.gauges[0].value)
	assert.Equal(t, "bart", collector.gauges[0].labels["engine"])
}

// TestCircuitBreakerState_String tests state names.
func TestCircuitBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}
