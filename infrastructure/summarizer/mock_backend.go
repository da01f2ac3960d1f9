package summarizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-precis/internal/domain"
)

// errSimulated is returned by MockBackend failure modes without an Error set.
var errSimulated = errors.New("simulated failure")

// MockBackend is a configurable Backend for tests. It records every call
// and can delay, fail, or fail a fixed number of times before succeeding.
type MockBackend struct {
	mu sync.Mutex

	// Response configuration
	EngineName    string
	ModelName     string
	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls, then succeeds.
	FailUntilAttempt int

	// Tracking
	CallCount      int
	LastRequest    domain.SummaryRequest
	Requests       []domain.SummaryRequest
	Contexts       []context.Context
	CallTimestamps []time.Time
}

// NewMockBackend creates a MockBackend that succeeds with a fixed summary.
func NewMockBackend(name string) *MockBackend {
	return &MockBackend{
		EngineName: name,
		ModelName:  "mock-model",
		Response:   "mock summary",
		TokensIn:   10,
		TokensOut:  3,
	}
}

// Summarize implements Backend.
func (m *MockBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.LastRequest = req
	m.Requests = append(m.Requests, req)
	m.Contexts = append(m.Contexts, ctx)
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.Summary{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUntilAttempt > 0 && call <= m.FailUntilAttempt {
		if m.Error != nil {
			return domain.Summary{}, m.Error
		}
		return domain.Summary{}, errSimulated
	}
	if m.Error != nil && m.FailUntilAttempt == 0 {
		return domain.Summary{}, m.Error
	}

	return domain.Summary{
		Text:         m.Response,
		Engine:       m.EngineName,
		Model:        m.ModelName,
		InputTokens:  m.TokensIn,
		OutputTokens: m.TokensOut,
		Latency:      delay,
	}, nil
}

// Name implements Backend.
func (m *MockBackend) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EngineName
}

// Model implements Backend.
func (m *MockBackend) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ModelName
}

// GetCallCount returns the number of Summarize calls.
func (m *MockBackend) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Reset clears tracking data while preserving configuration.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.LastRequest = domain.SummaryRequest{}
	m.Requests = nil
	m.Contexts = nil
	m.CallTimestamps = nil
}

// GetTimeBetweenCalls returns the gap between two recorded calls, or nil
// when either index is out of range.
func (m *MockBackend) GetTimeBetweenCalls(call1, call2 int) *time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if call1 < 0 || call2 < 0 || call1 >= len(m.CallTimestamps) || call2 >= len(m.CallTimestamps) {
		return nil
	}
	d := m.CallTimestamps[call2].Sub(m.CallTimestamps[call1])
	return &d
}
