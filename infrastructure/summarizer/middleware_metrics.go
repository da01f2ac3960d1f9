package summarizer

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// Request status labels recorded by MetricsMiddleware.
const (
	StatusSuccess     = "success"
	StatusCircuitOpen = "circuit_open"
	StatusTimeout     = "timeout"
	StatusRateLimited = "rate_limited"
	StatusError       = "error"
)

// metricsBackend records latency and outcome of each request.
type metricsBackend struct {
	next      Backend
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports to collector.
// A nil collector makes the middleware a pass-through.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next Backend) Backend {
		if collector == nil {
			return next
		}
		return &metricsBackend{next: next, collector: collector}
	}
}

// Summarize forwards the request and records its latency and status.
func (m *metricsBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	start := time.Now()
	summary, err := m.next.Summarize(ctx, req)

	engine := m.next.Name()
	m.collector.RecordLatency(ports.MetricSummarizeLatency, time.Since(start), map[string]string{
		"engine": engine,
	})
	m.collector.RecordCounter(ports.MetricSummarizeRequests, 1, map[string]string{
		"engine": engine,
		"status": RequestStatus(err),
	})
	return summary, err
}

// RequestStatus maps a Summarize error to its status label.
func RequestStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ports.ErrCircuitOpen):
		return StatusCircuitOpen
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, ports.ErrRateLimited):
		return StatusRateLimited
	default:
		return StatusError
	}
}

func (m *metricsBackend) Name() string    { return m.next.Name() }
func (m *metricsBackend) Model() string   { return m.next.Model() }
func (m *metricsBackend) Unwrap() Backend { return m.next }
