package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-precis/internal/domain"
)

// Summarizer produces a summary from an external backend.
// Implementations must be safe for concurrent use.
type Summarizer interface {
	// Summarize blocks until the backend answers or ctx is done.
	Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error)

	// Name returns the configured engine name.
	Name() string

	// Model returns the backend model identifier.
	Model() string
}

// CacheStore stores computed values with an expiry.
type CacheStore interface {
	// Get returns the value, whether it was found, and any storage error.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores value under key. A zero expiration uses the store default.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// MetricsCollector records operational metrics.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordLatency records the duration of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram observes a value in a distribution.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Metric names understood by MetricsCollector implementations.
const (
	// MetricSummarizeLatency is a RecordLatency operation labeled by engine.
	MetricSummarizeLatency = "summarize"

	// MetricUnitLatency is a RecordLatency operation labeled by unit.
	MetricUnitLatency = "unit"

	// MetricSummarizeRequests counts backend calls labeled by engine and status.
	MetricSummarizeRequests = "summarize_requests_total"

	// MetricInputRejected counts inputs refused before scoring, labeled by reason.
	MetricInputRejected = "input_rejected_total"

	// MetricCacheLookups counts summary cache lookups labeled by result.
	MetricCacheLookups = "cache_lookups_total"

	// MetricScore observes metric values labeled by metric.
	MetricScore = "metric_score"

	// MetricCircuitState is a gauge labeled by engine: 0 closed, 1 half-open, 2 open.
	MetricCircuitState = "circuit_state"
)
