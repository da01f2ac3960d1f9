// Package middleware provides cross-cutting concerns for the metrics engine:
// Prometheus collection and input guarding around metric units.
package middleware

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-precis/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements ports.MetricsCollector on top of Prometheus
// vectors registered with a caller-supplied registerer.
type PrometheusMetrics struct {
	summarizeLatency  *prometheus.HistogramVec
	unitLatency       *prometheus.HistogramVec
	summarizeRequests *prometheus.CounterVec
	inputRejected     *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	operations        *prometheus.CounterVec
	scores            *prometheus.HistogramVec
	gauges            *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the go-precis metrics with reg.
// Passing prometheus.DefaultRegisterer exposes them on the default handler.
// Vectors already registered with reg by an earlier call are reused; any
// other registration failure is returned as a *ports.MetricsError.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	r := &registrar{reg: reg}
	pm := &PrometheusMetrics{
		summarizeLatency: registerVec(r, "summarize_duration_seconds", prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "precis",
				Name:      "summarize_duration_seconds",
				Help:      "Latency of summarization backend calls.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"engine"},
		)),
		unitLatency: registerVec(r, "unit_duration_seconds", prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "precis",
				Name:      "unit_duration_seconds",
				Help:      "Execution time of metric units.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"unit"},
		)),
		summarizeRequests: registerVec(r, "summarize_requests_total", prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "precis",
				Name:      "summarize_requests_total",
				Help:      "Summarization backend calls by outcome.",
			},
			[]string{"engine", "status"},
		)),
		inputRejected: registerVec(r, "input_rejected_total", prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "precis",
				Name:      "input_rejected_total",
				Help:      "Metric inputs refused before scoring.",
			},
			[]string{"unit", "reason"},
		)),
		cacheLookups: registerVec(r, "cache_lookups_total", prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "precis",
				Name:      "cache_lookups_total",
				Help:      "Summary cache lookups by result.",
			},
			[]string{"result"},
		)),
		operations: registerVec(r, "operations_total", prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "precis",
				Name:      "operations_total",
				Help:      "Counters without a dedicated vector.",
			},
			[]string{"operation"},
		)),
		scores: registerVec(r, "metric_score", prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "precis",
				Name:      "metric_score",
				Help:      "Distribution of computed metric values.",
				Buckets:   prometheus.LinearBuckets(-20, 10, 15),
			},
			[]string{"metric"},
		)),
		gauges: registerVec(r, "state", prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "precis",
				Name:      "state",
				Help:      "Point-in-time component state.",
			},
			[]string{"metric", "engine"},
		)),
	}
	if r.err != nil {
		return nil, r.err
	}
	return pm, nil
}

// registrar registers collectors until the first failure.
type registrar struct {
	reg prometheus.Registerer
	err error
}

func registerVec[T prometheus.Collector](r *registrar, name string, c T) T {
	if r.err != nil {
		return c
	}
	err := r.reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	r.err = ports.NewMetricsError(name, "register", err)
	return c
}

func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency observes duration in the histogram matching operation.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case ports.MetricSummarizeLatency:
		pm.summarizeLatency.WithLabelValues(label(labels, "engine")).Observe(duration.Seconds())
	default:
		pm.unitLatency.WithLabelValues(label(labels, "unit")).Observe(duration.Seconds())
	}
}

// RecordCounter adds value to the counter matching metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricSummarizeRequests:
		pm.summarizeRequests.WithLabelValues(label(labels, "engine"), label(labels, "status")).Add(value)
	case ports.MetricInputRejected:
		pm.inputRejected.WithLabelValues(label(labels, "unit"), label(labels, "reason")).Add(value)
	case ports.MetricCacheLookups:
		pm.cacheLookups.WithLabelValues(label(labels, "result")).Add(value)
	default:
		pm.operations.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge for metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.gauges.WithLabelValues(metric, label(labels, "engine")).Set(value)
}

// RecordHistogram observes value in the score distribution.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	name := metric
	if metric == ports.MetricScore {
		name = label(labels, "metric")
	}
	pm.scores.WithLabelValues(name).Observe(value)
}
