package summarizer

import (
	"context"
	"sync"
	"time"
)

// recordingCollector captures MetricsCollector calls.
type recordingCollector struct {
	mu        sync.Mutex
	latencies []recorded
	counters  []recorded
	gauges    []recorded
}

type recorded struct {
	name   string
	value  float64
	labels map[string]string
}

func (c *recordingCollector) RecordLatency(op string, d time.Duration, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, recorded{op, d.Seconds(), labels})
}

func (c *recordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = append(c.counters, recorded{name, v, labels})
}

func (c *recordingCollector) RecordGauge(name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges = append(c.gauges, recorded{name, v, labels})
}

func (c *recordingCollector) RecordHistogram(string, float64, map[string]string) {}

// fakeCompleter answers every prompt with a fixed response.
type fakeCompleter struct {
	response  string
	tokensIn  int
	tokensOut int
	err       error

	lastPrompt string
	lastOpts   RequestOptions
}

func (f *fakeCompleter) DoRequest(_ context.Context, prompt string, opts RequestOptions) (string, int, int, error) {
	f.lastPrompt = prompt
	f.lastOpts = opts
	return f.response, f.tokensIn, f.tokensOut, f.err
}

func (f *fakeCompleter) Model() string { return "fake-model" }
