package testutils

import (
	"maps"
	"sync"
	"time"

	"github.com/ahrav/go-precis/internal/ports"
)

var _ ports.MetricsCollector = (*RecordingCollector)(nil)

// Observation is one recorded MetricsCollector call.
type Observation struct {
	Kind   string
	Name   string
	Value  float64
	Labels map[string]string
}

// RecordingCollector keeps every observation in memory.
// It is safe for concurrent use.
type RecordingCollector struct {
	mu           sync.Mutex
	observations []Observation
}

func (c *RecordingCollector) add(kind, name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observations = append(c.observations, Observation{Kind: kind, Name: name, Value: v, Labels: maps.Clone(labels)})
}

// RecordLatency implements ports.MetricsCollector. Values are seconds.
func (c *RecordingCollector) RecordLatency(op string, d time.Duration, labels map[string]string) {
	c.add("latency", op, d.Seconds(), labels)
}

// RecordCounter implements ports.MetricsCollector.
func (c *RecordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	c.add("counter", name, v, labels)
}

// RecordGauge implements ports.MetricsCollector.
func (c *RecordingCollector) RecordGauge(name string, v float64, labels map[string]string) {
	c.add("gauge", name, v, labels)
}

// RecordHistogram implements ports.MetricsCollector.
func (c *RecordingCollector) RecordHistogram(name string, v float64, labels map[string]string) {
	c.add("histogram", name, v, labels)
}

// Find returns the observations named name whose labels include every
// entry of match.
func (c *RecordingCollector) Find(name string, match map[string]string) []Observation {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Observation
	for _, o := range c.observations {
		if o.Name != name {
			continue
		}
		ok := true
		for k, v := range match {
			if o.Labels[k] != v {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, o)
		}
	}
	return out
}

// Sum adds the values of Find(name, match).
func (c *RecordingCollector) Sum(name string, match map[string]string) float64 {
	var total float64
	for _, o := range c.Find(name, match) {
		total += o.Value
	}
	return total
}
