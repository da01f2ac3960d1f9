package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// DefaultMaxTextBytes bounds each text handed to a metric unit (10MB).
const DefaultMaxTextBytes = 10 * 1024 * 1024

// Limits bounds the texts a guarded unit will accept.
type Limits struct {
	// MaxTextBytes caps the byte length of original, summary and reference
	// individually. Zero means DefaultMaxTextBytes.
	MaxTextBytes int
}

// InputGuard wraps a metric unit, rejecting oversized or non-UTF-8 text
// before the unit runs and recording the unit's latency afterwards.
// It holds no mutable state and is safe for concurrent use.
type InputGuard struct {
	limits  Limits
	next    ports.Unit
	metrics ports.MetricsCollector
}

// NewInputGuard wraps next. metrics may be nil.
func NewInputGuard(limits Limits, next ports.Unit, metrics ports.MetricsCollector) *InputGuard {
	if next == nil {
		panic("input guard: next unit is required")
	}
	if limits.MaxTextBytes == 0 {
		limits.MaxTextBytes = DefaultMaxTextBytes
	}
	return &InputGuard{limits: limits, next: next, metrics: metrics}
}

// Name returns the wrapped unit's name so spans and results stay keyed by it.
func (g *InputGuard) Name() string { return g.next.Name() }

// Unwrap returns the guarded unit.
func (g *InputGuard) Unwrap() ports.Unit { return g.next }

// Execute checks every text present in state and then delegates.
func (g *InputGuard) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if err := g.check(state); err != nil {
		return state, err
	}

	start := time.Now()
	out, err := g.next.Execute(ctx, state)
	if g.metrics != nil {
		g.metrics.RecordLatency(ports.MetricUnitLatency, time.Since(start), map[string]string{"unit": g.next.Name()})
	}
	return out, err
}

func (g *InputGuard) check(state domain.State) error {
	texts := map[string]string{}
	if s, ok := domain.Get(state, domain.KeyOriginal); ok {
		texts["original"] = s
	}
	if s, ok := domain.Get(state, domain.KeySummary); ok {
		texts["summary"] = s
	}
	if ref, ok := domain.Get(state, domain.KeyReference); ok && ref != nil {
		texts["reference"] = *ref
	}

	verr := domain.NewValidationError(g.next.Name() + " input")
	reason := ""
	for field, text := range texts {
		switch {
		case len(text) > g.limits.MaxTextBytes:
			verr.AddErrorf("%s too long: %d bytes exceeds limit of %d", field, len(text), g.limits.MaxTextBytes)
			reason = "too_large"
		case !utf8.ValidString(text):
			verr.AddErrorf("%s is not valid UTF-8", field)
			reason = "invalid_utf8"
		}
	}
	if !verr.HasErrors() {
		return nil
	}
	if g.metrics != nil {
		g.metrics.RecordCounter(ports.MetricInputRejected, 1, map[string]string{"unit": g.next.Name(), "reason": reason})
	}
	return verr
}

// Validate checks the limits and the wrapped unit.
func (g *InputGuard) Validate() error {
	if g.limits.MaxTextBytes < 0 {
		return fmt.Errorf("input guard: max_text_bytes cannot be negative, got %d", g.limits.MaxTextBytes)
	}
	return g.next.Validate()
}

// IsInputRejection reports whether err came from an InputGuard check.
func IsInputRejection(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr)
}
