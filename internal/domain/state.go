// Package domain contains the dependency-free models shared by the metric
// units, the summarization backends and the HTTP surface.
package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Key is a typed handle for a value stored in State. The type parameter
// lets Get and With stay type safe without runtime assertions at call sites.
type Key[T any] struct{ name string }

// NewKey creates a Key outside of the domain package.
func NewKey[T any](name string) Key[T] { return Key[T]{name: name} }

// Name returns the key's storage name.
func (k Key[T]) Name() string { return k.name }

// Keys written by the engine before units run.
var (
	// KeyOriginal stores the source text being summarized.
	KeyOriginal = Key[string]{"input.original"}

	// KeySummary stores the candidate summary under evaluation.
	KeySummary = Key[string]{"input.summary"}

	// KeyReference stores the optional human reference summary.
	// A nil pointer means no reference was supplied.
	KeyReference = Key[*string]{"input.reference"}

	// KeyExecutionID correlates every unit span and log line of one evaluation.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// Keys written by the metric units.
var (
	KeyCompressionRatio = Key[float64]{"metric.compression_ratio"}
	KeyReadabilityGrade = Key[float64]{"metric.readability_grade"}
	KeyEntityRetention  = Key[float64]{"metric.entity_retention"}
	KeyReferenceResult  = Key[ReferenceResult]{"metric.reference"}
)

// State is an immutable bag of evaluation data passed between units.
// Every write returns a new State; the receiver is never modified, so a
// State can be shared across goroutines without locking.
type State struct {
	data map[string]any
}

// NewState creates an empty State.
func NewState() State {
	return State{data: make(map[string]any)}
}

// copyValue detaches pointer values so callers cannot mutate stored data.
func copyValue(value any) any {
	switch v := value.(type) {
	case *string:
		if v == nil {
			return v
		}
		s := *v
		return &s
	case ReferenceResult:
		return v.Clone()
	case []string:
		return slices.Clone(v)
	default:
		return value
	}
}

// Get retrieves a typed value. The boolean is false when the key is absent
// or holds a value of another type.
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, ok := s.data[key.name]
	if !ok {
		return zero, false
	}
	typed, ok := copyValue(value).(T)
	return typed, ok
}

// MustGet is Get with the failure classified as a StateError.
func MustGet[T any](s State, key Key[T]) (T, error) {
	value, exists := s.data[key.name]
	if !exists {
		var zero T
		return zero, NewStateError(key.name, "get", ErrKeyNotFound)
	}
	typed, ok := copyValue(value).(T)
	if !ok {
		var zero T
		return zero, NewStateError(key.name, "get", ErrTypeMismatch)
	}
	return typed, nil
}

// With returns a copy of s with key set to value.
func With[T any](s State, key Key[T], value T) State {
	data := maps.Clone(s.data)
	if data == nil {
		data = make(map[string]any, 1)
	}
	data[key.name] = copyValue(value)
	return State{data: data}
}

// Merge returns a copy of s overlaid with every entry of other.
// Entries in other win on conflict.
func (s State) Merge(other State) State {
	data := maps.Clone(s.data)
	if data == nil {
		data = make(map[string]any, len(other.data))
	}
	for k, v := range other.data {
		data[k] = copyValue(v)
	}
	return State{data: data}
}

// Keys returns the stored key names in sorted order.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s.data))
}

// String returns a debug representation of the State.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// StateFromInput seeds a State with the texts of a MetricInput.
func StateFromInput(in MetricInput) State {
	s := With(NewState(), KeyOriginal, in.Original)
	s = With(s, KeySummary, in.Summary)
	return With(s, KeyReference, in.Reference)
}

// ResultFromState assembles a MetricResult from the unit outputs in s.
// Every metric key must be present.
func ResultFromState(s State) (MetricResult, error) {
	var (
		res MetricResult
		err error
	)
	if res.CompressionRatio, err = MustGet(s, KeyCompressionRatio); err != nil {
		return MetricResult{}, err
	}
	if res.ReadabilityGrade, err = MustGet(s, KeyReadabilityGrade); err != nil {
		return MetricResult{}, err
	}
	if res.EntityRetention, err = MustGet(s, KeyEntityRetention); err != nil {
		return MetricResult{}, err
	}
	if res.Reference, err = MustGet(s, KeyReferenceResult); err != nil {
		return MetricResult{}, err
	}
	return res, nil
}
