package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStateImmutability verifies With never mutates the receiver.
func TestStateImmutability(t *testing.T) {
	base := With(NewState(), KeySummary, "first")
	next := With(base, KeySummary, "second")

	got, ok := Get(base, KeySummary)
	require.True(t, ok)
	assert.Equal(t, "first", got)

	got, ok = Get(next, KeySummary)
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

// TestStatePointerValuesAreDetached verifies stored pointers cannot be mutated through Get.
func TestStatePointerValuesAreDetached(t *testing.T) {
	ref := "reference"
	s := With(NewState(), KeyReference, &ref)
	ref = "changed"

	got, ok := Get(s, KeyReference)
	require.True(t, ok)
	require.NotNil(t, got)
	assert.Equal(t, "reference", *got)

	*got = "mutated"
	again, _ := Get(s, KeyReference)
	assert.Equal(t, "reference", *again)

	res := Scored(ReferenceScores{BLEU: 0.5})
	s = With(s, KeyReferenceResult, res)
	stored, _ := Get(s, KeyReferenceResult)
	stored.Scores.BLEU = 0
	again2, _ := Get(s, KeyReferenceResult)
	assert.Equal(t, 0.5, again2.Scores.BLEU)
}

// TestMustGet verifies missing and mistyped keys are classified.
func TestMustGet(t *testing.T) {
	s := With(NewState(), KeySummary, "text")

	_, err := MustGet(s, KeyCompressionRatio)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	wrong := NewKey[int]("input.summary")
	_, err = MustGet(s, wrong)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	v, err := MustGet(s, KeySummary)
	require.NoError(t, err)
	assert.Equal(t, "text", v)
}

// TestMergeAndKeys verifies Merge overlays entries and Keys sorts them.
func TestMergeAndKeys(t *testing.T) {
	a := With(NewState(), KeyCompressionRatio, 10.0)
	b := With(NewState(), KeyCompressionRatio, 20.0)
	b = With(b, KeyEntityRetention, 50.0)

	merged := a.Merge(b)
	v, _ := Get(merged, KeyCompressionRatio)
	assert.Equal(t, 20.0, v)
	assert.Equal(t, []string{"metric.compression_ratio", "metric.entity_retention"}, merged.Keys())

	v, _ = Get(a, KeyCompressionRatio)
	assert.Equal(t, 10.0, v)
}

// TestStateRoundTrip verifies StateFromInput and ResultFromState agree on keys.
func TestStateRoundTrip(t *testing.T) {
	s := StateFromInput(MetricInput{Original: "a b c", Summary: "a"})
	orig, _ := Get(s, KeyOriginal)
	assert.Equal(t, "a b c", orig)
	ref, ok := Get(s, KeyReference)
	require.True(t, ok)
	assert.Nil(t, ref)

	_, err := ResultFromState(s)
	require.ErrorIs(t, err, ErrKeyNotFound)

	s = With(s, KeyCompressionRatio, 66.67)
	s = With(s, KeyReadabilityGrade, 3.1)
	s = With(s, KeyEntityRetention, 0.0)
	s = With(s, KeyReferenceResult, NotSupplied())

	res, err := ResultFromState(s)
	require.NoError(t, err)
	assert.Equal(t, MetricResult{
		CompressionRatio: 66.67,
		ReadabilityGrade: 3.1,
		EntityRetention:  0,
		Reference:        ReferenceResult{Status: ReferenceNotSupplied},
	}, res)
}

// TestStateConcurrentReads verifies a shared State is safe for concurrent writers of derived states.
func TestStateConcurrentReads(t *testing.T) {
	base := StateFromInput(MetricInput{Original: "x", Summary: "y"})

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			derived := With(base, KeyCompressionRatio, float64(i))
			v, ok := Get(derived, KeyCompressionRatio)
			assert.True(t, ok)
			assert.Equal(t, float64(i), v)
		}(i)
	}
	wg.Wait()

	_, ok := Get(base, KeyCompressionRatio)
	assert.False(t, ok)
}
