package units

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-precis/infrastructure/nlp"
	"github.com/ahrav/go-precis/internal/domain"
)

func cannedTokenizer() fakeTokenizer {
	return fakeTokenizer{
		sentences: map[string][]string{
			"The cat sat.":                        {"The cat sat."},
			"Readability matters. Tests help.":    {"Readability matters.", "Tests help."},
			"Original text here. And more of it.": {"Original text here.", "And more of it."},
		},
		words: map[string][]string{
			"The cat sat.":                        {"The", "cat", "sat", "."},
			"word":                                {"word"},
			"Readability matters. Tests help.":    {"Readability", "matters", ".", "Tests", "help", "."},
			"Original text here. And more of it.": {"Original", "text", "here", ".", "And", "more", "of", "it", "."},
		},
	}
}

// TestReadabilityScore pins Flesch-Kincaid grades for known segmentations.
func TestReadabilityScore(t *testing.T) {
	tok := cannedTokenizer()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "single sentence", text: "The cat sat.", want: -2.23},
		{name: "two sentences", text: "Readability matters. Tests help.", want: 7.21},
		{name: "no sentence boundary", text: "word", want: -3.4},
		{name: "empty text floors both counts", text: "", want: -15.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ReadabilityScore(tok, tt.text), 1e-9)
		})
	}
}

// TestReadabilityScoreWithToolkit verifies purity and finiteness with the real tokenizer.
func TestReadabilityScoreWithToolkit(t *testing.T) {
	tk, err := nlp.Init()
	require.NoError(t, err)

	inputs := []string{
		"",
		"bcdfg",
		"no punctuation at all",
		"!!! ??? ...",
		"Barack Obama visited Paris in 2015. He met the mayor.",
	}
	for _, in := range inputs {
		first := ReadabilityScore(tk, in)
		assert.False(t, math.IsNaN(first) || math.IsInf(first, 0), in)
		assert.Equal(t, first, ReadabilityScore(tk, in), in)
	}
}

// TestReadabilityUnit verifies target selection and dependency checks.
func TestReadabilityUnit(t *testing.T) {
	in := domain.StateFromInput(domain.MetricInput{
		Original: "Original text here. And more of it.",
		Summary:  "The cat sat.",
	})

	t.Run("scores summary by default", func(t *testing.T) {
		unit, err := NewReadabilityUnit("readability", DefaultReadabilityConfig(), cannedTokenizer())
		require.NoError(t, err)

		out, err := unit.Execute(context.Background(), in)
		require.NoError(t, err)
		got, ok := domain.Get(out, domain.KeyReadabilityGrade)
		require.True(t, ok)
		assert.InDelta(t, -2.23, got, 1e-9)
	})

	t.Run("scores original when configured", func(t *testing.T) {
		unit, err := NewReadabilityFromConfig("readability", map[string]any{"target": "original"},
			Dependencies{Tokenizer: cannedTokenizer()})
		require.NoError(t, err)

		out, err := unit.Execute(context.Background(), in)
		require.NoError(t, err)
		got, _ := domain.Get(out, domain.KeyReadabilityGrade)
		assert.Equal(t, ReadabilityScore(cannedTokenizer(), "Original text here. And more of it."), got)
	})

	t.Run("nil tokenizer", func(t *testing.T) {
		_, err := NewReadabilityUnit("readability", DefaultReadabilityConfig(), nil)
		assert.ErrorIs(t, err, ErrMissingDependency)
	})

	t.Run("invalid target", func(t *testing.T) {
		_, err := NewReadabilityUnit("readability", ReadabilityConfig{Target: "reference"}, cannedTokenizer())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})

	t.Run("missing summary", func(t *testing.T) {
		unit, err := NewReadabilityUnit("readability", DefaultReadabilityConfig(), cannedTokenizer())
		require.NoError(t, err)
		_, err = unit.Execute(context.Background(), domain.NewState())
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})
}
