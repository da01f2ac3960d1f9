package summarizer

import (
	"math"
	"strings"
)

// WordTokenEstimator estimates tokens from the whitespace word count.
type WordTokenEstimator struct{ TokensPerWord float64 }

// NewWordTokenEstimator creates a word-based estimator. Non-positive ratios
// fall back to 1.3 tokens per word, a common figure for English BPE models.
func NewWordTokenEstimator(tokensPerWord float64) *WordTokenEstimator {
	if tokensPerWord <= 0 {
		tokensPerWord = 1.3
	}
	return &WordTokenEstimator{TokensPerWord: tokensPerWord}
}

// EstimateTokens implements TokenEstimator.
func (e *WordTokenEstimator) EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * e.TokensPerWord))
}
