package domain

import (
	"fmt"
	"strings"
	"time"
)

// Style selects the instruction given to prompt-based summarization engines.
type Style string

// Known summary styles.
const (
	StyleNeutral   Style = "neutral"
	StyleConcise   Style = "concise"
	StyleLayperson Style = "layperson"
	StylePolicy    Style = "policy"
)

// Styles lists the known styles in display order.
func Styles() []Style {
	return []Style{StyleNeutral, StyleConcise, StyleLayperson, StylePolicy}
}

// ParseStyle resolves a style name. Unknown names are rejected rather than
// silently mapped to a default.
func ParseStyle(name string) (Style, error) {
	s := Style(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Styles() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// Summary length bounds, in words.
const (
	MinMaxWords     = 50
	MaxMaxWords     = 500
	MaxWordsStep    = 10
	DefaultMaxWords = 150
)

// SummaryRequest is what a backend needs to produce one summary.
type SummaryRequest struct {
	Text     string
	Style    Style
	MaxWords int
}

// Validate checks the request before it reaches a backend.
func (r SummaryRequest) Validate() error {
	verr := NewValidationError("summary request")
	if strings.TrimSpace(r.Text) == "" {
		verr.AddError("text must not be blank")
	}
	if _, err := ParseStyle(string(r.Style)); err != nil {
		verr.AddError(err.Error())
	}
	if r.MaxWords < MinMaxWords || r.MaxWords > MaxMaxWords {
		verr.AddErrorf("max_words must be between %d and %d, got %d", MinMaxWords, MaxMaxWords, r.MaxWords)
	} else if (r.MaxWords-MinMaxWords)%MaxWordsStep != 0 {
		verr.AddErrorf("max_words must be a multiple of %d, got %d", MaxWordsStep, r.MaxWords)
	}
	return verr.Err()
}

// Summary is a backend's answer to a SummaryRequest.
type Summary struct {
	Text         string        `json:"text"`
	Engine       string        `json:"engine"`
	Model        string        `json:"model"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Latency      time.Duration `json:"latency_ns"`
}
