// Package testutils provides deterministic fakes for the ports used across
// go-precis tests. None of them load models, so they are fast and stable.
package testutils

import (
	"strings"
	"unicode"

	"github.com/ahrav/go-precis/internal/ports"
)

var (
	_ ports.Tokenizer       = SimpleTokenizer{}
	_ ports.EntityExtractor = CapitalizedEntities{}
)

// SimpleTokenizer splits sentences after '.', '!' or '?' and emits each
// punctuation character as its own word token, approximating a Treebank
// tokenizer closely enough for tests.
type SimpleTokenizer struct{}

// Sentences returns the trimmed, non-empty sentences of text.
func (SimpleTokenizer) Sentences(text string) []string {
	var (
		out []string
		b   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()
	return out
}

// Words returns letter/digit runs and single punctuation tokens.
func (SimpleTokenizer) Words(text string) []string {
	var (
		out  []string
		word []rune
	)
	flush := func() {
		if len(word) > 0 {
			out = append(out, string(word))
			word = word[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			word = append(word, r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()
	return out
}

// CapitalizedEntities treats each run of capitalized words as one entity,
// skipping a capitalized word that starts a sentence on its own.
type CapitalizedEntities struct{}

// Entities returns the capitalized runs joined by single spaces.
func (CapitalizedEntities) Entities(text string) []string {
	var (
		out       []string
		run       []string
		sentStart = true
	)
	flush := func() {
		if len(run) > 1 || (len(run) == 1 && !sentStart) {
			out = append(out, strings.Join(run, " "))
		}
		run = run[:0]
	}
	for _, tok := range (SimpleTokenizer{}).Words(text) {
		r := []rune(tok)
		switch {
		case unicode.IsUpper(r[0]):
			run = append(run, tok)
			continue
		case tok == "." || tok == "!" || tok == "?":
			flush()
			sentStart = true
			continue
		}
		flush()
		sentStart = false
	}
	flush()
	return out
}
