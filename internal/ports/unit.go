// Package ports defines the interfaces between the application layer and
// the infrastructure that implements metrics, NLP and summarization.
package ports

import (
	"context"

	"github.com/ahrav/go-precis/internal/domain"
)

// Unit is one step of metric evaluation. A unit reads its inputs from the
// State and returns a new State carrying its outputs.
// Units must be stateless and safe for concurrent use.
type Unit interface {
	// Name returns the unit identifier used in spans, logs and config.
	Name() string

	// Execute computes the unit's metric over state and returns a State
	// containing only the unit's outputs merged onto the input.
	// The input State must not be modified.
	//
	// Example:
	//
	//	next, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return domain.State{}, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks that the unit is configured and its dependencies are present.
	Validate() error
}

// Tokenizer splits text the way the readability formula expects.
type Tokenizer interface {
	// Sentences segments text into sentences.
	Sentences(text string) []string

	// Words tokenizes text into word and punctuation tokens.
	Words(text string) []string
}

// EntityExtractor finds named-entity chunks in text.
type EntityExtractor interface {
	// Entities returns each entity chunk as its tokens joined by single spaces.
	// Duplicates may be returned; callers build sets.
	Entities(text string) []string
}
