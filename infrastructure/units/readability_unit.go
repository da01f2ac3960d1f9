package units

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

var _ ports.Unit = (*ReadabilityUnit)(nil)

// Flesch-Kincaid grade level coefficients.
const (
	fkWordsPerSentence = 0.39
	fkSyllablesPerWord = 11.8
	fkIntercept        = 15.59
)

// ReadabilityScore returns the Flesch-Kincaid grade level of text rounded to
// 2 decimals. Sentence and word counts are floored at 1, so any finite input
// (including the empty string) yields a finite grade.
func ReadabilityScore(tok ports.Tokenizer, text string) float64 {
	return readabilityScore(tok, text, 2)
}

func readabilityScore(tok ports.Tokenizer, text string, precision int) float64 {
	words := tok.Words(text)
	syllables := 0
	for _, w := range words {
		syllables += EstimateSyllables(w)
	}

	numSentences := float64(max(len(tok.Sentences(text)), 1))
	numWords := float64(max(len(words), 1))

	grade := fkWordsPerSentence*(numWords/numSentences) +
		fkSyllablesPerWord*(float64(syllables)/numWords) -
		fkIntercept
	return roundTo(grade, precision)
}

// ReadabilityUnit writes the Flesch-Kincaid grade of the summary (or the
// original, per config) to domain.KeyReadabilityGrade.
type ReadabilityUnit struct {
	name      string
	config    ReadabilityConfig
	tokenizer ports.Tokenizer
	tracer    trace.Tracer
}

// ReadabilityConfig selects the scored text and rounding.
type ReadabilityConfig struct {
	// Target is the text whose grade is reported. Default: "summary".
	Target string `yaml:"target" json:"target" validate:"required,oneof=summary original"`

	// Precision is the number of decimal places kept. Default: 2.
	Precision int `yaml:"precision" json:"precision" validate:"min=0,max=6"`
}

// DefaultReadabilityConfig scores the summary at 2 decimals.
func DefaultReadabilityConfig() ReadabilityConfig {
	return ReadabilityConfig{Target: "summary", Precision: 2}
}

// NewReadabilityUnit creates a ReadabilityUnit. tokenizer must be non-nil.
func NewReadabilityUnit(name string, config ReadabilityConfig, tokenizer ports.Tokenizer) (*ReadabilityUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if tokenizer == nil {
		return nil, fmt.Errorf("readability unit %s: tokenizer: %w", name, ErrMissingDependency)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ReadabilityUnit{
		name:      name,
		config:    config,
		tokenizer: tokenizer,
		tracer:    otel.Tracer("readability-unit"),
	}, nil
}

// Name returns the unit identifier.
func (u *ReadabilityUnit) Name() string { return u.name }

// Execute adds domain.KeyReadabilityGrade.
func (u *ReadabilityUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "ReadabilityUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeReadability),
			attribute.String("unit.id", u.name),
			attribute.String("config.target", u.config.Target),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return state, err
	}
	start := time.Now()

	key := domain.KeySummary
	if u.config.Target == "original" {
		key = domain.KeyOriginal
	}
	text, err := domain.MustGet(state, key)
	if err != nil {
		span.RecordError(err)
		return state, err
	}

	grade := readabilityScore(u.tokenizer, text, u.config.Precision)

	span.SetAttributes(
		attribute.Float64("eval.score", grade),
		attribute.Int64("eval.latency_ms", time.Since(start).Milliseconds()),
		attribute.Bool("no_llm_cost", true),
	)
	return domain.With(state, domain.KeyReadabilityGrade, grade), nil
}

// Validate verifies configuration and the tokenizer dependency.
func (u *ReadabilityUnit) Validate() error {
	if u.tokenizer == nil {
		return fmt.Errorf("tokenizer: %w", ErrMissingDependency)
	}
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters strictly decodes YAML parameters into the unit config.
func (u *ReadabilityUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultReadabilityConfig()
	if err := decodeParameters(params, &cfg); err != nil {
		return err
	}
	u.config = cfg
	return nil
}

// NewReadabilityFromConfig creates a ReadabilityUnit from a configuration map.
func NewReadabilityFromConfig(id string, config map[string]any, deps Dependencies) (ports.Unit, error) {
	u, err := NewReadabilityUnit(id, DefaultReadabilityConfig(), deps.Tokenizer)
	if err != nil {
		return nil, err
	}
	if err := applyParameters(u, config); err != nil {
		return nil, fmt.Errorf("unit %s: %w", id, err)
	}
	return u, nil
}
