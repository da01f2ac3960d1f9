package units

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

var _ ports.Unit = (*ReferenceUnit)(nil)

// ScoreReference compares summary (the hypothesis) against reference using
// stemmed ROUGE-1 and ROUGE-L F1, smoothed sentence BLEU and a normalized
// edit similarity. Values are rounded to 3 decimals. The roles are fixed:
// swapping the arguments changes BLEU and the ROUGE precision/recall split.
func ScoreReference(reference, summary string) domain.ReferenceScores {
	return scoreReference(reference, summary, DefaultReferenceConfig())
}

func scoreReference(reference, summary string, cfg ReferenceConfig) domain.ReferenceScores {
	target := rougeTokens(reference, cfg.UseStemmer)
	prediction := rougeTokens(summary, cfg.UseStemmer)

	bleu := sentenceBLEU(reference, summary, bleuOptions{maxOrder: cfg.MaxOrder, epsilon: cfg.Epsilon})

	return domain.ReferenceScores{
		Rouge1F1:       roundTo(rougeN(target, prediction, 1).FMeasure, cfg.Precision),
		RougeLF1:       roundTo(rougeL(target, prediction).FMeasure, cfg.Precision),
		BLEU:           roundTo(bleu, cfg.Precision),
		EditSimilarity: roundTo(editSimilarity(reference, summary), cfg.Precision),
	}
}

// editSimilarity is 1 minus the Levenshtein distance over the longer rune
// length, after Unicode case folding. Two empty strings are identical.
func editSimilarity(a, b string) float64 {
	fold := cases.Fold()
	a, b = fold.String(a), fold.String(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// ReferenceUnit writes a domain.ReferenceResult to domain.KeyReferenceResult.
// Scoring runs only when the State carries a non-blank reference; a nil
// reference reports "not_supplied" and a blank one reports "empty".
type ReferenceUnit struct {
	name   string
	config ReferenceConfig
	tracer trace.Tracer
}

// ReferenceConfig controls reference scoring.
type ReferenceConfig struct {
	// UseStemmer applies the Porter stemmer before ROUGE. Default: true.
	UseStemmer bool `yaml:"use_stemmer" json:"use_stemmer"`

	// MaxOrder is the highest BLEU n-gram order. Default: 4.
	MaxOrder int `yaml:"max_order" json:"max_order" validate:"min=1,max=4"`

	// Epsilon is added to zero BLEU numerators. Default: 0.1.
	Epsilon float64 `yaml:"epsilon" json:"epsilon" validate:"gt=0,lte=1"`

	// Precision is the number of decimal places kept. Default: 3.
	Precision int `yaml:"precision" json:"precision" validate:"min=0,max=6"`
}

// DefaultReferenceConfig returns stemmed ROUGE with 4-gram BLEU at 3 decimals.
func DefaultReferenceConfig() ReferenceConfig {
	return ReferenceConfig{UseStemmer: true, MaxOrder: 4, Epsilon: 0.1, Precision: 3}
}

// NewReferenceUnit creates a ReferenceUnit with validated configuration.
func NewReferenceUnit(name string, config ReferenceConfig) (*ReferenceUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &ReferenceUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("reference-unit"),
	}, nil
}

// Name returns the unit identifier.
func (u *ReferenceUnit) Name() string { return u.name }

// Execute adds domain.KeyReferenceResult.
func (u *ReferenceUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "ReferenceUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeReference),
			attribute.String("unit.id", u.name),
			attribute.Bool("config.use_stemmer", u.config.UseStemmer),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return state, err
	}
	start := time.Now()

	reference, _ := domain.Get(state, domain.KeyReference)
	result, score := domain.ReferenceOutcomeFor(reference)
	span.SetAttributes(attribute.String("reference.status", string(result.Status)))
	if !score {
		return domain.With(state, domain.KeyReferenceResult, result), nil
	}

	summary, err := domain.MustGet(state, domain.KeySummary)
	if err != nil {
		span.RecordError(err)
		return state, err
	}

	scores := scoreReference(*reference, summary, u.config)

	span.SetAttributes(
		attribute.Float64("eval.score", scores.Rouge1F1),
		attribute.Float64("eval.rougeL", scores.RougeLF1),
		attribute.Float64("eval.bleu", scores.BLEU),
		attribute.Int64("eval.latency_ms", time.Since(start).Milliseconds()),
		attribute.Bool("no_llm_cost", true),
	)
	return domain.With(state, domain.KeyReferenceResult, domain.Scored(scores)), nil
}

// Validate verifies the unit configuration.
func (u *ReferenceUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters strictly decodes YAML parameters into the unit config.
func (u *ReferenceUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultReferenceConfig()
	if err := decodeParameters(params, &cfg); err != nil {
		return err
	}
	u.config = cfg
	return nil
}

// NewReferenceFromConfig creates a ReferenceUnit from a configuration map.
func NewReferenceFromConfig(id string, config map[string]any, _ Dependencies) (ports.Unit, error) {
	u, err := NewReferenceUnit(id, DefaultReferenceConfig())
	if err != nil {
		return nil, err
	}
	if err := applyParameters(u, config); err != nil {
		return nil, fmt.Errorf("unit %s: %w", id, err)
	}
	return u, nil
}
