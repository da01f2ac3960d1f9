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

var _ ports.Unit = (*EntityRetentionUnit)(nil)

// EntityRetention returns the percentage of distinct named entities in
// original whose exact surface string also appears among the entities of
// summary, rounded to 2 decimals. Matching is case-sensitive with no alias
// resolution, so "U.S." does not retain "United States". It is 0 when
// original has no entities.
func EntityRetention(ext ports.EntityExtractor, original, summary string) float64 {
	return entityRetention(ext, original, summary, 2)
}

func entityRetention(ext ports.EntityExtractor, original, summary string, precision int) float64 {
	orig := entitySet(ext.Entities(original))
	if len(orig) == 0 {
		return 0
	}
	sum := entitySet(ext.Entities(summary))

	retained := 0
	for e := range orig {
		if _, ok := sum[e]; ok {
			retained++
		}
	}
	return roundTo(float64(retained)/float64(len(orig))*100, precision)
}

func entitySet(entities []string) map[string]struct{} {
	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		set[e] = struct{}{}
	}
	return set
}

// EntityRetentionUnit writes EntityRetention(original, summary) to
// domain.KeyEntityRetention.
type EntityRetentionUnit struct {
	name      string
	config    EntityRetentionConfig
	extractor ports.EntityExtractor
	tracer    trace.Tracer
}

// EntityRetentionConfig controls result rounding.
type EntityRetentionConfig struct {
	// Precision is the number of decimal places kept. Default: 2.
	Precision int `yaml:"precision" json:"precision" validate:"min=0,max=6"`
}

// DefaultEntityRetentionConfig returns the configuration matching EntityRetention.
func DefaultEntityRetentionConfig() EntityRetentionConfig {
	return EntityRetentionConfig{Precision: 2}
}

// NewEntityRetentionUnit creates an EntityRetentionUnit. extractor must be non-nil.
func NewEntityRetentionUnit(name string, config EntityRetentionConfig, extractor ports.EntityExtractor) (*EntityRetentionUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if extractor == nil {
		return nil, fmt.Errorf("entity retention unit %s: extractor: %w", name, ErrMissingDependency)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &EntityRetentionUnit{
		name:      name,
		config:    config,
		extractor: extractor,
		tracer:    otel.Tracer("entity-retention-unit"),
	}, nil
}

// Name returns the unit identifier.
func (u *EntityRetentionUnit) Name() string { return u.name }

// Execute adds domain.KeyEntityRetention.
func (u *EntityRetentionUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "EntityRetentionUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeEntityRetention),
			attribute.String("unit.id", u.name),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return state, err
	}
	start := time.Now()

	original, err := domain.MustGet(state, domain.KeyOriginal)
	if err != nil {
		span.RecordError(err)
		return state, err
	}
	summary, err := domain.MustGet(state, domain.KeySummary)
	if err != nil {
		span.RecordError(err)
		return state, err
	}

	retention := entityRetention(u.extractor, original, summary, u.config.Precision)

	span.SetAttributes(
		attribute.Float64("eval.score", retention),
		attribute.Int64("eval.latency_ms", time.Since(start).Milliseconds()),
		attribute.Bool("no_llm_cost", true),
	)
	return domain.With(state, domain.KeyEntityRetention, retention), nil
}

// Validate verifies configuration and the extractor dependency.
func (u *EntityRetentionUnit) Validate() error {
	if u.extractor == nil {
		return fmt.Errorf("extractor: %w", ErrMissingDependency)
	}
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters strictly decodes YAML parameters into the unit config.
func (u *EntityRetentionUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultEntityRetentionConfig()
	if err := decodeParameters(params, &cfg); err != nil {
		return err
	}
	u.config = cfg
	return nil
}

// NewEntityRetentionFromConfig creates an EntityRetentionUnit from a configuration map.
func NewEntityRetentionFromConfig(id string, config map[string]any, deps Dependencies) (ports.Unit, error) {
	u, err := NewEntityRetentionUnit(id, DefaultEntityRetentionConfig(), deps.Entities)
	if err != nil {
		return nil, err
	}
	if err := applyParameters(u, config); err != nil {
		return nil, fmt.Errorf("unit %s: %w", id, err)
	}
	return u, nil
}
