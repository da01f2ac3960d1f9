package units

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

var _ ports.Unit = (*CompressionUnit)(nil)

// CompressionRatio returns how much shorter summary is than original as a
// percentage of the original's whitespace-delimited word count, rounded to
// 2 decimals. It is 0 when original has no words and negative when summary
// is longer than original.
func CompressionRatio(original, summary string) float64 {
	return compressionRatio(original, summary, 2)
}

func compressionRatio(original, summary string, precision int) float64 {
	wo := len(strings.Fields(original))
	if wo == 0 {
		return 0
	}
	ws := len(strings.Fields(summary))
	return roundTo(float64(wo-ws)/float64(wo)*100, precision)
}

// CompressionUnit writes CompressionRatio(original, summary) to
// domain.KeyCompressionRatio. It is stateless and safe for concurrent use.
type CompressionUnit struct {
	name   string
	config CompressionConfig
	tracer trace.Tracer
}

// CompressionConfig controls result rounding.
type CompressionConfig struct {
	// Precision is the number of decimal places kept. Default: 2.
	Precision int `yaml:"precision" json:"precision" validate:"min=0,max=6"`
}

// DefaultCompressionConfig returns the configuration matching CompressionRatio.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{Precision: 2}
}

// NewCompressionUnit creates a CompressionUnit with validated configuration.
func NewCompressionUnit(name string, config CompressionConfig) (*CompressionUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &CompressionUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("compression-unit"),
	}, nil
}

// Name returns the unit identifier.
func (u *CompressionUnit) Name() string { return u.name }

// Execute reads domain.KeyOriginal and domain.KeySummary and adds
// domain.KeyCompressionRatio.
func (u *CompressionUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "CompressionUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", TypeCompression),
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

	ratio := compressionRatio(original, summary, u.config.Precision)

	span.SetAttributes(
		attribute.Float64("eval.score", ratio),
		attribute.Int64("eval.latency_ms", time.Since(start).Milliseconds()),
		attribute.Bool("no_llm_cost", true),
	)
	return domain.With(state, domain.KeyCompressionRatio, ratio), nil
}

// Validate verifies the unit configuration.
func (u *CompressionUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters strictly decodes YAML parameters into the unit config.
// The config is unchanged on error.
func (u *CompressionUnit) UnmarshalParameters(params yaml.Node) error {
	cfg := DefaultCompressionConfig()
	if err := decodeParameters(params, &cfg); err != nil {
		return err
	}
	u.config = cfg
	return nil
}

// NewCompressionFromConfig creates a CompressionUnit from a configuration map.
// Compression needs no NLP dependencies.
func NewCompressionFromConfig(id string, config map[string]any, _ Dependencies) (ports.Unit, error) {
	u, err := NewCompressionUnit(id, DefaultCompressionConfig())
	if err != nil {
		return nil, err
	}
	if err := applyParameters(u, config); err != nil {
		return nil, fmt.Errorf("unit %s: %w", id, err)
	}
	return u, nil
}
