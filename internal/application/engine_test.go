package application

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-precis/infrastructure/units"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/log"
	"github.com/ahrav/go-precis/internal/ports"
	"github.com/ahrav/go-precis/internal/testutils"
)

const (
	obamaOriginal = "Barack Obama was born in Hawaii. He served as president."
	obamaSummary  = "Barack Obama was born in Hawaii."
)

func testNLP() units.Dependencies {
	return units.Dependencies{
		Tokenizer: testutils.SimpleTokenizer{},
		Entities:  testutils.CapitalizedEntities{},
	}
}

func newTestEngine(t *testing.T, opts EngineOptions) *MetricsEngine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	engine, err := NewMetricsEngine(NewUnitRegistry(testNLP()), opts)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func ptr(s string) *string { return &s }

// captureLogger records formatted debug and warn lines.
type captureLogger struct {
	log.Logger
	debug []string
	warn  []string
}

func (l *captureLogger) Debugf(format string, args ...any) {
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Warnf(format string, args ...any) {
	l.warn = append(l.warn, fmt.Sprintf(format, args...))
}

// TestMetricsEngine_Evaluate verifies every metric and each reference branch.
func TestMetricsEngine_Evaluate(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{})
	wantGrade := units.ReadabilityScore(testutils.SimpleTokenizer{}, obamaSummary)

	tests := []struct {
		name       string
		input      domain.MetricInput
		wantStatus domain.ReferenceStatus
		verify     func(t *testing.T, res domain.MetricResult)
	}{
		{
			name:       "no reference",
			input:      domain.MetricInput{Original: obamaOriginal, Summary: obamaSummary},
			wantStatus: domain.ReferenceNotSupplied,
			verify: func(t *testing.T, res domain.MetricResult) {
				assert.Equal(t, 40.0, res.CompressionRatio)
				assert.Equal(t, 100.0, res.EntityRetention)
				assert.Equal(t, wantGrade, res.ReadabilityGrade)
				assert.Nil(t, res.Reference.Scores)
			},
		},
		{
			name:       "blank reference",
			input:      domain.MetricInput{Original: obamaOriginal, Summary: obamaSummary, Reference: ptr("  ")},
			wantStatus: domain.ReferenceEmpty,
			verify: func(t *testing.T, res domain.MetricResult) {
				assert.Nil(t, res.Reference.Scores)
			},
		},
		{
			name:       "reference equal to summary",
			input:      domain.MetricInput{Original: obamaOriginal, Summary: obamaSummary, Reference: ptr(obamaSummary)},
			wantStatus: domain.ReferenceScored,
			verify: func(t *testing.T, res domain.MetricResult) {
				require.NotNil(t, res.Reference.Scores)
				assert.Equal(t, 1.0, res.Reference.Scores.Rouge1F1)
				assert.Equal(t, 1.0, res.Reference.Scores.RougeLF1)
				assert.Equal(t, 1.0, res.Reference.Scores.BLEU)
				assert.Equal(t, 1.0, res.Reference.Scores.EditSimilarity)
			},
		},
		{
			name:       "empty texts",
			input:      domain.MetricInput{},
			wantStatus: domain.ReferenceNotSupplied,
			verify: func(t *testing.T, res domain.MetricResult) {
				assert.Equal(t, 0.0, res.CompressionRatio)
				assert.Equal(t, 0.0, res.EntityRetention)
				assert.Equal(t, -15.2, res.ReadabilityGrade)
			},
		},
		{
			name:       "summary longer than original",
			input:      domain.MetricInput{Original: "One two.", Summary: "One two three four."},
			wantStatus: domain.ReferenceNotSupplied,
			verify: func(t *testing.T, res domain.MetricResult) {
				assert.Equal(t, -100.0, res.CompressionRatio)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Evaluate(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Reference.Status)
			tt.verify(t, res)
		})
	}
}

// TestMetricsEngine_Evaluate_Rejections verifies oversized text and cancellation fail.
func TestMetricsEngine_Evaluate_Rejections(t *testing.T) {
	collector := &testutils.RecordingCollector{}
	engine := newTestEngine(t, EngineOptions{MaxTextBytes: 16, Collector: collector})

	_, err := engine.Evaluate(context.Background(), domain.MetricInput{
		Original: strings.Repeat("word ", 10),
		Summary:  "word",
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Positive(t, collector.Sum(ports.MetricInputRejected, map[string]string{"reason": "too_large"}))

	_, err = engine.Evaluate(context.Background(), domain.MetricInput{Original: "ok", Summary: "bad \xff"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Evaluate(ctx, domain.MetricInput{Original: "a", Summary: "a"})
	require.ErrorIs(t, err, context.Canceled)
}

// TestMetricsEngine_Evaluate_RejectionLogging verifies rejected input is
// logged at debug, not warn.
func TestMetricsEngine_Evaluate_RejectionLogging(t *testing.T) {
	logger := &captureLogger{Logger: log.Nop()}
	engine := newTestEngine(t, EngineOptions{MaxTextBytes: 16, Logger: logger})

	_, err := engine.Evaluate(context.Background(), domain.MetricInput{
		Original: strings.Repeat("word ", 10),
		Summary:  "word",
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, logger.warn)
	require.Len(t, logger.debug, 1)
	assert.Contains(t, logger.debug[0], "rejected")
}

// TestMetricsEngine_RecordsScores verifies score distributions reach the collector.
func TestMetricsEngine_RecordsScores(t *testing.T) {
	collector := &testutils.RecordingCollector{}
	engine := newTestEngine(t, EngineOptions{Collector: collector})

	_, err := engine.Evaluate(context.Background(), domain.MetricInput{
		Original:  obamaOriginal,
		Summary:   obamaSummary,
		Reference: ptr(obamaSummary),
	})
	require.NoError(t, err)

	compression := collector.Find(ports.MetricScore, map[string]string{"metric": "compression_ratio"})
	require.Len(t, compression, 1)
	assert.Equal(t, 40.0, compression[0].Value)
	assert.Len(t, collector.Find(ports.MetricScore, map[string]string{"metric": "bleu"}), 1)
	assert.Len(t, collector.Find(ports.MetricUnitLatency, nil), len(MetricUnitTypes))
}

// TestMetricsEngine_UnitParams verifies configured parameters reach the units.
func TestMetricsEngine_UnitParams(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{
		UnitParams: map[string]map[string]any{
			units.TypeReadability: {"precision": 0},
			units.TypeCompression: {"precision": 0},
		},
	})

	res, err := engine.Evaluate(context.Background(), domain.MetricInput{
		Original: "one two three",
		Summary:  "one",
	})
	require.NoError(t, err)
	assert.Equal(t, 67.0, res.CompressionRatio)
	assert.Equal(t, res.ReadabilityGrade, float64(int64(res.ReadabilityGrade)))
}

// TestNewMetricsEngine_Errors verifies construction failures.
func TestNewMetricsEngine_Errors(t *testing.T) {
	_, err := NewMetricsEngine(nil, EngineOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewMetricsEngine(NewUnitRegistry(testNLP()), EngineOptions{
		UnitParams: map[string]map[string]any{units.TypeCompression: {"precision": 9}},
	})
	require.Error(t, err)

	_, err = NewMetricsEngine(NewUnitRegistry(testNLP()), EngineOptions{
		UnitParams: map[string]map[string]any{units.TypeReadability: {"traget": "original"}},
	})
	require.ErrorContains(t, err, "field traget not found")

	_, err = NewMetricsEngine(NewUnitRegistry(units.Dependencies{}), EngineOptions{})
	require.ErrorIs(t, err, units.ErrMissingDependency)
}

// TestMetricsEngine_EvaluateBatch verifies order preservation and per-item errors.
func TestMetricsEngine_EvaluateBatch(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{Workers: 3, MaxTextBytes: 200})

	inputs := make([]domain.MetricInput, 0, 20)
	for i := range 20 {
		inputs = append(inputs, domain.MetricInput{
			Original: strings.Repeat("word ", i+2),
			Summary:  "word",
		})
	}
	inputs = append(inputs, domain.MetricInput{Original: strings.Repeat("x", 300), Summary: "x"})

	results, err := engine.EvaluateBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))

	for i, in := range inputs[:20] {
		require.NoError(t, results[i].Err, "input %d", i)
		assert.Equal(t, units.CompressionRatio(in.Original, in.Summary), results[i].Result.CompressionRatio, "input %d", i)
	}
	assert.ErrorIs(t, results[20].Err, domain.ErrInvalidInput)
}

// TestMetricsEngine_EvaluateBatch_Cancelled verifies a done context fails the batch.
func TestMetricsEngine_EvaluateBatch_Cancelled(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.EvaluateBatch(ctx, []domain.MetricInput{{Original: "a", Summary: "a"}})
	require.ErrorIs(t, err, context.Canceled)

	results, err := engine.EvaluateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestUnitRegistry verifies factory lookup and registration.
func TestUnitRegistry(t *testing.T) {
	registry := NewUnitRegistry(testNLP())
	assert.Equal(t, []string{"compression", "entity_retention", "readability", "reference"}, registry.SupportedTypes())

	unit, err := registry.CreateUnit(units.TypeCompression, "c1", nil)
	require.NoError(t, err)
	assert.Equal(t, "c1", unit.Name())

	_, err = registry.CreateUnit("sentiment", "s", nil)
	assert.ErrorContains(t, err, "unsupported unit type")
	_, err = registry.CreateUnit(units.TypeCompression, "", nil)
	assert.ErrorContains(t, err, "unit ID cannot be empty")

	require.Error(t, registry.RegisterUnitFactory("", units.NewCompressionFromConfig))
	require.Error(t, registry.RegisterUnitFactory("x", nil))
	require.NoError(t, registry.RegisterUnitFactory("alias", units.NewCompressionFromConfig))
	assert.Contains(t, registry.SupportedTypes(), "alias")
}
