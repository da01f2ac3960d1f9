package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-precis/infrastructure/middleware"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/log"
	"github.com/ahrav/go-precis/internal/ports"
)

// EngineOptions configures a MetricsEngine.
type EngineOptions struct {
	// Workers bounds EvaluateBatch concurrency. Zero means DefaultWorkers.
	Workers int
	// MaxTextBytes is enforced by the InputGuard around every unit.
	MaxTextBytes int
	// UnitParams holds per-type unit parameters.
	UnitParams map[string]map[string]any
	// Collector receives unit latency, rejections and score distributions. Optional.
	Collector ports.MetricsCollector
	// Logger defaults to log.Default.
	Logger log.Logger
}

// MetricsEngine scores summaries. Every metric unit runs concurrently on
// the same immutable State and their outputs are merged into one result.
// It is safe for concurrent use.
type MetricsEngine struct {
	units     []ports.Unit
	pool      *ants.PoolWithFunc
	collector ports.MetricsCollector
	logger    log.Logger
	tracer    trace.Tracer
}

// BatchResult is the outcome of one EvaluateBatch input. Err is set
// instead of Result when that input could not be scored.
type BatchResult struct {
	Result domain.MetricResult
	Err    error
}

type batchTask struct {
	ctx    context.Context
	engine *MetricsEngine
	in     domain.MetricInput
	out    *BatchResult
	wg     *sync.WaitGroup
}

// NewMetricsEngine builds one guarded unit per metric type from registry.
// Call Close to release the batch worker pool.
func NewMetricsEngine(registry *UnitRegistry, opts EngineOptions) (*MetricsEngine, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: unit registry is required", domain.ErrInvalidConfiguration)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.Default
	}

	limits := middleware.Limits{MaxTextBytes: opts.MaxTextBytes}
	built := make([]ports.Unit, 0, len(MetricUnitTypes))
	for _, unitType := range MetricUnitTypes {
		unit, err := registry.CreateUnit(unitType, unitType, opts.UnitParams[unitType])
		if err != nil {
			return nil, err
		}
		guarded := middleware.NewInputGuard(limits, unit, opts.Collector)
		if err := guarded.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s: %w", unitType, err)
		}
		built = append(built, guarded)
	}

	pool, err := ants.NewPoolWithFunc(opts.Workers, func(arg any) {
		task, ok := arg.(*batchTask)
		if !ok {
			panic("metrics engine pool args type error")
		}
		defer task.wg.Done()
		res, err := task.engine.Evaluate(task.ctx, task.in)
		*task.out = BatchResult{Result: res, Err: err}
	})
	if err != nil {
		return nil, fmt.Errorf("create evaluation pool: %w", err)
	}

	return &MetricsEngine{
		units:     built,
		pool:      pool,
		collector: opts.Collector,
		logger:    opts.Logger,
		tracer:    otel.Tracer("metrics-engine"),
	}, nil
}

// Evaluate computes every metric for in. It fails only when a unit
// rejects the input or ctx is done.
func (e *MetricsEngine) Evaluate(ctx context.Context, in domain.MetricInput) (domain.MetricResult, error) {
	executionID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "MetricsEngine.Evaluate",
		trace.WithAttributes(
			attribute.String("execution.id", executionID),
			attribute.Int("input.original_length", len(in.Original)),
			attribute.Int("input.summary_length", len(in.Summary)),
			attribute.Bool("input.has_reference", in.Reference != nil),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return domain.MetricResult{}, err
	}
	start := time.Now()

	state := domain.With(domain.StateFromInput(in), domain.KeyExecutionID, executionID)

	outputs := make([]domain.State, len(e.units))
	g, gctx := errgroup.WithContext(ctx)
	for i, unit := range e.units {
		g.Go(func() error {
			out, err := unit.Execute(gctx, state)
			if err != nil {
				return fmt.Errorf("unit %s: %w", unit.Name(), err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch {
		case middleware.IsInputRejection(err):
			span.SetAttributes(attribute.Bool("input.rejected", true))
			e.logger.Debugf("evaluation %s rejected: %v", executionID, err)
		case ctx.Err() != nil:
			e.logger.Debugf("evaluation %s cancelled: %v", executionID, err)
		default:
			e.logger.Warnf("evaluation %s failed: %v", executionID, err)
		}
		return domain.MetricResult{}, err
	}

	merged := state
	for _, out := range outputs {
		merged = merged.Merge(out)
	}

	res, err := domain.ResultFromState(merged)
	if err != nil {
		span.RecordError(err)
		return domain.MetricResult{}, fmt.Errorf("assemble result: %w", err)
	}

	e.observe(res)
	span.SetAttributes(
		attribute.Float64("eval.compression_ratio", res.CompressionRatio),
		attribute.Float64("eval.readability_grade", res.ReadabilityGrade),
		attribute.Float64("eval.entity_retention", res.EntityRetention),
		attribute.String("eval.reference_status", string(res.Reference.Status)),
		attribute.Int64("eval.latency_ms", time.Since(start).Milliseconds()),
	)
	return res, nil
}

// EvaluateBatch scores every input on the worker pool. Results keep the
// order of inputs; a failing input does not fail the batch. The error is
// non-nil only when ctx is done before all inputs were scored.
func (e *MetricsEngine) EvaluateBatch(ctx context.Context, inputs []domain.MetricInput) ([]BatchResult, error) {
	results := make([]BatchResult, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		task := &batchTask{ctx: ctx, engine: e, in: in, out: &results[i], wg: &wg}
		if err := e.pool.Invoke(task); err != nil {
			wg.Done()
			results[i] = BatchResult{Err: fmt.Errorf("submit input %d: %w", i, err)}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close releases the worker pool. The engine must not be used afterwards.
func (e *MetricsEngine) Close() {
	e.pool.Release()
}

func (e *MetricsEngine) observe(res domain.MetricResult) {
	if e.collector == nil {
		return
	}
	record := func(metric string, v float64) {
		e.collector.RecordHistogram(ports.MetricScore, v, map[string]string{"metric": metric})
	}
	record("compression_ratio", res.CompressionRatio)
	record("readability_grade", res.ReadabilityGrade)
	record("entity_retention", res.EntityRetention)
	if s := res.Reference.Scores; s != nil {
		record("rouge1_f1", s.Rouge1F1)
		record("rougeL_f1", s.RougeLF1)
		record("bleu", s.BLEU)
		record("edit_similarity", s.EditSimilarity)
	}
}
