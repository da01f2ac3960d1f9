package summarizer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-precis/internal/domain"
)

// tracedBackend wraps each request in an OpenTelemetry span.
type tracedBackend struct {
	next        Backend
	serviceName string
	tracer      trace.Tracer
}

// TracingMiddleware creates middleware that records a span per request
// using the global tracer provider.
func TracingMiddleware(serviceName string) Middleware {
	tracer := otel.Tracer("summarizer")
	return func(next Backend) Backend {
		return &tracedBackend{next: next, serviceName: serviceName, tracer: tracer}
	}
}

// Summarize executes the request within a span carrying engine, model,
// style and token usage attributes.
func (t *tracedBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	ctx, span := t.tracer.Start(ctx, "summarizer.Summarize",
		trace.WithAttributes(
			attribute.String("service.name", t.serviceName),
			attribute.String("summarizer.engine", t.next.Name()),
			attribute.String("summarizer.model", t.next.Model()),
			attribute.String("summarizer.style", string(req.Style)),
			attribute.Int("summarizer.max_words", req.MaxWords),
			attribute.Int("summarizer.input.length", len(req.Text)),
		),
	)
	defer span.End()

	summary, err := t.next.Summarize(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	span.SetAttributes(
		attribute.Int("summarizer.tokens.input", summary.InputTokens),
		attribute.Int("summarizer.tokens.output", summary.OutputTokens),
		attribute.Int64("summarizer.latency_ms", summary.Latency.Milliseconds()),
	)
	return summary, nil
}

func (t *tracedBackend) Name() string    { return t.next.Name() }
func (t *tracedBackend) Model() string   { return t.next.Model() }
func (t *tracedBackend) Unwrap() Backend { return t.next }
