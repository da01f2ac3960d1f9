package application

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/log"
	"github.com/ahrav/go-precis/internal/ports"
)

// BackendProvider resolves engine names to backends. An empty name
// selects the default engine. *summarizer.Registry implements it.
type BackendProvider interface {
	Get(name string) (summarizer.Backend, error)
}

// Evaluator scores a summary. *MetricsEngine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, in domain.MetricInput) (domain.MetricResult, error)
}

// SummarizeRequest is a caller's request for a scored summary.
type SummarizeRequest struct {
	Text string `json:"text"`
	// Engine names a configured engine; empty selects the default.
	Engine string `json:"engine,omitempty"`
	// Style is empty for the configured default.
	Style string `json:"style,omitempty"`
	// MaxWords is zero for the configured default.
	MaxWords int `json:"max_words,omitempty"`
	// Reference is an optional human summary to score against.
	Reference *string `json:"reference,omitempty"`
}

// SummarizeResponse carries the summary and its scores.
type SummarizeResponse struct {
	ID       string              `json:"id"`
	Summary  domain.Summary      `json:"summary"`
	Style    domain.Style        `json:"style"`
	MaxWords int                 `json:"max_words"`
	Metrics  domain.MetricResult `json:"metrics"`
	Cached   bool                `json:"cached"`
}

// ServiceOptions configures a SummaryService.
type ServiceOptions struct {
	DefaultStyle    domain.Style
	DefaultMaxWords int

	// Cache stores summaries; nil disables caching.
	Cache    ports.CacheStore
	CacheTTL time.Duration

	Collector ports.MetricsCollector
	Logger    log.Logger
}

// SummaryService validates requests, fetches summaries through the
// summary cache and scores them.
type SummaryService struct {
	backends BackendProvider
	metrics  Evaluator
	opts     ServiceOptions
	sf       singleflight.Group
	tracer   trace.Tracer
}

// NewSummaryService wires a service. The default style must be known.
func NewSummaryService(backends BackendProvider, metrics Evaluator, opts ServiceOptions) (*SummaryService, error) {
	if backends == nil || metrics == nil {
		return nil, fmt.Errorf("%w: backends and evaluator are required", domain.ErrInvalidConfiguration)
	}
	style, err := domain.ParseStyle(cmp.Or(string(opts.DefaultStyle), string(domain.StyleNeutral)))
	if err != nil {
		return nil, fmt.Errorf("%w: default style: %w", domain.ErrInvalidConfiguration, err)
	}
	opts.DefaultStyle = style
	opts.DefaultMaxWords = cmp.Or(opts.DefaultMaxWords, domain.DefaultMaxWords)
	if opts.Logger == nil {
		opts.Logger = log.Default
	}
	return &SummaryService{
		backends: backends,
		metrics:  metrics,
		opts:     opts,
		tracer:   otel.Tracer("summary-service"),
	}, nil
}

// Summarize produces and scores a summary of req.Text.
func (s *SummaryService) Summarize(ctx context.Context, req SummarizeRequest) (SummarizeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "SummaryService.Summarize",
		trace.WithAttributes(
			attribute.String("summary.engine", req.Engine),
			attribute.Int("input.length", len(req.Text)),
		),
	)
	defer span.End()

	resp, err := s.summarize(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SummarizeResponse{}, err
	}
	span.SetAttributes(
		attribute.String("summary.id", resp.ID),
		attribute.Bool("summary.cached", resp.Cached),
	)
	return resp, nil
}

func (s *SummaryService) summarize(ctx context.Context, req SummarizeRequest) (SummarizeResponse, error) {
	sreq, err := s.normalize(req)
	if err != nil {
		return SummarizeResponse{}, err
	}

	backend, err := s.backends.Get(req.Engine)
	if err != nil {
		return SummarizeResponse{}, err
	}

	summary, cached, err := s.fetch(ctx, backend, sreq)
	if err != nil {
		return SummarizeResponse{}, err
	}

	scores, err := s.metrics.Evaluate(ctx, domain.MetricInput{
		Original:  sreq.Text,
		Summary:   summary.Text,
		Reference: req.Reference,
	})
	if err != nil {
		return SummarizeResponse{}, fmt.Errorf("evaluate summary: %w", err)
	}

	return SummarizeResponse{
		ID:       uuid.NewString(),
		Summary:  summary,
		Style:    sreq.Style,
		MaxWords: sreq.MaxWords,
		Metrics:  scores,
		Cached:   cached,
	}, nil
}

// normalize applies defaults and validates. An unknown style is an error
// wrapping domain.ErrUnknownStyle rather than falling back to the default.
func (s *SummaryService) normalize(req SummarizeRequest) (domain.SummaryRequest, error) {
	style := s.opts.DefaultStyle
	if strings.TrimSpace(req.Style) != "" {
		parsed, err := domain.ParseStyle(req.Style)
		if err != nil {
			return domain.SummaryRequest{}, err
		}
		style = parsed
	}

	sreq := domain.SummaryRequest{
		Text:     req.Text,
		Style:    style,
		MaxWords: cmp.Or(req.MaxWords, s.opts.DefaultMaxWords),
	}
	if err := sreq.Validate(); err != nil {
		return domain.SummaryRequest{}, err
	}
	return sreq, nil
}

// fetch returns the cached summary or asks the backend. Identical
// concurrent requests share one backend call, which is detached from the
// first caller's cancellation; the backend's own timeout still applies.
func (s *SummaryService) fetch(ctx context.Context, backend summarizer.Backend, req domain.SummaryRequest) (domain.Summary, bool, error) {
	key := CacheKey(backend.Name(), backend.Model(), req)

	if summary, ok := s.lookup(ctx, key); ok {
		return summary, true, nil
	}

	ch := s.sf.DoChan(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		summary, err := backend.Summarize(callCtx, req)
		if err != nil {
			return nil, err
		}
		if s.opts.Cache != nil {
			if err := s.opts.Cache.Set(callCtx, key, summary, s.opts.CacheTTL); err != nil {
				s.opts.Logger.Warnf("summary cache set failed: %v", err)
			}
		}
		return summary, nil
	})

	select {
	case <-ctx.Done():
		return domain.Summary{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Summary{}, false, res.Err
		}
		return res.Val.(domain.Summary), false, nil
	}
}

func (s *SummaryService) lookup(ctx context.Context, key string) (domain.Summary, bool) {
	if s.opts.Cache == nil {
		return domain.Summary{}, false
	}
	value, found, err := s.opts.Cache.Get(ctx, key)
	if err != nil {
		s.opts.Logger.Warnf("summary cache get failed: %v", err)
		found = false
	}
	summary, ok := value.(domain.Summary)
	hit := found && ok

	if s.opts.Collector != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		s.opts.Collector.RecordCounter(ports.MetricCacheLookups, 1, map[string]string{"result": result})
	}
	return summary, hit
}

// CacheKey identifies a summary by engine, model, style, length and text.
func CacheKey(engine, model string, req domain.SummaryRequest) string {
	h := sha256.New()
	for _, part := range []string{engine, model, string(req.Style), strconv.Itoa(req.MaxWords), req.Text} {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
