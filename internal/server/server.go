// Package server exposes the summarization and metrics services over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/yuin/goldmark"

	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/internal/application"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/log"
)

// Defaults for request size limits.
const (
	DefaultMaxUploadBytes = 10 << 20
	DefaultMaxBodyBytes   = 32 << 20
	DefaultMaxBatchSize   = 1000
)

// Summarizer produces scored summaries. *application.SummaryService implements it.
type Summarizer interface {
	Summarize(ctx context.Context, req application.SummarizeRequest) (application.SummarizeResponse, error)
}

// Evaluator scores caller-supplied texts. *application.MetricsEngine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, in domain.MetricInput) (domain.MetricResult, error)
	EvaluateBatch(ctx context.Context, inputs []domain.MetricInput) ([]application.BatchResult, error)
}

// EngineCatalog describes configured engines. *summarizer.Registry implements it.
type EngineCatalog interface {
	Engines() []summarizer.EngineInfo
	ListModels(ctx context.Context, name string) ([]summarizer.ModelInfo, error)
}

// Server routes HTTP requests to the application services.
type Server struct {
	router    *mux.Router
	handler   http.Handler
	summaries Summarizer
	metrics   Evaluator
	engines   EngineCatalog
	markdown  goldmark.Markdown
	logger    log.Logger

	defaultStyle    domain.Style
	defaultMaxWords int
	maxUploadBytes  int64
	maxBodyBytes    int64
	maxBatchSize    int
	allowedOrigins  []string
	gatherer        prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. The default is log.Default.
func WithLogger(l log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins restricts CORS. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithMaxUploadBytes bounds uploaded files.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithMaxBatchSize bounds the inputs of one batch evaluation.
func WithMaxBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithSummaryDefaults sets the style and length reported by /api/styles.
func WithSummaryDefaults(style domain.Style, maxWords int) Option {
	return func(s *Server) {
		if style != "" {
			s.defaultStyle = style
		}
		if maxWords > 0 {
			s.defaultMaxWords = maxWords
		}
	}
}

// WithGatherer selects the registry served on /metrics. The default is
// prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// New builds a Server around the given services.
func New(summaries Summarizer, metrics Evaluator, engines EngineCatalog, opts ...Option) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		summaries:       summaries,
		metrics:         metrics,
		engines:         engines,
		markdown:        goldmark.New(),
		logger:          log.Default,
		defaultStyle:    domain.StyleNeutral,
		defaultMaxWords: domain.DefaultMaxWords,
		maxUploadBytes:  DefaultMaxUploadBytes,
		maxBodyBytes:    DefaultMaxBodyBytes,
		maxBatchSize:    DefaultMaxBatchSize,
		gatherer:        prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(requestIDMiddleware, s.loggingMiddleware, s.recoverMiddleware)
	s.registerRoutes()

	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Type", RequestIDHeader},
	})
	s.handler = c.Handler(s.router)
	return s
}

// Handler returns the root handler including CORS.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/engines", s.handleEngines).Methods(http.MethodGet)
	api.HandleFunc("/engines/{name}/models", s.handleListModels).Methods(http.MethodGet)
	api.HandleFunc("/styles", s.handleStyles).Methods(http.MethodGet)
	api.HandleFunc("/summarize", s.handleSummarize).Methods(http.MethodPost)
	api.HandleFunc("/evaluate", s.handleEvaluate).Methods(http.MethodPost)
	api.HandleFunc("/evaluate/batch", s.handleEvaluateBatch).Methods(http.MethodPost)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
}
