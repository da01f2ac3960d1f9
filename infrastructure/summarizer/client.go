// Package summarizer turns source text into summaries through pluggable
// engines: a hosted transformer pipeline (Hugging Face) and prompt-based
// LLM providers (Google Gemini, OpenAI, Anthropic).
//
// Every engine implements Backend. Cross-cutting behavior such as rate
// limiting, circuit breaking, timeouts, metrics and tracing is layered on
// with Middleware, so provider code only speaks to its SDK.
//
// Basic usage:
//
//	backend, err := summarizer.New("google", summarizer.Config{
//	    Name:   "gemini",
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	    Middleware: []summarizer.Middleware{
//	        summarizer.TimeoutMiddleware(30 * time.Second),
//	        summarizer.CircuitBreakerMiddleware("gemini", 5, time.Minute, nil),
//	    },
//	})
//	summary, err := backend.Summarize(ctx, domain.SummaryRequest{Text: text, MaxWords: 150})
package summarizer

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// Backend is a summarization engine. It is the ports.Summarizer contract
// under the name the rest of this package uses.
type Backend = ports.Summarizer

// Middleware wraps a Backend to add cross-cutting behavior.
type Middleware func(Backend) Backend

// Completer is the minimal surface a prompt-based provider implements.
// DoRequest returns the raw response text with input and output token
// counts; a zero count means the provider did not report one.
type Completer interface {
	DoRequest(ctx context.Context, prompt string, opts RequestOptions) (response string, tokensIn, tokensOut int, err error)
	Model() string
}

// RequestOptions carries per-request generation parameters.
type RequestOptions struct {
	// MaxTokens caps the generated output. Zero leaves the provider default.
	MaxTokens int

	// Temperature overrides the provider default when non-nil.
	Temperature *float64
}

// TokenEstimator approximates token counts for providers that do not
// report usage.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// Config holds everything needed to build one engine.
type Config struct {
	// Name is the engine name reported in summaries and metric labels.
	// It defaults to the provider type.
	Name string

	// APIKey authenticates requests. Optional for huggingface.
	APIKey string

	// Model overrides the provider's default model.
	Model string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout bounds each HTTP round trip made by the provider SDK.
	Timeout time.Duration

	// HTTPClient replaces the provider's HTTP client where the SDK allows it.
	HTTPClient *http.Client

	// TokenEstimator fills in usage counts the provider does not report.
	// It defaults to a word-based estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order; the first entry is the outermost.
	Middleware []Middleware
}

// ProviderFactory builds the bare Backend for one provider type.
type ProviderFactory func(Config) (Backend, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[string]ProviderFactory{}
)

// RegisterProviderFactory makes a provider type available to New.
// Providers in this package register themselves from init.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[providerType] = factory
}

// ProviderTypes lists the registered provider types in sorted order.
func ProviderTypes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(providerFactories))
}

// New builds the engine for providerType and wraps it with cfg.Middleware.
func New(providerType string, cfg Config) (Backend, error) {
	factoriesMu.RLock()
	factory, ok := providerFactories[providerType]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerType)
	}
	if cfg.Name == "" {
		cfg.Name = providerType
	}
	if cfg.TokenEstimator == nil {
		cfg.TokenEstimator = NewWordTokenEstimator(0)
	}
	if cfg.BaseURL != "" {
		validated, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("engine %s: invalid base URL: %w", cfg.Name, err)
		}
		cfg.BaseURL = validated
	}
	cfg.Timeout = ValidateTimeout(cfg.Timeout)

	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s engine %q: %w", providerType, cfg.Name, err)
	}

	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		backend = cfg.Middleware[i](backend)
	}
	return backend, nil
}

// promptBackend adapts a Completer into a Backend by rendering the style
// prompt and normalizing the answer.
type promptBackend struct {
	name      string
	core      Completer
	estimator TokenEstimator
}

func newPromptBackend(cfg Config, core Completer) *promptBackend {
	return &promptBackend{name: cfg.Name, core: core, estimator: cfg.TokenEstimator}
}

// Summarize implements Backend.
func (b *promptBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return domain.Summary{}, err
	}

	start := time.Now()
	text, tokensIn, tokensOut, err := b.core.DoRequest(ctx, prompt, RequestOptions{
		MaxTokens: outputTokenBudget(req.MaxWords),
	})
	if err != nil {
		return domain.Summary{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Summary{}, fmt.Errorf("%s: %w", b.name, ports.ErrEmptyResponse)
	}
	if tokensIn <= 0 {
		tokensIn = b.estimator.EstimateTokens(prompt)
	}
	if tokensOut <= 0 {
		tokensOut = b.estimator.EstimateTokens(text)
	}

	return domain.Summary{
		Text:         text,
		Engine:       b.name,
		Model:        b.core.Model(),
		InputTokens:  tokensIn,
		OutputTokens: tokensOut,
		Latency:      time.Since(start),
	}, nil
}

// Name implements Backend.
func (b *promptBackend) Name() string { return b.name }

// Model implements Backend.
func (b *promptBackend) Model() string { return b.core.Model() }

// outputTokenBudget leaves headroom over the word limit for tokenization
// and bullet formatting.
func outputTokenBudget(maxWords int) int {
	if maxWords <= 0 {
		maxWords = domain.DefaultMaxWords
	}
	return max(256, maxWords*3)
}
