package summarizer

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// EngineSpec is the configuration of one named engine.
type EngineSpec struct {
	Name      string
	Type      string
	Model     string
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration

	// RateLimit is requests per second; zero disables rate limiting.
	RateLimit float64
	Burst     int

	// MaxFailures is the consecutive-failure threshold of the circuit
	// breaker; zero disables it.
	MaxFailures int
	Cooldown    time.Duration
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Engines       []EngineSpec
	DefaultEngine string

	// Collector receives request metrics and circuit breaker state. Optional.
	Collector ports.MetricsCollector

	// ServiceName is attached to request spans.
	ServiceName string

	// Getenv resolves API key variables. It defaults to os.Getenv.
	Getenv func(string) string

	// HTTPClient is handed to providers that accept one. Optional.
	HTTPClient *http.Client
}

// EngineInfo describes a configured engine for listing.
type EngineInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Model        string `json:"model"`
	Available    bool   `json:"available"`
	Default      bool   `json:"default"`
	CanListModel bool   `json:"can_list_models"`
	CircuitState string `json:"circuit_state,omitempty"`
}

// providerDefaults holds the default model of each built-in provider type.
var providerDefaults = map[string]string{
	"huggingface": HuggingFaceDefaultModel,
	"google":      GoogleDefaultModel,
	"openai":      OpenAIDefaultModel,
	"anthropic":   AnthropicDefaultModel,
}

// keyOptional lists provider types that work without an API key.
var keyOptional = map[string]bool{"huggingface": true}

// DefaultModel returns the model a provider type uses when none is configured.
func DefaultModel(providerType string) string { return providerDefaults[providerType] }

// Registry builds configured engines on first use and caches them.
// It is safe for concurrent use.
type Registry struct {
	specs         map[string]EngineSpec
	order         []string
	defaultEngine string
	collector     ports.MetricsCollector
	serviceName   string
	getenv        func(string) string
	httpClient    *http.Client

	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry validates cfg and returns a Registry. No backend is built
// until it is first requested.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if len(cfg.Engines) == 0 {
		return nil, fmt.Errorf("%w: at least one engine is required", domain.ErrInvalidConfiguration)
	}

	known := make(map[string]bool)
	for _, t := range ProviderTypes() {
		known[t] = true
	}

	specs := make(map[string]EngineSpec, len(cfg.Engines))
	order := make([]string, 0, len(cfg.Engines))
	for _, spec := range cfg.Engines {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: engine name cannot be empty", domain.ErrInvalidConfiguration)
		}
		if _, dup := specs[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate engine %q", domain.ErrInvalidConfiguration, spec.Name)
		}
		if !known[spec.Type] {
			return nil, fmt.Errorf("%w: engine %q: %w: %s",
				domain.ErrInvalidConfiguration, spec.Name, ErrUnknownProvider, spec.Type)
		}
		specs[spec.Name] = spec
		order = append(order, spec.Name)
	}

	defaultEngine := cmp.Or(cfg.DefaultEngine, order[0])
	if _, ok := specs[defaultEngine]; !ok {
		return nil, fmt.Errorf("%w: default engine %q is not configured", domain.ErrInvalidConfiguration, defaultEngine)
	}

	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	return &Registry{
		specs:         specs,
		order:         order,
		defaultEngine: defaultEngine,
		collector:     cfg.Collector,
		serviceName:   cmp.Or(cfg.ServiceName, "go-precis"),
		getenv:        getenv,
		httpClient:    cfg.HTTPClient,
		backends:      make(map[string]Backend),
	}, nil
}

// DefaultEngine returns the name used when a request names no engine.
func (r *Registry) DefaultEngine() string { return r.defaultEngine }

// Get returns the engine called name, building it on first use. An empty
// name selects the default engine.
func (r *Registry) Get(name string) (Backend, error) {
	name = cmp.Or(strings.TrimSpace(name), r.defaultEngine)

	r.mu.RLock()
	backend, ok := r.backends[name]
	r.mu.RUnlock()
	if ok {
		return backend, nil
	}

	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEngine, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if backend, ok := r.backends[name]; ok {
		return backend, nil
	}

	backend, err := r.build(spec)
	if err != nil {
		return nil, err
	}
	r.backends[name] = backend
	return backend, nil
}

// Register installs a prebuilt backend under its name, replacing any
// cached instance. The name must be configured.
func (r *Registry) Register(backend Backend) error {
	if _, ok := r.specs[backend.Name()]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownEngine, backend.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[backend.Name()] = backend
	return nil
}

func (r *Registry) build(spec EngineSpec) (Backend, error) {
	apiKey := ""
	if spec.APIKeyEnv != "" {
		apiKey = r.getenv(spec.APIKeyEnv)
	}
	if apiKey == "" && !keyOptional[spec.Type] {
		return nil, ports.NewBackendError(spec.Name, spec.Model, "build",
			fmt.Errorf("%w: set %s", ports.ErrAuthenticationFailed, spec.APIKeyEnv))
	}

	middleware := []Middleware{
		TracingMiddleware(r.serviceName),
		MetricsMiddleware(r.collector),
	}
	if spec.MaxFailures > 0 {
		middleware = append(middleware, CircuitBreakerMiddleware(spec.Name, spec.MaxFailures, spec.Cooldown, r.collector))
	}
	if spec.RateLimit > 0 {
		middleware = append(middleware, RateLimitMiddleware(rate.Limit(spec.RateLimit), max(1, spec.Burst)))
	}
	middleware = append(middleware, TimeoutMiddleware(spec.Timeout))

	backend, err := New(spec.Type, Config{
		Name:       spec.Name,
		APIKey:     apiKey,
		Model:      spec.Model,
		BaseURL:    spec.BaseURL,
		HTTPClient: r.httpClient,
		Middleware: middleware,
	})
	if err != nil {
		return nil, ports.NewBackendError(spec.Name, spec.Model, "build", err)
	}
	return backend, nil
}

// Engines lists every configured engine in configuration order.
func (r *Registry) Engines() []EngineInfo {
	infos := make([]EngineInfo, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		info := EngineInfo{
			Name:         name,
			Type:         spec.Type,
			Model:        cmp.Or(spec.Model, DefaultModel(spec.Type)),
			Available:    keyOptional[spec.Type] || (spec.APIKeyEnv != "" && r.getenv(spec.APIKeyEnv) != ""),
			Default:      name == r.defaultEngine,
			CanListModel: spec.Type == "google",
		}

		r.mu.RLock()
		backend, built := r.backends[name]
		r.mu.RUnlock()
		if built {
			if state, ok := CircuitState(backend); ok {
				info.CircuitState = state.String()
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// ListModels lists the models offered by the named engine.
func (r *Registry) ListModels(ctx context.Context, name string) ([]ModelInfo, error) {
	backend, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	lister, ok := AsModelLister(backend)
	if !ok {
		return nil, fmt.Errorf("%s: %w", backend.Name(), ErrListingUnsupported)
	}
	return lister.ListModels(ctx)
}
