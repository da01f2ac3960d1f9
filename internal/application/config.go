// Package application wires metric units, summarization engines and the
// summary cache into the services used by the HTTP surface and the CLIs.
package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahrav/go-precis/infrastructure/cache"
	"github.com/ahrav/go-precis/infrastructure/middleware"
	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/internal/domain"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultAddr           = ":8080"
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 120 * time.Second
	DefaultMaxUploadBytes = 10 << 20
	DefaultLogLevel       = "info"
	DefaultWorkers        = 8
	DefaultEngineTimeout  = 60 * time.Second
)

// Config is the complete go-precis service configuration and the entry
// point for ConfigLoader. API keys never appear here; engines name the
// environment variable that holds them.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`
	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
	// Engines lists the summarization backends that may be selected by name.
	Engines []EngineConfig `yaml:"engines" validate:"required,min=1,dive"`
	// DefaultEngine is used when a request names no engine. When empty the
	// first configured engine is the default.
	DefaultEngine string `yaml:"default_engine,omitempty"`
	// Summary holds request defaults.
	Summary SummaryConfig `yaml:"summary"`
	// Metrics configures the metrics engine.
	Metrics MetricsConfig `yaml:"metrics"`
	// Cache configures the summary cache.
	Cache CacheConfig `yaml:"cache"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"min=0"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"min=1"`
	// AllowedOrigins feeds the CORS middleware. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error fatal"`
}

// EngineConfig describes one named summarization backend.
type EngineConfig struct {
	// Name is how requests select this engine and must be unique.
	Name string `yaml:"name" validate:"required,max=64"`
	// Type picks the provider implementation.
	Type string `yaml:"type" validate:"required,engine_type"`
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	// Timeout bounds each summarize call.
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
	// RateLimit throttles requests to the backend. Zero RPS disables it.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// CircuitBreaker trips after consecutive failures. Zero disables it.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RateLimitConfig is a token bucket.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"min=0"`
	Burst int     `yaml:"burst" validate:"min=0"`
}

// CircuitBreakerConfig configures the per-engine circuit breaker.
type CircuitBreakerConfig struct {
	MaxFailures int           `yaml:"max_failures" validate:"min=0,max=100"`
	Cooldown    time.Duration `yaml:"cooldown" validate:"min=0"`
}

// SummaryConfig holds the defaults applied to summarize requests.
type SummaryConfig struct {
	DefaultStyle    string `yaml:"default_style" validate:"style"`
	DefaultMaxWords int    `yaml:"default_max_words" validate:"min=50,max=500"`
}

// MetricsConfig configures metric evaluation.
type MetricsConfig struct {
	// Workers bounds the batch evaluation pool.
	Workers int `yaml:"workers" validate:"min=1,max=1024"`
	// MaxTextBytes caps each text handed to a metric unit.
	MaxTextBytes int `yaml:"max_text_bytes" validate:"min=1"`
	// Units holds per-unit parameters keyed by unit type, for example
	// readability: {precision: 1}.
	Units map[string]map[string]any `yaml:"units,omitempty" validate:"dive,keys,unit_type,endkeys"`
}

// CacheConfig configures the in-memory summary cache.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl" validate:"min=0"`
	MaxEntries int           `yaml:"max_entries" validate:"min=0"`
}

// DefaultConfig returns a configuration that runs the local transformer
// engine and Gemini.
func DefaultConfig() *Config {
	cfg := &Config{
		Engines: []EngineConfig{
			{Name: "bart", Type: "huggingface", APIKeyEnv: "HF_API_TOKEN"},
			{Name: "gemini", Type: "google", APIKeyEnv: "GEMINI_API_KEY"},
		},
		DefaultEngine: "bart",
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values. It is called before validation.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	for i := range c.Engines {
		e := &c.Engines[i]
		e.Name = strings.TrimSpace(e.Name)
		e.Type = strings.ToLower(strings.TrimSpace(e.Type))
		if e.Model == "" {
			e.Model = summarizer.DefaultModel(e.Type)
		}
		if e.Timeout == 0 {
			e.Timeout = DefaultEngineTimeout
		}
		if e.RateLimit.RPS > 0 && e.RateLimit.Burst == 0 {
			e.RateLimit.Burst = 1
		}
	}
	if c.Summary.DefaultStyle == "" {
		c.Summary.DefaultStyle = string(domain.StyleNeutral)
	}
	if c.Summary.DefaultMaxWords == 0 {
		c.Summary.DefaultMaxWords = domain.DefaultMaxWords
	}
	if c.Metrics.Workers == 0 {
		c.Metrics.Workers = DefaultWorkers
	}
	if c.Metrics.MaxTextBytes == 0 {
		c.Metrics.MaxTextBytes = middleware.DefaultMaxTextBytes
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = cache.DefaultTTL
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = cache.DefaultMaxEntries
	}
}

// checkReferences validates cross-field constraints that struct tags
// cannot express.
func (c *Config) checkReferences() error {
	seen := make(map[string]struct{}, len(c.Engines))
	for _, e := range c.Engines {
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: duplicate engine name %q", domain.ErrInvalidConfiguration, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	if c.DefaultEngine != "" {
		if _, ok := seen[c.DefaultEngine]; !ok {
			return fmt.Errorf("%w: default_engine %q is not configured", domain.ErrInvalidConfiguration, c.DefaultEngine)
		}
	}
	if (c.Summary.DefaultMaxWords-domain.MinMaxWords)%domain.MaxWordsStep != 0 {
		return fmt.Errorf("%w: default_max_words must be a multiple of %d", domain.ErrInvalidConfiguration, domain.MaxWordsStep)
	}
	for unitType, params := range c.Metrics.Units {
		if err := ValidateUnitParameters(unitType, params); err != nil {
			return fmt.Errorf("%w: unit %s parameter validation failed: %w", domain.ErrInvalidConfiguration, unitType, err)
		}
	}
	return nil
}

// EngineSpecs converts the engine section for summarizer.NewRegistry.
func (c *Config) EngineSpecs() []summarizer.EngineSpec {
	specs := make([]summarizer.EngineSpec, 0, len(c.Engines))
	for _, e := range c.Engines {
		specs = append(specs, summarizer.EngineSpec{
			Name:        e.Name,
			Type:        e.Type,
			Model:       e.Model,
			BaseURL:     e.BaseURL,
			APIKeyEnv:   e.APIKeyEnv,
			Timeout:     e.Timeout,
			RateLimit:   e.RateLimit.RPS,
			Burst:       e.RateLimit.Burst,
			MaxFailures: e.CircuitBreaker.MaxFailures,
			Cooldown:    e.CircuitBreaker.Cooldown,
		})
	}
	return specs
}

// Style returns the configured default style.
func (c *Config) Style() domain.Style { return domain.Style(c.Summary.DefaultStyle) }
