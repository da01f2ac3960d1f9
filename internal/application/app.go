package application

import (
	"fmt"

	"github.com/ahrav/go-precis/infrastructure/cache"
	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/infrastructure/units"
	"github.com/ahrav/go-precis/internal/log"
	"github.com/ahrav/go-precis/internal/ports"
)

// App holds the wired components of a running service.
type App struct {
	Config   *Config
	Engine   *MetricsEngine
	Registry *summarizer.Registry
	Service  *SummaryService
	Cache    *cache.MemoryStore
}

// Dependencies are the process-wide components App is built from.
type Dependencies struct {
	NLP       units.Dependencies
	Collector ports.MetricsCollector
	Logger    log.Logger
	// Getenv resolves API key variables; nil uses os.Getenv.
	Getenv func(string) string
}

// NewApp builds the metrics engine, engine registry, summary cache and
// service described by cfg. Close releases the engine's worker pool.
func NewApp(cfg *Config, deps Dependencies) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default
	}

	engine, err := NewMetricsEngine(NewUnitRegistry(deps.NLP), EngineOptions{
		Workers:      cfg.Metrics.Workers,
		MaxTextBytes: cfg.Metrics.MaxTextBytes,
		UnitParams:   cfg.Metrics.Units,
		Collector:    deps.Collector,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build metrics engine: %w", err)
	}

	registry, err := summarizer.NewRegistry(summarizer.RegistryConfig{
		Engines:       cfg.EngineSpecs(),
		DefaultEngine: cfg.DefaultEngine,
		Collector:     deps.Collector,
		Getenv:        deps.Getenv,
	})
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("build engine registry: %w", err)
	}

	store := cache.NewMemoryStore(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	service, err := NewSummaryService(registry, engine, ServiceOptions{
		DefaultStyle:    cfg.Style(),
		DefaultMaxWords: cfg.Summary.DefaultMaxWords,
		Cache:           store,
		CacheTTL:        cfg.Cache.TTL,
		Collector:       deps.Collector,
		Logger:          logger,
	})
	if err != nil {
		engine.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Engine:   engine,
		Registry: registry,
		Service:  service,
		Cache:    store,
	}, nil
}

// Close releases background resources.
func (a *App) Close() {
	a.Engine.Close()
}
