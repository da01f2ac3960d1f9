// Command precis-server serves the summarization dashboard API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-precis/infrastructure/middleware"
	"github.com/ahrav/go-precis/infrastructure/nlp"
	"github.com/ahrav/go-precis/infrastructure/units"
	"github.com/ahrav/go-precis/internal/application"
	"github.com/ahrav/go-precis/internal/log"
	"github.com/ahrav/go-precis/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "Path to the YAML configuration (built-in defaults when empty)")
		addr       = flag.String("addr", "", "Listen address, overrides server.addr")
		logLevel   = flag.String("log-level", "", "Log level, overrides log.level")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	toolkit, err := nlp.Init()
	if err != nil {
		log.Fatalf("Failed to initialize NLP toolkit: %v", err)
	}

	collector, err := middleware.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}
	app, err := application.NewApp(cfg, application.Dependencies{
		NLP:       units.Dependencies{Tokenizer: toolkit, Entities: toolkit},
		Collector: collector,
		Logger:    log.Default,
	})
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}
	defer app.Close()

	srv := server.New(app.Service, app.Engine, app.Registry,
		server.WithLogger(log.Default),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		server.WithSummaryDefaults(cfg.Style(), cfg.Summary.DefaultMaxWords),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("precis-server listening on %s (default engine %s)", cfg.Server.Addr, app.Registry.DefaultEngine())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server stopped: %v", err)
		}
		return
	case <-ctx.Done():
	}

	log.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Graceful shutdown failed: %v", err)
	}
}

func loadConfig(path string) (*application.Config, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return nil, err
	}
	if path == "" {
		cfg := application.DefaultConfig()
		cfg.ApplyDefaults()
		return cfg, loader.Validate(cfg)
	}
	return loader.Load(path)
}
