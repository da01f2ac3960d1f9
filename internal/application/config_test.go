package application

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

const fullConfigYAML = `
server:
  addr: ":9090"
  read_timeout: 5s
  write_timeout: 90s
  max_upload_bytes: 2048
  allowed_origins: ["http://localhost:3000"]
log:
  level: debug
engines:
  - name: bart
    type: huggingface
  - name: gemini
    type: google
    api_key_env: GEMINI_API_KEY
    timeout: 20s
    rate_limit:
      rps: 2
    circuit_breaker:
      max_failures: 3
      cooldown: 30s
default_engine: gemini
summary:
  default_style: concise
  default_max_words: 200
metrics:
  workers: 4
  max_text_bytes: 4096
  units:
    readability:
      precision: 1
    reference:
      use_stemmer: false
cache:
  ttl: 10m
  max_entries: 16
`

func newTestLoader(t *testing.T) *ConfigLoader {
	t.Helper()
	loader, err := NewConfigLoader()
	require.NoError(t, err)
	return loader
}

// TestConfigLoader_LoadFromReader verifies parsing, defaults and validation failures.
func TestConfigLoader_LoadFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		verify  func(t *testing.T, cfg *Config)
	}{
		{
			name: "full config",
			yaml: fullConfigYAML,
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":9090", cfg.Server.Addr)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, int64(2048), cfg.Server.MaxUploadBytes)
				assert.Equal(t, "debug", cfg.Log.Level)
				require.Len(t, cfg.Engines, 2)
				assert.Equal(t, "sshleifer/distilbart-cnn-12-6", cfg.Engines[0].Model)
				assert.Equal(t, DefaultEngineTimeout, cfg.Engines[0].Timeout)
				assert.Equal(t, "gemini-2.5-flash", cfg.Engines[1].Model)
				assert.Equal(t, 20*time.Second, cfg.Engines[1].Timeout)
				assert.Equal(t, 1, cfg.Engines[1].RateLimit.Burst)
				assert.Equal(t, domain.StyleConcise, cfg.Style())
				assert.Equal(t, 200, cfg.Summary.DefaultMaxWords)
				assert.Equal(t, 1, cfg.Metrics.Units["readability"]["precision"])
				assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
			},
		},
		{
			name: "minimal config gets defaults",
			yaml: "engines:\n  - name: bart\n    type: huggingface\n",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultAddr, cfg.Server.Addr)
				assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
				assert.Equal(t, domain.StyleNeutral, cfg.Style())
				assert.Equal(t, domain.DefaultMaxWords, cfg.Summary.DefaultMaxWords)
				assert.Equal(t, DefaultWorkers, cfg.Metrics.Workers)
				assert.Equal(t, DefaultMaxUploadBytes, int(cfg.Server.MaxUploadBytes))
			},
		},
		{
			name:    "unknown field",
			yaml:    "engines:\n  - name: bart\n    type: huggingface\n    modle: x\n",
			wantErr: "field modle not found",
		},
		{
			name:    "no engines",
			yaml:    "log:\n  level: info\n",
			wantErr: "Engines",
		},
		{
			name:    "unknown engine type",
			yaml:    "engines:\n  - name: x\n    type: cohere\n",
			wantErr: "engine_type",
		},
		{
			name:    "unknown default style",
			yaml:    "engines:\n  - name: x\n    type: huggingface\nsummary:\n  default_style: poetic\n",
			wantErr: "style",
		},
		{
			name:    "duplicate engine",
			yaml:    "engines:\n  - name: x\n    type: huggingface\n  - name: x\n    type: google\n",
			wantErr: "duplicate engine",
		},
		{
			name:    "missing default engine",
			yaml:    "engines:\n  - name: x\n    type: huggingface\ndefault_engine: y\n",
			wantErr: "is not configured",
		},
		{
			name:    "max words off step",
			yaml:    "engines:\n  - name: x\n    type: huggingface\nsummary:\n  default_max_words: 155\n",
			wantErr: "multiple of 10",
		},
		{
			name:    "unknown unit type",
			yaml:    "engines:\n  - name: x\n    type: huggingface\nmetrics:\n  units:\n    sentiment: {}\n",
			wantErr: "unit_type",
		},
		{
			name:    "bad unit parameter",
			yaml:    "engines:\n  - name: x\n    type: huggingface\nmetrics:\n  units:\n    reference:\n      max_order: 7\n",
			wantErr: "max_order",
		},
		{
			name:    "empty document",
			yaml:    "",
			wantErr: "configuration is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newTestLoader(t).LoadFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

// TestConfigLoader_ValidationErrorsWrapSentinel verifies callers can match invalid configs.
func TestConfigLoader_ValidationErrorsWrapSentinel(t *testing.T) {
	_, err := newTestLoader(t).LoadFromReader(strings.NewReader("engines:\n  - name: x\n    type: nope\n"))
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

// TestConfigLoader_Caching verifies identical content returns the cached instance.
func TestConfigLoader_Caching(t *testing.T) {
	loader := newTestLoader(t)

	first, err := loader.LoadFromReader(strings.NewReader(fullConfigYAML))
	require.NoError(t, err)
	second, err := loader.LoadFromReader(strings.NewReader(fullConfigYAML))
	require.NoError(t, err)
	assert.Same(t, first, second)

	loader.ClearCache()
	third, err := loader.LoadFromReader(strings.NewReader(fullConfigYAML))
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first, third)
}

// TestConfigLoader_ConcurrentLoads verifies concurrent loads share one result.
func TestConfigLoader_ConcurrentLoads(t *testing.T) {
	loader := newTestLoader(t)

	const n = 16
	results := make([]*Config, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := loader.LoadFromReader(strings.NewReader(fullConfigYAML))
			assert.NoError(t, err)
			results[i] = cfg
		}()
	}
	wg.Wait()

	for _, cfg := range results[1:] {
		assert.Same(t, results[0], cfg)
	}
}

// TestConfigLoader_Load verifies file loading and the not-found error.
func TestConfigLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "precis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfigYAML), 0o600))

	loader := newTestLoader(t)
	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.DefaultEngine)

	_, err = loader.Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, ports.ErrConfigNotFound)
	var cerr *ports.ConfigError
	require.ErrorAs(t, err, &cerr)
}

// TestConfigLoader_ShippedConfig keeps configs/precis.yaml loadable.
func TestConfigLoader_ShippedConfig(t *testing.T) {
	cfg, err := newTestLoader(t).Load(filepath.Join("..", "..", "configs", "precis.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "bart", cfg.DefaultEngine)
	assert.Len(t, cfg.Engines, 2)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 0.1, cfg.Metrics.Units["reference"]["epsilon"])
}

// TestConfig_EngineSpecs verifies the conversion for the engine registry.
func TestConfig_EngineSpecs(t *testing.T) {
	cfg, err := newTestLoader(t).LoadFromReader(strings.NewReader(fullConfigYAML))
	require.NoError(t, err)

	specs := cfg.EngineSpecs()
	require.Len(t, specs, 2)
	gemini := specs[1]
	assert.Equal(t, "gemini", gemini.Name)
	assert.Equal(t, "google", gemini.Type)
	assert.Equal(t, "GEMINI_API_KEY", gemini.APIKeyEnv)
	assert.Equal(t, 2.0, gemini.RateLimit)
	assert.Equal(t, 1, gemini.Burst)
	assert.Equal(t, 3, gemini.MaxFailures)
	assert.Equal(t, 30*time.Second, gemini.Cooldown)
}

// TestDefaultConfig verifies the built-in configuration validates.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, newTestLoader(t).Validate(cfg))
	assert.Equal(t, "bart", cfg.DefaultEngine)
}

// TestValidateUnitParameters verifies the per-type parameter checks.
func TestValidateUnitParameters(t *testing.T) {
	tests := []struct {
		name     string
		unitType string
		params   map[string]any
		wantErr  bool
	}{
		{name: "empty", unitType: "compression", params: nil},
		{name: "precision", unitType: "entity_retention", params: map[string]any{"precision": 3}},
		{name: "precision too high", unitType: "compression", params: map[string]any{"precision": 9}, wantErr: true},
		{name: "precision not int", unitType: "compression", params: map[string]any{"precision": "two"}, wantErr: true},
		{name: "target", unitType: "readability", params: map[string]any{"target": "original"}},
		{name: "bad target", unitType: "readability", params: map[string]any{"target": "both"}, wantErr: true},
		{name: "reference all", unitType: "reference", params: map[string]any{"use_stemmer": true, "max_order": 2, "epsilon": 0.5}},
		{name: "integer epsilon", unitType: "reference", params: map[string]any{"epsilon": 1}},
		{name: "zero epsilon", unitType: "reference", params: map[string]any{"epsilon": 0.0}, wantErr: true},
		{name: "unknown key", unitType: "reference", params: map[string]any{"smoothing": 1}, wantErr: true},
		{name: "unknown type", unitType: "sentiment", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUnitParameters(tt.unitType, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
