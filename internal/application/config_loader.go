package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// ConfigLoader parses, defaults and validates service configuration.
// Parsed configs are cached by the SHA256 of their source bytes, and
// concurrent loads of identical content are collapsed into one.
type ConfigLoader struct {
	validator *validator.Validate

	// cache maps the SHA256 of the source YAML to its validated config.
	// WARNING: cached configs are shared and MUST NOT be mutated.
	cache   map[string]*Config
	cacheMu sync.RWMutex

	sf singleflight.Group
}

// NewConfigLoader creates a loader with the custom validators registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{
		validator: v,
		cache:     make(map[string]*Config),
	}, nil
}

// Load reads the YAML file at path. A missing file wraps
// ports.ErrConfigNotFound.
// WARNING: the returned config is shared with the cache and MUST NOT be mutated.
func (cl *ConfigLoader) Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ports.NewConfigError(cleanPath, fmt.Errorf("%w: %w", ports.ErrConfigNotFound, err))
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.load(data)
}

// LoadFromReader reads all of r and loads it like Load.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.load(data)
}

func (cl *ConfigLoader) load(data []byte) (*Config, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if cfg, ok := cl.getCached(hash); ok {
		return cfg, nil
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if cfg, ok := cl.getCached(hash); ok {
			return cfg, nil
		}

		cfg, err := cl.parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		cfg.ApplyDefaults()

		if err := cl.Validate(cfg); err != nil {
			return nil, err
		}

		cl.setCached(hash, cfg)
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}

// parseYAML decodes strictly so typos in field names fail loudly.
func (cl *ConfigLoader) parseYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: configuration is empty", domain.ErrInvalidConfiguration)
		}
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &cfg, nil
}

// Validate runs struct-tag validation followed by the cross-field checks.
// Errors wrap domain.ErrInvalidConfiguration.
func (cl *ConfigLoader) Validate(cfg *Config) error {
	if err := cl.validator.Struct(cfg); err != nil {
		return fmt.Errorf("%w: struct validation failed: %w", domain.ErrInvalidConfiguration, err)
	}
	if err := cfg.checkReferences(); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}
	return nil
}

func (cl *ConfigLoader) getCached(hash string) (*Config, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	cfg, ok := cl.cache[hash]
	return cfg, ok
}

func (cl *ConfigLoader) setCached(hash string, cfg *Config) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache[hash] = cfg
}

// ClearCache drops every cached config.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache = make(map[string]*Config)
}
