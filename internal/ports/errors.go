package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors raised by summarization backends and stores.
var (
	// ErrTokenLimitExceeded indicates the input exceeds the backend's context window.
	ErrTokenLimitExceeded = errors.New("token limit exceeded")

	// ErrRateLimited indicates the request was throttled locally or by the backend.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the backend is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates the backend answered with a malformed payload.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrEmptyResponse indicates the backend answered without any summary text.
	ErrEmptyResponse = errors.New("empty response")

	// ErrAuthenticationFailed indicates missing or rejected credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrCircuitOpen indicates the engine's circuit breaker is rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrCacheCorrupted indicates that a cached value has an unexpected type.
	ErrCacheCorrupted = errors.New("cache corrupted")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// BackendError wraps a failure from a summarization engine with the engine
// and model that produced it.
type BackendError struct {
	Engine    string
	Model     string
	Operation string
	Err       error
}

// Error implements the error interface for BackendError.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error: engine=%s, model=%s, operation=%s, err=%v",
		e.Engine, e.Model, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError creates a new BackendError.
func NewBackendError(engine, model, operation string, err error) *BackendError {
	return &BackendError{Engine: engine, Model: model, Operation: operation, Err: err}
}

// CacheError represents an error from cache operations.
type CacheError struct {
	Key       string
	Operation string
	Err       error
}

// Error implements the error interface for CacheError.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError creates a new CacheError.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{Key: key, Operation: operation, Err: err}
}

// MetricsError represents an error from metrics collection.
type MetricsError struct {
	Metric    string
	Operation string
	Err       error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{Metric: metric, Operation: operation, Err: err}
}

// ConfigError represents a configuration failure tied to a key path.
type ConfigError struct {
	ConfigKey string
	Err       error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{ConfigKey: key, Err: err}
}
