package summarizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-precis/internal/ports"
)

// TestErrorClassifier_ClassifyHTTPError verifies status code categories.
func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		status   int
		wantType ErrorType
		wantIs   error
	}{
		{401, ErrorTypeAuthentication, ports.ErrAuthenticationFailed},
		{403, ErrorTypeAuthentication, ports.ErrAuthenticationFailed},
		{429, ErrorTypeRateLimit, ports.ErrRateLimited},
		{400, ErrorTypeBadRequest, nil},
		{422, ErrorTypeBadRequest, nil},
		{404, ErrorTypeNotFound, nil},
		{504, ErrorTypeTimeout, ports.ErrTimeout},
		{500, ErrorTypeServerError, ports.ErrServiceUnavailable},
		{503, ErrorTypeServerError, ports.ErrServiceUnavailable},
		{302, ErrorTypeUnknown, nil},
	}

	for _, tt := range tests {
		err := ec.ClassifyHTTPError(tt.status, "msg", errors.New("raw"))
		assert.Equal(t, tt.wantType, err.Type, "status %d", tt.status)
		if tt.wantIs != nil {
			assert.ErrorIs(t, err, tt.wantIs, "status %d", tt.status)
		}
		assert.False(t, errors.Is(err, ports.ErrCircuitOpen))
	}
}

// TestErrorClassifier_ClassifyContextError verifies deadline and cancel handling.
func TestErrorClassifier_ClassifyContextError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "google"}

	deadline := ec.ClassifyContextError(context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, deadline.Type)
	assert.ErrorIs(t, deadline, ports.ErrTimeout)
	assert.ErrorIs(t, deadline, context.DeadlineExceeded)

	canceled := ec.ClassifyContextError(context.Canceled)
	assert.ErrorIs(t, canceled, context.Canceled)
}

// TestProviderError_Error verifies the message layout.
func TestProviderError_Error(t *testing.T) {
	err := NewProviderError("anthropic", ErrorTypeRateLimit, 429, "slow down", errors.New("raw"))
	assert.Equal(t, "anthropic error (HTTP 429) [rate_limit]: slow down: raw", err.Error())

	bare := NewProviderError("huggingface", ErrorTypeUnknown, 0, "", nil)
	assert.Equal(t, "huggingface error", bare.Error())
	assert.Empty(t, bare.Unwrap())
}
