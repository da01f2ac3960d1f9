package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStateError verifies formatting and unwrapping of StateError.
func TestStateError(t *testing.T) {
	err := NewStateError("metric.bleu", "get", ErrKeyNotFound)

	assert.Equal(t, "state error: operation=get, key=metric.bleu, err=key not found", err.Error())
	assert.ErrorIs(t, err, ErrKeyNotFound)

	wrapped := fmt.Errorf("assemble result: %w", err)
	var stateErr *StateError
	require.True(t, errors.As(wrapped, &stateErr))
	assert.Equal(t, "get", stateErr.Operation)
}

// TestValidationError verifies message aggregation and classification.
func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		wantErr  bool
		wantMsg  string
	}{
		{name: "no messages", wantErr: false},
		{
			name:     "single message",
			messages: []string{"text must not be blank"},
			wantErr:  true,
			wantMsg:  "validation error for request: text must not be blank",
		},
		{
			name:     "multiple messages",
			messages: []string{"a", "b"},
			wantErr:  true,
			wantMsg:  "validation errors for request: [a b]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := NewValidationError("request")
			for _, m := range tt.messages {
				verr.AddError(m)
			}
			err := verr.Err()
			if !tt.wantErr {
				assert.NoError(t, err)
				assert.False(t, verr.HasErrors())
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
