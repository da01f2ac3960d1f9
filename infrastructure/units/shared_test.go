package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateParameters verifies strict decoding and validation per unit type.
func TestValidateParameters(t *testing.T) {
	tests := []struct {
		name     string
		unitType string
		params   map[string]any
		wantErr  string
	}{
		{name: "no params", unitType: TypeCompression},
		{name: "readability target", unitType: TypeReadability, params: map[string]any{"target": "original", "precision": 1}},
		{name: "entity precision", unitType: TypeEntityRetention, params: map[string]any{"precision": 6}},
		{name: "reference all", unitType: TypeReference, params: map[string]any{"use_stemmer": false, "max_order": 1, "epsilon": 1}},
		{name: "unknown key", unitType: TypeEntityRetention, params: map[string]any{"target": "summary"}, wantErr: "field target not found"},
		{name: "wrong type", unitType: TypeReference, params: map[string]any{"use_stemmer": "yes please"}, wantErr: "failed to decode parameters"},
		{name: "out of range names yaml key", unitType: TypeReference, params: map[string]any{"max_order": 7}, wantErr: "max_order"},
		{name: "bad target", unitType: TypeReadability, params: map[string]any{"target": "both"}, wantErr: "target"},
		{name: "unknown type", unitType: "sentiment", wantErr: "unsupported unit type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParameters(tt.unitType, tt.params)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestParametersNode verifies empty maps produce a zero node.
func TestParametersNode(t *testing.T) {
	node, err := ParametersNode(nil)
	require.NoError(t, err)
	assert.Zero(t, node.Kind)

	node, err = ParametersNode(map[string]any{"precision": 1})
	require.NoError(t, err)
	assert.NotZero(t, node.Kind)
}
