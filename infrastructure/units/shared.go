// Package units provides the metric units that implement ports.Unit for the
// go-precis metrics engine: compression, readability, entity retention and
// reference scoring.
package units

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-precis/internal/ports"
)

// Unit type names used in configuration and span attributes.
const (
	TypeCompression     = "compression"
	TypeReadability     = "readability"
	TypeEntityRetention = "entity_retention"
	TypeReference       = "reference"
)

// Common errors returned by metric units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrMissingDependency is returned when a unit is built without a required NLP component.
	ErrMissingDependency = errors.New("unit dependency is nil")
)

// Dependencies carries the NLP components that units need. Units that do
// not tokenize ignore it.
type Dependencies struct {
	Tokenizer ports.Tokenizer
	Entities  ports.EntityExtractor
}

// Package-level validator instance for configuration validation. Field
// errors carry the yaml key so they match what operators wrote.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// ParametersNode converts a loosely typed parameter map into the YAML node
// accepted by UnmarshalParameters. An empty map yields a zero node.
func ParametersNode(params map[string]any) (yaml.Node, error) {
	var node yaml.Node
	if len(params) == 0 {
		return node, nil
	}
	if err := node.Encode(params); err != nil {
		return yaml.Node{}, fmt.Errorf("encode parameters: %w", err)
	}
	return node, nil
}

// decodeParameters decodes params into out, which must already hold the
// defaults, rejecting unknown keys, then validates the result.
func decodeParameters(params yaml.Node, out any) error {
	if params.Kind != 0 {
		data, err := yaml.Marshal(&params)
		if err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	return nil
}

// applyParameters decodes a loosely typed parameter map through the unit's
// UnmarshalParameters.
func applyParameters(u interface{ UnmarshalParameters(yaml.Node) error }, params map[string]any) error {
	node, err := ParametersNode(params)
	if err != nil {
		return err
	}
	return u.UnmarshalParameters(node)
}

// ValidateParameters checks params against the config of unitType without
// building a unit.
func ValidateParameters(unitType string, params map[string]any) error {
	node, err := ParametersNode(params)
	if err != nil {
		return err
	}
	switch unitType {
	case TypeCompression:
		cfg := DefaultCompressionConfig()
		return decodeParameters(node, &cfg)
	case TypeReadability:
		cfg := DefaultReadabilityConfig()
		return decodeParameters(node, &cfg)
	case TypeEntityRetention:
		cfg := DefaultEntityRetentionConfig()
		return decodeParameters(node, &cfg)
	case TypeReference:
		cfg := DefaultReferenceConfig()
		return decodeParameters(node, &cfg)
	default:
		return fmt.Errorf("unsupported unit type: %s", unitType)
	}
}

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
