package application

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/infrastructure/units"
	"github.com/ahrav/go-precis/internal/domain"
)

// MetricUnitTypes lists the unit types the metrics engine builds, in
// execution-independent display order.
var MetricUnitTypes = []string{
	units.TypeCompression,
	units.TypeReadability,
	units.TypeEntityRetention,
	units.TypeReference,
}

// ValidateUnitParameters checks the parameters configured for a metric
// unit type before any unit is built. Parameters go through the same strict
// decode the unit factories use, so unknown keys are rejected.
func ValidateUnitParameters(unitType string, params map[string]any) error {
	if !slices.Contains(MetricUnitTypes, unitType) {
		return fmt.Errorf("unsupported unit type: %s", unitType)
	}
	return units.ValidateParameters(unitType, params)
}

// registerCustomValidators adds the engine_type, style and unit_type tags.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("engine_type", validateEngineType); err != nil {
		return fmt.Errorf("failed to register engine_type validator: %w", err)
	}
	if err := v.RegisterValidation("style", validateStyle); err != nil {
		return fmt.Errorf("failed to register style validator: %w", err)
	}
	if err := v.RegisterValidation("unit_type", validateUnitType); err != nil {
		return fmt.Errorf("failed to register unit_type validator: %w", err)
	}
	return nil
}

// validateEngineType accepts any provider type registered with the
// summarizer package.
func validateEngineType(fl validator.FieldLevel) bool {
	return slices.Contains(summarizer.ProviderTypes(), strings.ToLower(fl.Field().String()))
}

func validateStyle(fl validator.FieldLevel) bool {
	_, err := domain.ParseStyle(fl.Field().String())
	return err == nil
}

func validateUnitType(fl validator.FieldLevel) bool {
	return slices.Contains(MetricUnitTypes, fl.Field().String())
}
