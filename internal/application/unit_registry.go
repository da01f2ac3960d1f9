package application

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ahrav/go-precis/infrastructure/units"
	"github.com/ahrav/go-precis/internal/ports"
)

// UnitFactory builds a metric unit from its identifier and parameters.
type UnitFactory func(id string, config map[string]any, deps units.Dependencies) (ports.Unit, error)

// UnitRegistry maps unit types to factories and injects the NLP
// dependencies units need. It is safe for concurrent use.
type UnitRegistry struct {
	mu        sync.RWMutex
	factories map[string]UnitFactory
	deps      units.Dependencies
}

// NewUnitRegistry creates a registry with the four metric unit types
// registered. deps is handed to every factory.
func NewUnitRegistry(deps units.Dependencies) *UnitRegistry {
	r := &UnitRegistry{
		factories: make(map[string]UnitFactory),
		deps:      deps,
	}
	r.factories[units.TypeCompression] = units.NewCompressionFromConfig
	r.factories[units.TypeReadability] = units.NewReadabilityFromConfig
	r.factories[units.TypeEntityRetention] = units.NewEntityRetentionFromConfig
	r.factories[units.TypeReference] = units.NewReferenceFromConfig
	return r
}

// CreateUnit builds a unit of unitType named id.
func (r *UnitRegistry) CreateUnit(unitType, id string, config map[string]any) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	deps := r.deps
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported unit type: %s", unitType)
	}
	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}
	if config == nil {
		config = make(map[string]any)
	}

	unit, err := factory(id, config, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}
	return unit, nil
}

// RegisterUnitFactory adds or replaces the factory for unitType.
func (r *UnitRegistry) RegisterUnitFactory(unitType string, factory UnitFactory) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[unitType] = factory
	return nil
}

// SupportedTypes returns the registered unit types, sorted.
func (r *UnitRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
