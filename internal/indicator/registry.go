package indicator

import (
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// Registry maps indicator types to kernel factories. A registry is built
// per graph build; there is no global instance.
type Registry interface {
	Register(kind types.IndicatorType, factory Factory) error
	Create(kind types.IndicatorType, params map[string]any) (node.Kernel, error)
	List() []types.IndicatorType
	Remove(kind types.IndicatorType) error
}

// RegistryV1 is the default Registry.
type RegistryV1 struct {
	factories map[types.IndicatorType]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() Registry {
	return &RegistryV1{
		factories: make(map[types.IndicatorType]Factory),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with every built-in kernel.
func NewDefaultRegistry() Registry {
	r := NewRegistry()

	// built-ins have distinct names, registration cannot fail
	_ = r.Register(types.IndicatorTypeMA, newSMAFactory)
	_ = r.Register(types.IndicatorTypeEMA, newEMAFactory)
	_ = r.Register(types.IndicatorTypeRSI, newRSIFactory)
	_ = r.Register(types.IndicatorTypeATR, newATRFactory)
	_ = r.Register(types.IndicatorTypeBollingerBands, newBollingerBandsFactory)
	_ = r.Register(types.IndicatorTypeCrossOver, newCrossOverFactory)
	_ = r.Register(types.IndicatorTypeDiff, newDiffFactory)

	return r
}

// Register adds a factory.
func (r *RegistryV1) Register(kind types.IndicatorType, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", kind)
	}

	r.factories[kind] = factory

	return nil
}

// Create builds a new kernel. Every call returns a fresh kernel with its own state.
func (r *RegistryV1) Create(kind types.IndicatorType, params map[string]any) (node.Kernel, error) {
	r.mu.RLock()
	factory, exists := r.factories[kind]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", kind)
	}

	kernel, err := factory(params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to create %s", kind)
	}

	return kernel, nil
}

// List returns the registered indicator types, sorted.
func (r *RegistryV1) List() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]types.IndicatorType, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)

	return kinds
}

// Remove deletes a factory.
func (r *RegistryV1) Remove(kind types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", kind)
	}

	delete(r.factories, kind)

	return nil
}
