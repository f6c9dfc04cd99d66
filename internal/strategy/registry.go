package strategy

import (
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Declarer adds a strategy and any helper nodes it needs to a graph builder.
// It returns the name of the strategy node.
type Declarer func(b *graph.Builder, name string, src graph.Ref, params map[string]any) (string, error)

// Registry maps strategy kinds to declarers. It is built per run.
type Registry struct {
	mu        sync.RWMutex
	declarers map[string]Declarer
}

// NewRegistry creates a registry with the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{
		mu:        sync.RWMutex{},
		declarers: make(map[string]Declarer),
	}

	r.declarers["sma_cross"] = declareSMACross

	return r
}

// Register adds a declarer.
func (r *Registry) Register(kind string, d Declarer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.declarers[kind]; ok {
		return errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s already registered", kind)
	}

	r.declarers[kind] = d

	return nil
}

// Declare adds the strategy kind to b.
func (r *Registry) Declare(b *graph.Builder, kind string, name string, src graph.Ref, params map[string]any) (string, error) {
	r.mu.RLock()
	d, ok := r.declarers[kind]
	r.mu.RUnlock()

	if !ok {
		return "", errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s not found", kind)
	}

	return d(b, name, src, params)
}

// List returns the registered kinds, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.declarers))
	for kind := range r.declarers {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)

	return kinds
}

func declareSMACross(b *graph.Builder, name string, src graph.Ref, params map[string]any) (string, error) {
	p := SMACrossParams{Symbol: src.Feed, Fast: 10, Slow: 30, Size: decimalOne}

	if len(params) > 0 {
		raw, err := yaml.Marshal(params)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to encode params", err)
		}

		if err := yaml.Unmarshal(raw, &p); err != nil {
			return "", errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode params", err)
		}
	}

	nodes, err := AddSMACross(b, name, src, p)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid sma_cross", err)
	}

	return nodes.Strategy, nil
}
