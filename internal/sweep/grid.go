// Package sweep runs one fully independent graph per parameter set across a
// bounded pool of workers.
package sweep

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// Params maps "target.param" keys to values, for example
// {"cross.fast": 5, "cross.slow": 20}.
type Params map[string]any

// Split separates a key into its target and parameter name.
func Split(key string) (string, string, error) {
	target, param, ok := strings.Cut(key, ".")
	if !ok || target == "" || param == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "sweep key %q must look like target.param", key)
	}

	return target, param, nil
}

// For returns the parameters addressed to target, keyed by parameter name.
func (p Params) For(target string) map[string]any {
	out := make(map[string]any)

	for key, v := range p {
		t, param, err := Split(key)
		if err != nil || t != target {
			continue
		}

		out[param] = v
	}

	return out
}

// String formats the parameters in key order.
func (p Params) String() string {
	keys := slices.Sorted(maps.Keys(p))
	parts := make([]string, len(keys))

	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}

	return strings.Join(parts, ",")
}

// Grid lists candidate values per key.
type Grid map[string][]any

// Validate checks every key and that no key has an empty value list.
func (g Grid) Validate() error {
	for key, values := range g {
		if _, _, err := Split(key); err != nil {
			return err
		}

		if len(values) == 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "sweep key %q has no values", key)
		}
	}

	return nil
}

// Expand returns the cartesian product of the grid. Keys vary in sorted
// order with the last key varying fastest, so the order is stable.
func (g Grid) Expand() []Params {
	keys := slices.Sorted(maps.Keys(g))
	if len(keys) == 0 {
		return []Params{{}}
	}

	total := 1
	for _, k := range keys {
		total *= len(g[k])
	}

	out := make([]Params, 0, total)

	for i := 0; i < total; i++ {
		p := make(Params, len(keys))
		rest := i

		for j := len(keys) - 1; j >= 0; j-- {
			values := g[keys[j]]
			p[keys[j]] = values[rest%len(values)]
			rest /= len(values)
		}

		out = append(out, p)
	}

	return out
}
