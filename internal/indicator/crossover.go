package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// CrossOverParams has no fields; it exists so every kernel is built the same way.
type CrossOverParams struct{}

// CrossOver compares two inputs: 1 on the bar where the first crosses above
// the second, -1 where it crosses below, 0 otherwise.
type CrossOver struct{}

// NewCrossOver creates a crossover kernel.
func NewCrossOver(CrossOverParams) (*CrossOver, error) {
	return &CrossOver{}, nil
}

func newCrossOverFactory(params map[string]any) (node.Kernel, error) {
	p := CrossOverParams{}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return NewCrossOver(p)
}

// Descriptor implements node.Kernel.
func (c *CrossOver) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     string(types.IndicatorTypeCrossOver),
		Outputs:  []string{OutputValue},
		Lookback: 2,
		Inputs:   2,
	}
}

// Step implements node.Kernel.
func (c *CrossOver) Step(sc *node.StepContext) error {
	if sc.Phase() == types.PhaseWarmup {
		return nil
	}

	a0, a1 := sc.Input(0).Get(0), sc.Input(0).Get(-1)
	b0, b1 := sc.Input(1).Get(0), sc.Input(1).Get(-1)

	if anyNaN(a0, a1, b0, b1) {
		sc.Set(0, math.NaN())

		return nil
	}

	switch {
	case a1 <= b1 && a0 > b0:
		sc.Set(0, 1)
	case a1 >= b1 && a0 < b0:
		sc.Set(0, -1)
	default:
		sc.Set(0, 0)
	}

	return nil
}
