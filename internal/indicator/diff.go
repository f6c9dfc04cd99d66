package indicator

import (
	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// DiffParams has no fields.
type DiffParams struct{}

// Diff outputs the first input minus the second.
type Diff struct{}

// NewDiff creates a difference kernel.
func NewDiff(DiffParams) (*Diff, error) {
	return &Diff{}, nil
}

func newDiffFactory(params map[string]any) (node.Kernel, error) {
	p := DiffParams{}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return NewDiff(p)
}

// Descriptor implements node.Kernel.
func (d *Diff) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     string(types.IndicatorTypeDiff),
		Outputs:  []string{OutputValue},
		Lookback: 1,
		Inputs:   2,
	}
}

// Step implements node.Kernel.
func (d *Diff) Step(sc *node.StepContext) error {
	if sc.Phase() == types.PhaseWarmup {
		return nil
	}

	sc.Set(0, sc.Input(0).Get(0)-sc.Input(1).Get(0))

	return nil
}
