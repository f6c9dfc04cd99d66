package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// EMAParams configures an exponential moving average.
type EMAParams struct {
	Period int `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1,default=20" validate:"required,gte=1"`
}

// EMA is the exponential moving average of one input, seeded with the
// simple average of its first full window.
type EMA struct {
	params EMAParams
	alpha  float64
	window []float64
}

// NewEMA creates an exponential moving average kernel.
func NewEMA(params EMAParams) (*EMA, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	return &EMA{
		params: params,
		alpha:  2.0 / float64(params.Period+1),
		window: make([]float64, params.Period),
	}, nil
}

func newEMAFactory(params map[string]any) (node.Kernel, error) {
	p := EMAParams{Period: 20}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return NewEMA(p)
}

// Descriptor implements node.Kernel.
func (e *EMA) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     string(types.IndicatorTypeEMA),
		Outputs:  []string{OutputValue},
		Lookback: e.params.Period,
		Inputs:   1,
	}
}

// Step implements node.Kernel.
func (e *EMA) Step(sc *node.StepContext) error {
	switch sc.Phase() {
	case types.PhaseWarmup:
		return nil
	case types.PhaseTransition:
		sc.Set(0, e.seed(sc))
	case types.PhaseSteady:
		prev := sc.Output(0).Get(-1)
		x := sc.Input(0).Get(0)

		if math.IsNaN(prev) {
			// a faulted or undefined previous bar restarts from the window
			sc.Set(0, e.seed(sc))

			return nil
		}

		sc.Set(0, e.alpha*x+(1-e.alpha)*prev)
	}

	return nil
}

func (e *EMA) seed(sc *node.StepContext) float64 {
	if !series.Window(sc.Input(0), e.params.Period, e.window) {
		return math.NaN()
	}

	return mean(e.window)
}
