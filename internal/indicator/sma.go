package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// SMAParams configures a simple moving average.
type SMAParams struct {
	Period int `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1,default=20" validate:"required,gte=1"`
}

// SMA is the simple moving average of one input.
type SMA struct {
	params SMAParams
	window []float64
}

// NewSMA creates a simple moving average kernel.
func NewSMA(params SMAParams) (*SMA, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	return &SMA{
		params: params,
		window: make([]float64, params.Period),
	}, nil
}

func newSMAFactory(params map[string]any) (node.Kernel, error) {
	p := SMAParams{Period: 20}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return NewSMA(p)
}

// Descriptor implements node.Kernel.
func (s *SMA) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     string(types.IndicatorTypeMA),
		Outputs:  []string{OutputValue},
		Lookback: s.params.Period,
		Inputs:   1,
	}
}

// Step implements node.Kernel.
func (s *SMA) Step(sc *node.StepContext) error {
	if sc.Phase() == types.PhaseWarmup {
		return nil
	}

	if !series.Window(sc.Input(0), s.params.Period, s.window) {
		sc.Set(0, math.NaN())

		return nil
	}

	sc.Set(0, mean(s.window))

	return nil
}
