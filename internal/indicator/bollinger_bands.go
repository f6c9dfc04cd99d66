package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// Bollinger band output names.
const (
	OutputMiddle = "middle"
	OutputUpper  = "upper"
	OutputLower  = "lower"
)

// BollingerBandsParams configures Bollinger bands.
type BollingerBandsParams struct {
	Period int     `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1,default=20" validate:"required,gte=1"`
	StdDev float64 `yaml:"std_dev" json:"std_dev" jsonschema:"title=Standard deviations,default=2" validate:"gt=0"`
}

// BollingerBands computes a moving average with bands StdDev population
// standard deviations above and below it.
type BollingerBands struct {
	params BollingerBandsParams
	window []float64
}

// NewBollingerBands creates a Bollinger bands kernel.
func NewBollingerBands(params BollingerBandsParams) (*BollingerBands, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	return &BollingerBands{
		params: params,
		window: make([]float64, params.Period),
	}, nil
}

func newBollingerBandsFactory(params map[string]any) (node.Kernel, error) {
	p := BollingerBandsParams{Period: 20, StdDev: 2}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return NewBollingerBands(p)
}

// Descriptor implements node.Kernel.
func (bb *BollingerBands) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     string(types.IndicatorTypeBollingerBands),
		Outputs:  []string{OutputMiddle, OutputUpper, OutputLower},
		Lookback: bb.params.Period,
		Inputs:   1,
	}
}

// Step implements node.Kernel.
func (bb *BollingerBands) Step(sc *node.StepContext) error {
	if sc.Phase() == types.PhaseWarmup {
		return nil
	}

	if !series.Window(sc.Input(0), bb.params.Period, bb.window) {
		for i := 0; i < 3; i++ {
			sc.Set(i, math.NaN())
		}

		return nil
	}

	mid := mean(bb.window)
	width := bb.params.StdDev * stddev(bb.window, mid)

	sc.Set(0, mid)
	sc.Set(1, mid+width)
	sc.Set(2, mid-width)

	return nil
}
