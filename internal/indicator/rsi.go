package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// RSIParams configures a relative strength index.
type RSIParams struct {
	Period int `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1,default=14" validate:"required,gte=1"`
}

// RSI is Wilder's relative strength index. It needs Period price changes,
// so its lookback is Period+1 bars.
type RSI struct {
	params  RSIParams
	window  []float64
	avgGain float64
	avgLoss float64
}

// NewRSI creates a relative strength index kernel.
func NewRSI(params RSIParams) (*RSI, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	return &RSI{
		params:  params,
		window:  make([]float64, params.Period+1),
		avgGain: math.NaN(),
		avgLoss: math.NaN(),
	}, nil
}

func newRSIFactory(params map[string]any) (node.Kernel, error) {
	p := RSIParams{Period: 14}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return NewRSI(p)
}

// Descriptor implements node.Kernel.
func (r *RSI) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     string(types.IndicatorTypeRSI),
		Outputs:  []string{OutputValue},
		Lookback: r.params.Period + 1,
		Inputs:   1,
	}
}

// Reset implements node.Resetter.
func (r *RSI) Reset() {
	r.avgGain = math.NaN()
	r.avgLoss = math.NaN()
}

// Step implements node.Kernel.
func (r *RSI) Step(sc *node.StepContext) error {
	if sc.Phase() == types.PhaseWarmup {
		return nil
	}

	if sc.Phase() == types.PhaseTransition || anyNaN(r.avgGain, r.avgLoss) {
		r.seed(sc)
		sc.Set(0, r.value())

		return nil
	}

	change := sc.Input(0).Get(0) - sc.Input(0).Get(-1)
	if math.IsNaN(change) {
		r.Reset()

		return nil
	}

	period := float64(r.params.Period)
	r.avgGain = (r.avgGain*(period-1) + math.Max(change, 0)) / period
	r.avgLoss = (r.avgLoss*(period-1) + math.Max(-change, 0)) / period
	sc.Set(0, r.value())

	return nil
}

func (r *RSI) seed(sc *node.StepContext) {
	if !series.Window(sc.Input(0), r.params.Period+1, r.window) {
		r.Reset()

		return
	}

	gain, loss := 0.0, 0.0

	for i := 1; i < len(r.window); i++ {
		change := r.window[i] - r.window[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}

	r.avgGain = gain / float64(r.params.Period)
	r.avgLoss = loss / float64(r.params.Period)
}

func (r *RSI) value() float64 {
	if anyNaN(r.avgGain, r.avgLoss) {
		return math.NaN()
	}

	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}

		return 100
	}

	return 100 - 100/(1+r.avgGain/r.avgLoss)
}
