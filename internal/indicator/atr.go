package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// ATRParams configures an average true range.
type ATRParams struct {
	Period int `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1,default=14" validate:"required,gte=1"`
}

// ATR is Wilder's average true range. Inputs are high, low and close, in
// that order. The first true range of a series has no previous close and
// falls back to high minus low.
type ATR struct {
	params ATRParams
}

// NewATR creates an average true range kernel.
func NewATR(params ATRParams) (*ATR, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	return &ATR{params: params}, nil
}

func newATRFactory(params map[string]any) (node.Kernel, error) {
	p := ATRParams{Period: 14}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return NewATR(p)
}

// Descriptor implements node.Kernel.
func (a *ATR) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     string(types.IndicatorTypeATR),
		Outputs:  []string{OutputValue},
		Lookback: a.params.Period,
		Inputs:   3,
	}
}

// Step implements node.Kernel.
func (a *ATR) Step(sc *node.StepContext) error {
	if sc.Phase() == types.PhaseWarmup {
		return nil
	}

	prev := sc.Output(0).Get(-1)
	if sc.Phase() == types.PhaseTransition || math.IsNaN(prev) {
		sc.Set(0, a.seed(sc))

		return nil
	}

	period := float64(a.params.Period)
	sc.Set(0, (prev*(period-1)+trueRange(sc, 0))/period)

	return nil
}

func (a *ATR) seed(sc *node.StepContext) float64 {
	total := 0.0
	for ago := 0; ago > -a.params.Period; ago-- {
		total += trueRange(sc, ago)
	}

	return total / float64(a.params.Period)
}

func trueRange(sc *node.StepContext, ago int) float64 {
	high := sc.Input(0).Get(ago)
	low := sc.Input(1).Get(ago)
	prevClose := sc.Input(2).Get(ago - 1)

	if math.IsNaN(prevClose) {
		return high - low
	}

	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}
