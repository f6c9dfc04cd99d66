package strategy

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/internal/indicator"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/shopspring/decimal"
)

var decimalOne = decimal.NewFromInt(1)

// SMACrossParams configures the moving average crossover strategy.
type SMACrossParams struct {
	Symbol string          `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol" validate:"required"`
	Fast   int             `yaml:"fast" json:"fast" jsonschema:"title=Fast period,minimum=1,default=10" validate:"required,gte=1"`
	Slow   int             `yaml:"slow" json:"slow" jsonschema:"title=Slow period,minimum=2,default=30" validate:"required,gtfield=Fast"`
	Size   decimal.Decimal `yaml:"size" json:"size" jsonschema:"title=Order size,type=string,default=1"`
}

// SMACross goes long when the fast average crosses above the slow one and
// flat when it crosses back below. The signal line holds the position:
// 1 long, 0 flat.
type SMACross struct {
	params SMACrossParams
}

// NewSMACross creates the strategy.
func NewSMACross(params SMACrossParams) (*SMACross, error) {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		return nil, fmt.Errorf("invalid sma_cross params: %w", err)
	}

	if !params.Size.IsPositive() {
		return nil, fmt.Errorf("invalid sma_cross params: size must be positive, got %s", params.Size)
	}

	return &SMACross{params: params}, nil
}

// Descriptor implements Strategy.
func (s *SMACross) Descriptor() Descriptor {
	return Descriptor{
		Name:     "sma_cross",
		Inputs:   []string{"fast", "slow"},
		Lookback: 2,
		Symbol:   s.params.Symbol,
	}
}

// OnBar implements Strategy.
func (s *SMACross) OnBar(ctx *Context) error {
	position := ctx.PreviousSignal(-1)
	if math.IsNaN(position) {
		position = 0
	}

	// the Transition bar only seeds the signal
	if ctx.Phase() != types.PhaseSteady {
		ctx.Signal(position)

		return nil
	}

	fast0, fast1 := ctx.Value("fast", 0), ctx.Value("fast", -1)
	slow0, slow1 := ctx.Value("slow", 0), ctx.Value("slow", -1)

	switch {
	case position == 0 && fast1 <= slow1 && fast0 > slow0:
		if err := ctx.Buy(s.params.Size, fmt.Sprintf("fast %.4f crossed above slow %.4f", fast0, slow0)); err != nil {
			return err
		}

		position = 1
	case position == 1 && fast1 >= slow1 && fast0 < slow0:
		if err := ctx.Sell(s.params.Size, fmt.Sprintf("fast %.4f crossed below slow %.4f", fast0, slow0)); err != nil {
			return err
		}

		position = 0
	}

	ctx.Signal(position)

	return nil
}

// SMACrossNodes names the nodes AddSMACross declares.
type SMACrossNodes struct {
	Fast     string
	Slow     string
	Strategy string
}

// AddSMACross declares the two averages over src and the strategy node
// reading them.
func AddSMACross(b *graph.Builder, name string, src graph.Ref, params SMACrossParams) (SMACrossNodes, error) {
	nodes := SMACrossNodes{
		Fast:     name + "_fast",
		Slow:     name + "_slow",
		Strategy: name,
	}

	s, err := NewSMACross(params)
	if err != nil {
		return nodes, err
	}

	kernel, err := NewKernel(s)
	if err != nil {
		return nodes, err
	}

	fast, err := indicator.NewSMA(indicator.SMAParams{Period: params.Fast})
	if err != nil {
		return nodes, err
	}

	slow, err := indicator.NewSMA(indicator.SMAParams{Period: params.Slow})
	if err != nil {
		return nodes, err
	}

	b.AddNode(nodes.Fast, fast, []graph.Ref{src}).
		AddNode(nodes.Slow, slow, []graph.Ref{src}).
		AddNode(nodes.Strategy, kernel, []graph.Ref{graph.Value(nodes.Fast), graph.Value(nodes.Slow)})

	return nodes, nil
}
