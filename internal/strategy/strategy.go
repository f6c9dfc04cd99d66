// Package strategy turns trading strategies into graph nodes. A strategy
// reads named inputs, writes a signal line and emits order intents once the
// node has left its warm-up.
package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/shopspring/decimal"
)

// OutputSignal is the single output of a strategy node.
const OutputSignal = "signal"

// Descriptor describes a strategy's bindings.
type Descriptor struct {
	// Name is the strategy kind, for example "sma_cross".
	Name string
	// Inputs names the inputs in binding order.
	Inputs []string
	// Lookback is the number of bars of its inputs the strategy reads.
	Lookback int
	// Symbol is stamped on emitted intents.
	Symbol string
}

// Strategy is a user strategy. OnBar is only called once the node has left
// Warmup.
type Strategy interface {
	Descriptor() Descriptor
	OnBar(ctx *Context) error
}

// Context is what a strategy sees on each bar.
type Context struct {
	sc     *node.StepContext
	desc   Descriptor
	inputs map[string]int
}

// Phase returns Transition on the first defined bar and Steady afterwards.
func (c *Context) Phase() types.Phase {
	return c.sc.Phase()
}

// Bar returns the strategy's 0-based bar index.
func (c *Context) Bar() int {
	return c.sc.Bar()
}

// Input returns the named input.
func (c *Context) Input(name string) (series.Reader, error) {
	i, ok := c.inputs[name]
	if !ok {
		return nil, fmt.Errorf("strategy %s has no input %q", c.desc.Name, name)
	}

	return c.sc.Input(i), nil
}

// Value returns the current value of the named input, or NaN.
func (c *Context) Value(name string, ago int) float64 {
	in, err := c.Input(name)
	if err != nil {
		return math.NaN()
	}

	return in.Get(ago)
}

// Signal writes the strategy's signal for the current bar.
func (c *Context) Signal(v float64) {
	c.sc.Set(0, v)
}

// PreviousSignal returns the signal written ago bars back.
func (c *Context) PreviousSignal(ago int) float64 {
	return c.sc.Output(0).Get(ago)
}

// Buy emits a market buy intent.
func (c *Context) Buy(size decimal.Decimal, reason string) error {
	return c.Submit(c.market(types.SideBuy, size, reason))
}

// Sell emits a market sell intent.
func (c *Context) Sell(size decimal.Decimal, reason string) error {
	return c.Submit(c.market(types.SideSell, size, reason))
}

// Submit emits an arbitrary intent. The engine stamps its ID, time,
// strategy name and bar.
func (c *Context) Submit(intent types.OrderIntent) error {
	if intent.Symbol == "" {
		intent.Symbol = c.desc.Symbol
	}

	return c.sc.Emit(intent)
}

func (c *Context) market(side types.Side, size decimal.Decimal, reason string) types.OrderIntent {
	return types.OrderIntent{
		ID:       "",
		Strategy: "",
		Symbol:   c.desc.Symbol,
		Side:     side,
		Type:     types.OrderTypeMarket,
		Size:     size,
		Price:    decimal.Zero,
		Time:     time.Time{},
		Bar:      0,
		Reason:   reason,
	}
}

// Kernel adapts a Strategy to node.Kernel.
type Kernel struct {
	strategy Strategy
	desc     Descriptor
	inputs   map[string]int
}

// NewKernel wraps s.
func NewKernel(s Strategy) (*Kernel, error) {
	desc := s.Descriptor()
	if desc.Name == "" {
		return nil, fmt.Errorf("strategy name is required")
	}

	if len(desc.Inputs) == 0 {
		return nil, fmt.Errorf("strategy %s declares no inputs", desc.Name)
	}

	inputs := make(map[string]int, len(desc.Inputs))
	for i, name := range desc.Inputs {
		if _, ok := inputs[name]; ok {
			return nil, fmt.Errorf("strategy %s declares input %q twice", desc.Name, name)
		}

		inputs[name] = i
	}

	return &Kernel{
		strategy: s,
		desc:     desc,
		inputs:   inputs,
	}, nil
}

// Strategy returns the wrapped strategy.
func (k *Kernel) Strategy() Strategy {
	return k.strategy
}

// Descriptor implements node.Kernel.
func (k *Kernel) Descriptor() node.Descriptor {
	return node.Descriptor{
		Kind:     "strategy:" + k.desc.Name,
		Outputs:  []string{OutputSignal},
		Lookback: max(k.desc.Lookback, 1),
		Inputs:   len(k.desc.Inputs),
	}
}

// Step implements node.Kernel.
func (k *Kernel) Step(sc *node.StepContext) error {
	if !sc.Phase().Advancing() {
		return nil
	}

	return k.strategy.OnBar(&Context{sc: sc, desc: k.desc, inputs: k.inputs})
}

// Reset implements node.Resetter.
func (k *Kernel) Reset() {
	if r, ok := k.strategy.(node.Resetter); ok {
		r.Reset()
	}
}
