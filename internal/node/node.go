package node

import (
	"fmt"
	"math"
	"runtime/debug"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// Input is one read-only binding of a node.
type Input struct {
	// Label is the human-readable reference, for example "spy.close" or "fast.value".
	Label string
	// Reader is the bound series.
	Reader series.Reader
	// Feed is set when the input is a feed line.
	Feed string
	// Source is set when the input is another node's output.
	Source *Node
}

// ready reports whether the input has left its warm-up at the current cursor.
func (in Input) ready() bool {
	if in.Source == nil {
		return in.Reader.Len() >= 1
	}

	at := in.Source.readyAt

	return at > 0 && in.Reader.Len() >= at
}

func (in Input) minPeriod() int {
	if in.Source == nil {
		return 1
	}

	return in.Source.minperiod
}

// Counters are the per-phase call counts of a node.
type Counters struct {
	Warmup     int `yaml:"warmup" json:"warmup"`
	Transition int `yaml:"transition" json:"transition"`
	Steady     int `yaml:"steady" json:"steady"`
}

// Advances is the number of steps that produced a defined bar.
func (c Counters) Advances() int {
	return c.Transition + c.Steady
}

// Calls is the total number of steps.
func (c Counters) Calls() int {
	return c.Warmup + c.Transition + c.Steady
}

// Node is one vertex of the compute graph.
type Node struct {
	name      string
	kernel    Kernel
	desc      Descriptor
	inputs    []Input
	outputs   []*series.Buffer
	minperiod int
	clock     []string

	committed int
	readyAt   int
	phase     types.Phase
	counters  Counters
}

// MinPeriodFor returns the minimum period of a kernel with the given
// lookback bound to inputs: the kernel's window starts on the first bar
// where every input is defined.
func MinPeriodFor(lookback int, inputs []Input) int {
	base := 1
	for _, in := range inputs {
		base = max(base, in.minPeriod())
	}

	return base + max(lookback, 1) - 1
}

// New binds a kernel to its inputs. The minimum period is computed here,
// once, from the inputs' own minimum periods; upstream nodes must already
// exist. clock lists the feeds whose ticks step this node.
func New(name string, kernel Kernel, inputs []Input, clock []string, cfg series.Config) (*Node, error) {
	desc := kernel.Descriptor()
	if err := desc.Validate(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "node %s", name)
	}

	if desc.Inputs > 0 && len(inputs) != desc.Inputs {
		return nil, errors.Newf(errors.ErrCodeMissingBinding, "node %s (%s) needs %d inputs, got %d", name, desc.Kind, desc.Inputs, len(inputs))
	}

	if len(clock) == 0 {
		return nil, errors.Newf(errors.ErrCodeMissingBinding, "node %s has no clock: bind an input or set a clock feed", name)
	}

	outputs := make([]*series.Buffer, len(desc.Outputs))
	for i := range outputs {
		outputs[i] = series.NewBuffer(cfg)
	}

	return &Node{
		name:      name,
		kernel:    kernel,
		desc:      desc,
		inputs:    slices.Clone(inputs),
		outputs:   outputs,
		minperiod: MinPeriodFor(desc.Lookback, inputs),
		clock:     slices.Clone(clock),
		committed: 0,
		readyAt:   0,
		phase:     types.PhaseWarmup,
		counters:  Counters{Warmup: 0, Transition: 0, Steady: 0},
	}, nil
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// Kind returns the kernel kind.
func (n *Node) Kind() string {
	return n.desc.Kind
}

// Kernel returns the bound kernel.
func (n *Node) Kernel() Kernel {
	return n.kernel
}

// MinPeriod returns the number of bars of the node's clock before its
// first defined output.
func (n *Node) MinPeriod() int {
	return n.minperiod
}

// Clock returns the feeds that step this node.
func (n *Node) Clock() []string {
	return slices.Clone(n.clock)
}

// Ticks reports whether any feed of the node's clock is in ticked.
func (n *Node) Ticks(ticked []string) bool {
	for _, feed := range ticked {
		if slices.Contains(n.clock, feed) {
			return true
		}
	}

	return false
}

// Inputs returns the bound inputs.
func (n *Node) Inputs() []Input {
	return slices.Clone(n.inputs)
}

// OutputNames returns the output line names in index order.
func (n *Node) OutputNames() []string {
	return slices.Clone(n.desc.Outputs)
}

// Output returns a read-only view of the named output, or nil.
func (n *Node) Output(name string) series.Reader {
	i := n.desc.OutputIndex(name)
	if i < 0 {
		return nil
	}

	return series.ReadOnly(n.outputs[i])
}

// Values returns a copy of every committed value of the named output.
func (n *Node) Values(name string) []float64 {
	i := n.desc.OutputIndex(name)
	if i < 0 {
		return nil
	}

	return n.outputs[i].Values()
}

// Phase returns the phase of the last step.
func (n *Node) Phase() types.Phase {
	return n.phase
}

// Committed returns the number of steps taken.
func (n *Node) Committed() int {
	return n.committed
}

// ReadyAt returns the committed count at which the node transitioned, or 0
// if it has not transitioned.
func (n *Node) ReadyAt() int {
	return n.readyAt
}

// Counters returns the per-phase call counts.
func (n *Node) Counters() Counters {
	return n.counters
}

// Step runs the kernel for the next bar of the node's clock. Inputs must
// already be positioned on the tick being processed. A kernel error or panic
// does not escape: the bar's outputs are left NaN and a fault is returned.
func (n *Node) Step(tick int, t time.Time) ([]types.OrderIntent, *types.Fault) {
	for _, out := range n.outputs {
		out.Forward(math.NaN())
	}

	n.committed++
	n.phase = n.nextPhase()

	switch n.phase {
	case types.PhaseWarmup:
		n.counters.Warmup++
	case types.PhaseTransition:
		n.readyAt = n.committed
		n.counters.Transition++
	case types.PhaseSteady:
		n.counters.Steady++
	}

	sc := &StepContext{
		node:    n,
		phase:   n.phase,
		bar:     n.committed - 1,
		time:    t,
		intents: nil,
	}

	if err := n.run(sc); err != nil {
		for _, out := range n.outputs {
			out.Set(0, math.NaN())
		}

		return nil, &types.Fault{
			Node:  n.name,
			Tick:  tick,
			Bar:   sc.bar,
			Time:  t,
			Phase: n.phase,
			Err:   err.Error(),
		}
	}

	return sc.intents, nil
}

func (n *Node) nextPhase() types.Phase {
	if n.readyAt > 0 {
		return types.PhaseSteady
	}

	if n.committed < n.minperiod {
		return types.PhaseWarmup
	}

	for _, in := range n.inputs {
		if !in.ready() {
			return types.PhaseWarmup
		}
	}

	return types.PhaseTransition
}

func (n *Node) run(sc *StepContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeKernelPanic, "node %s panicked: %v\n%s", n.name, r, debug.Stack())
		}
	}()

	if stepErr := n.kernel.Step(sc); stepErr != nil {
		return errors.Wrapf(errors.ErrCodeComputationFault, stepErr, "node %s", n.name)
	}

	return nil
}

// Prepare sizes the output buffers for a batch pass of steps bars and moves
// their cursors home.
func (n *Node) Prepare(steps int) {
	for _, out := range n.outputs {
		out.Reset()
		out.Extend(math.NaN(), steps)
		out.Home()
	}
}

// HomeOutputs moves every output cursor before the first bar.
func (n *Node) HomeOutputs() {
	for _, out := range n.outputs {
		out.Home()
	}
}

// AdvanceOutputs moves every output cursor forward by k stored bars.
func (n *Node) AdvanceOutputs(k int) {
	for _, out := range n.outputs {
		out.Advance(k)
	}
}

// Reset clears the lifecycle state and the kernel state, and moves the
// output cursors home so the next pass overwrites the stored bars.
func (n *Node) Reset() {
	n.committed = 0
	n.readyAt = 0
	n.phase = types.PhaseWarmup
	n.counters = Counters{Warmup: 0, Transition: 0, Steady: 0}

	if r, ok := n.kernel.(Resetter); ok {
		r.Reset()
	}

	n.HomeOutputs()
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s, minperiod=%d)", n.name, n.desc.Kind, n.minperiod)
}
