package node

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// sumKernel writes the sum of the last lookback values of input 0.
type sumKernel struct {
	lookback int
	inputs   int
	phases   []types.Phase
	failAt   int
	panicAt  int
}

func (k *sumKernel) Descriptor() Descriptor {
	return Descriptor{Kind: "sum", Outputs: []string{"value"}, Lookback: k.lookback, Inputs: k.inputs}
}

func (k *sumKernel) Step(sc *StepContext) error {
	k.phases = append(k.phases, sc.Phase())

	if sc.Bar() == k.failAt {
		return fmt.Errorf("bad bar")
	}

	if sc.Bar() == k.panicAt {
		panic("boom")
	}

	if sc.Phase() == types.PhaseWarmup {
		return nil
	}

	window := make([]float64, k.lookback)
	if !series.Window(sc.Input(0), k.lookback, window) {
		return nil
	}

	total := 0.0
	for _, v := range window {
		total += v
	}

	sc.Set(0, total)

	return nil
}

func (k *sumKernel) Reset() {
	k.phases = nil
}

type NodeTestSuite struct {
	suite.Suite
	src   *series.Buffer
	start time.Time
}

func TestNodeSuite(t *testing.T) {
	suite.Run(t, new(NodeTestSuite))
}

func (suite *NodeTestSuite) SetupTest() {
	suite.src = series.NewBuffer(series.DefaultConfig())
	suite.start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
}

func (suite *NodeTestSuite) feedInput() Input {
	return Input{Label: "spy.close", Reader: series.ReadOnly(suite.src), Feed: "spy", Source: nil}
}

func (suite *NodeTestSuite) newNode(k Kernel, inputs ...Input) *Node {
	n, err := New("n", k, inputs, []string{"spy"}, series.DefaultConfig())
	suite.Require().NoError(err)

	return n
}

func (suite *NodeTestSuite) run(n *Node, values ...float64) []*types.Fault {
	var faults []*types.Fault

	for i, v := range values {
		suite.src.Forward(v)

		_, fault := n.Step(i, suite.start.AddDate(0, 0, i))
		if fault != nil {
			faults = append(faults, fault)
		}
	}

	return faults
}

func (suite *NodeTestSuite) TestPhasesAndCounters() {
	k := &sumKernel{lookback: 3, failAt: -1, panicAt: -1}
	n := suite.newNode(k, suite.feedInput())
	suite.Equal(3, n.MinPeriod())

	suite.Empty(suite.run(n, 1, 2, 3, 4, 5))

	suite.Equal([]types.Phase{
		types.PhaseWarmup, types.PhaseWarmup, types.PhaseTransition, types.PhaseSteady, types.PhaseSteady,
	}, k.phases)
	suite.Equal(Counters{Warmup: 2, Transition: 1, Steady: 2}, n.Counters())
	suite.Equal(3, n.Counters().Advances())
	suite.Equal(3, n.ReadyAt())

	values := n.Values("value")
	suite.True(math.IsNaN(values[0]))
	suite.True(math.IsNaN(values[1]))
	suite.Equal([]float64{6, 9, 12}, values[2:])
}

func (suite *NodeTestSuite) TestMinPeriodOneStartsAtTransition() {
	k := &sumKernel{lookback: 1, failAt: -1, panicAt: -1}
	n := suite.newNode(k, suite.feedInput())

	suite.run(n, 1, 2)
	suite.Equal([]types.Phase{types.PhaseTransition, types.PhaseSteady}, k.phases)
}

func (suite *NodeTestSuite) TestMinPeriodStacks() {
	first := suite.newNode(&sumKernel{lookback: 3, failAt: -1, panicAt: -1}, suite.feedInput())
	second, err := New("second", &sumKernel{lookback: 4, failAt: -1, panicAt: -1}, []Input{
		{Label: "n.value", Reader: first.Output("value"), Feed: "", Source: first},
	}, []string{"spy"}, series.DefaultConfig())
	suite.Require().NoError(err)

	suite.Equal(6, second.MinPeriod())
	suite.GreaterOrEqual(second.MinPeriod(), first.MinPeriod())
}

func (suite *NodeTestSuite) TestDownstreamWaitsForUpstreamTransition() {
	first := suite.newNode(&sumKernel{lookback: 2, failAt: -1, panicAt: -1}, suite.feedInput())
	k := &sumKernel{lookback: 1, failAt: -1, panicAt: -1}
	second, err := New("second", k, []Input{
		{Label: "n.value", Reader: first.Output("value"), Feed: "", Source: first},
	}, []string{"spy"}, series.DefaultConfig())
	suite.Require().NoError(err)

	for i, v := range []float64{1, 2, 3} {
		suite.src.Forward(v)
		first.Step(i, suite.start)
		second.Step(i, suite.start)
	}

	suite.Equal([]types.Phase{types.PhaseWarmup, types.PhaseTransition, types.PhaseSteady}, k.phases)
	suite.Equal([]float64{3, 5}, second.Values("value")[1:])
}

func (suite *NodeTestSuite) TestKernelErrorBecomesFault() {
	k := &sumKernel{lookback: 1, failAt: 1, panicAt: -1}
	n := suite.newNode(k, suite.feedInput())

	faults := suite.run(n, 1, 2, 3)
	suite.Require().Len(faults, 1)
	suite.Equal("n", faults[0].Node)
	suite.Equal(1, faults[0].Bar)
	suite.Equal(types.PhaseSteady, faults[0].Phase)
	suite.Contains(faults[0].Err, "bad bar")

	values := n.Values("value")
	suite.Equal(1.0, values[0])
	suite.True(math.IsNaN(values[1]))
	suite.Equal(3.0, values[2])
}

func (suite *NodeTestSuite) TestPanicIsRecovered() {
	k := &sumKernel{lookback: 1, failAt: -1, panicAt: 0}
	n := suite.newNode(k, suite.feedInput())

	faults := suite.run(n, 1, 2)
	suite.Require().Len(faults, 1)
	suite.Contains(faults[0].Err, "panicked")
	suite.Equal(1, n.Counters().Transition)
}

func (suite *NodeTestSuite) TestResetAllowsReplay() {
	k := &sumKernel{lookback: 2, failAt: -1, panicAt: -1}
	n := suite.newNode(k, suite.feedInput())
	suite.run(n, 1, 2, 3)
	first := n.Values("value")

	n.Reset()
	suite.src.Home()
	suite.Equal(0, n.Committed())
	suite.Nil(k.phases)

	for i := 0; i < 3; i++ {
		suite.src.Advance(1)
		n.Step(i, suite.start)
	}

	suite.Equal(len(first), len(n.Values("value")))
	suite.True(math.IsNaN(n.Values("value")[0]))
	suite.Equal(first[1:], n.Values("value")[1:])
}

func (suite *NodeTestSuite) TestEmitOnlyInSteady() {
	n := suite.newNode(&sumKernel{lookback: 2, failAt: -1, panicAt: -1}, suite.feedInput())
	sc := &StepContext{node: n, phase: types.PhaseWarmup, bar: 0, time: suite.start, intents: nil}

	err := sc.Emit(types.OrderIntent{})
	suite.True(errors.HasCode(err, errors.ErrCodeIntentDuringWarmup))

	sc.phase = types.PhaseTransition
	err = sc.Emit(types.OrderIntent{})
	suite.True(errors.HasCode(err, errors.ErrCodeIntentDuringWarmup))
	suite.Empty(sc.intents)

	sc.phase = types.PhaseSteady
	suite.NoError(sc.Emit(types.OrderIntent{Side: types.SideBuy}))
	suite.Require().Len(sc.intents, 1)
	suite.Equal("n", sc.intents[0].Strategy)
	suite.Equal(suite.start, sc.intents[0].Time)
}

func (suite *NodeTestSuite) TestNewValidates() {
	_, err := New("bad", &sumKernel{lookback: 0}, nil, []string{"spy"}, series.DefaultConfig())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = New("noclock", &sumKernel{lookback: 1}, nil, nil, series.DefaultConfig())
	suite.True(errors.HasCode(err, errors.ErrCodeMissingBinding))

	_, err = New("short", &sumKernel{lookback: 1, inputs: 2}, []Input{suite.feedInput()}, []string{"spy"}, series.DefaultConfig())
	suite.True(errors.HasCode(err, errors.ErrCodeMissingBinding))

	_, err = New("negative", &sumKernel{lookback: 1, inputs: -1}, nil, []string{"spy"}, series.DefaultConfig())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	n, err := New("pair", &sumKernel{lookback: 1, inputs: 2}, []Input{suite.feedInput(), suite.feedInput()}, []string{"spy"}, series.DefaultConfig())
	suite.Require().NoError(err)
	suite.Len(n.Inputs(), 2)
}

func (suite *NodeTestSuite) TestTicks() {
	n := suite.newNode(&sumKernel{lookback: 1}, suite.feedInput())
	suite.True(n.Ticks([]string{"qqq", "spy"}))
	suite.False(n.Ticks([]string{"qqq"}))
	suite.False(n.Ticks(nil))
}
