package engine_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/internal/indicator"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/strategy"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/mocks"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const feedName = "spy"

type EngineTestSuite struct {
	suite.Suite
	log  *logger.Logger
	ctx  context.Context
	bars []types.Bar
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.log = logger.NewNopLogger()
	suite.ctx = context.Background()

	config := mocks.DefaultConfig()
	config.Count = 300
	config.Symbol = "SPY"
	suite.bars = mocks.NewBarGenerator(42).Generate(config)
}

// buildGraph declares a small pipeline: two SMAs, an EMA stacked on one of
// them, RSI and a crossover strategy.
func (suite *EngineTestSuite) buildGraph(cfg graph.Config) *graph.Graph {
	sma20, err := indicator.NewSMA(indicator.SMAParams{Period: 20})
	suite.Require().NoError(err)

	ema5, err := indicator.NewEMA(indicator.EMAParams{Period: 5})
	suite.Require().NoError(err)

	rsi, err := indicator.NewRSI(indicator.RSIParams{Period: 14})
	suite.Require().NoError(err)

	b := graph.NewBuilder(cfg, suite.log).
		AddFeed(feedName).
		AddNode("sma20", sma20, []graph.Ref{graph.Close(feedName)}).
		AddNode("ema_of_sma", ema5, []graph.Ref{graph.Value("sma20")}).
		AddNode("rsi", rsi, []graph.Ref{graph.Close(feedName)})

	_, err = strategy.AddSMACross(b, "cross", graph.Close(feedName), strategy.SMACrossParams{
		Symbol: "SPY",
		Fast:   5,
		Slow:   15,
		Size:   decimal.NewFromInt(10),
	})
	suite.Require().NoError(err)

	g, err := b.Build()
	suite.Require().NoError(err)

	return g
}

func (suite *EngineTestSuite) runIncremental(e *engine.Engine, bars []types.Bar) {
	g := e.Graph()

	for i, bar := range bars {
		g.Feed(feedName).ForwardBar(bar)
		suite.Require().NoError(e.StepTick(suite.ctx, engine.Tick{Index: i, Time: bar.Time, Feeds: []string{feedName}}))
	}
}

func (suite *EngineTestSuite) runBatch(e *engine.Engine, bars []types.Bar) {
	g := e.Graph()
	timeline := make([]engine.Tick, len(bars))

	for i, bar := range bars {
		g.Feed(feedName).ForwardBar(bar)
		timeline[i] = engine.Tick{Index: i, Time: bar.Time, Feeds: []string{feedName}}
	}

	suite.Require().NoError(e.RunBatch(suite.ctx, timeline))
}

// requireSameSeries compares bit for bit, treating NaN as equal to NaN.
func (suite *EngineTestSuite) requireSameSeries(expected, actual map[string]map[string][]float64) {
	suite.Require().Equal(len(expected), len(actual))

	for name, outputs := range expected {
		for output, want := range outputs {
			got := actual[name][output]
			suite.Require().Len(got, len(want), "%s.%s", name, output)

			for i := range want {
				if math.IsNaN(want[i]) {
					suite.Require().True(math.IsNaN(got[i]), "%s.%s[%d] = %v, want NaN", name, output, i, got[i])

					continue
				}

				suite.Require().Equal(math.Float64bits(want[i]), math.Float64bits(got[i]), "%s.%s[%d]", name, output, i)
			}
		}
	}
}

func (suite *EngineTestSuite) TestBatchMatchesIncremental() {
	incremental := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "run", Broker: nil, Observers: nil, Logger: suite.log})
	suite.runIncremental(incremental, suite.bars)

	batch := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "run", Broker: nil, Observers: nil, Logger: suite.log})
	suite.runBatch(batch, suite.bars)

	want := incremental.Result()
	got := batch.Result()

	suite.Equal(engine.ModeIncremental, want.Mode)
	suite.Equal(engine.ModeBatch, got.Mode)
	suite.requireSameSeries(want.Outputs, got.Outputs)
	suite.Equal(want.Counters, got.Counters)
	suite.Equal(want.Intents, got.Intents)
	suite.Equal(want.Timeline, got.Timeline)
	suite.NotEmpty(want.Intents)
}

func (suite *EngineTestSuite) TestWarmupCounts() {
	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})
	suite.runIncremental(e, suite.bars)

	g := e.Graph()
	suite.Equal(20, g.Node("sma20").MinPeriod())
	suite.Equal(24, g.Node("ema_of_sma").MinPeriod())
	suite.Equal(15, g.Node("rsi").MinPeriod())

	result := e.Result()
	suite.Equal(node.Counters{Warmup: 19, Transition: 1, Steady: 280}, result.Counters["sma20"])
	suite.Equal(len(suite.bars)-23, result.Advances("ema_of_sma"))
	suite.Equal(len(suite.bars)-14, result.Advances("rsi"))

	sma := result.Outputs["sma20"][indicator.OutputValue]
	suite.True(math.IsNaN(sma[18]))
	suite.False(math.IsNaN(sma[19]))

	ema := result.Outputs["ema_of_sma"][indicator.OutputValue]
	suite.True(math.IsNaN(ema[22]))
	suite.False(math.IsNaN(ema[23]))
}

// follower is a strategy that mirrors its single input as its signal.
type follower struct{}

func (follower) Descriptor() strategy.Descriptor {
	return strategy.Descriptor{Name: "follower", Inputs: []string{"sma"}, Lookback: 1, Symbol: "SPY"}
}

func (follower) OnBar(ctx *strategy.Context) error {
	ctx.Signal(ctx.Value("sma", 0))

	return nil
}

func (suite *EngineTestSuite) TestSMA20Over1444Bars() {
	config := mocks.DefaultConfig()
	config.Count = 1444
	bars := mocks.NewBarGenerator(3).Generate(config)

	for _, mode := range []engine.Mode{engine.ModeIncremental, engine.ModeBatch} {
		sma, err := indicator.NewSMA(indicator.SMAParams{Period: 20})
		suite.Require().NoError(err)

		kernel, err := strategy.NewKernel(follower{})
		suite.Require().NoError(err)

		g, err := graph.NewBuilder(graph.DefaultConfig(), nil).
			AddFeed(feedName).
			AddNode("sma", sma, []graph.Ref{graph.Close(feedName)}).
			AddNode("follower", kernel, []graph.Ref{graph.Value("sma")}).
			Build()
		suite.Require().NoError(err)
		suite.Equal(20, g.Node("follower").MinPeriod())

		e := engine.New(g, engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})
		if mode == engine.ModeBatch {
			suite.runBatch(e, bars)
		} else {
			suite.runIncremental(e, bars)
		}

		result := e.Result()
		suite.Equal(1425, result.Advances("sma"), "mode %s", mode)
		suite.Equal(1444, result.Counters["sma"].Calls(), "mode %s", mode)
		suite.Equal(1425, result.Advances("follower"), "mode %s", mode)
		suite.Equal(1444, result.Counters["follower"].Calls(), "mode %s", mode)

		signal := result.Outputs["follower"][strategy.OutputSignal]
		suite.True(math.IsNaN(signal[18]), "mode %s", mode)
		suite.Equal(result.Outputs["sma"][indicator.OutputValue][19], signal[19], "mode %s", mode)
	}
}

func (suite *EngineTestSuite) TestReplayIsIdempotent() {
	recorder := engine.NewIntentRecorder()
	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "replay", Broker: recorder, Observers: nil, Logger: suite.log})
	suite.runBatch(e, suite.bars)

	first := e.Result()
	suite.Require().NoError(e.Replay(suite.ctx))
	second := e.Result()

	suite.requireSameSeries(first.Outputs, second.Outputs)
	suite.Equal(first.Counters, second.Counters)
	suite.Equal(first.Intents, second.Intents)
	suite.Len(recorder.Intents(), 2*len(first.Intents))
}

func (suite *EngineTestSuite) TestBoundedBuffersRejectBatchAndReplay() {
	cfg := graph.DefaultConfig()
	cfg.Buffer.Mode = series.ModeBounded
	cfg.Buffer.MaxLen = 64

	e := engine.New(suite.buildGraph(cfg), engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})
	err := e.RunBatch(suite.ctx, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBufferMode))

	suite.runIncremental(e, suite.bars)
	suite.Equal(len(suite.bars)-19, e.Result().Advances("sma20"))
	suite.Equal(len(suite.bars), e.Graph().Node("sma20").Output(indicator.OutputValue).Len())
	suite.Len(e.Graph().Node("sma20").Values(indicator.OutputValue), 64)

	err = e.Replay(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBufferMode))
}

func (suite *EngineTestSuite) TestFaultIsolation() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	flaky := mocks.NewMockKernel(ctrl)
	flaky.EXPECT().Descriptor().Return(node.Descriptor{Kind: "flaky", Outputs: []string{"value"}, Lookback: 1}).AnyTimes()
	flaky.EXPECT().Step(gomock.Any()).DoAndReturn(func(sc *node.StepContext) error {
		if sc.Bar() == 5 {
			return fmt.Errorf("division by zero")
		}

		if sc.Bar() == 7 {
			panic("boom")
		}

		sc.Set(0, float64(sc.Bar()))

		return nil
	}).AnyTimes()

	sma, err := indicator.NewSMA(indicator.SMAParams{Period: 3})
	suite.Require().NoError(err)

	g, err := graph.NewBuilder(graph.DefaultConfig(), suite.log).
		AddFeed(feedName).
		AddNode("flaky", flaky, []graph.Ref{graph.Close(feedName)}).
		AddNode("sma", sma, []graph.Ref{graph.Close(feedName)}).
		Build()
	suite.Require().NoError(err)

	e := engine.New(g, engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})
	suite.runIncremental(e, suite.bars[:10])

	result := e.Result()
	suite.Require().Len(result.Faults, 2)
	suite.Equal("flaky", result.Faults[0].Node)
	suite.Equal(5, result.Faults[0].Tick)
	suite.Equal(types.PhaseSteady, result.Faults[0].Phase)
	suite.Contains(result.Faults[1].Err, "boom")

	values := result.Outputs["flaky"]["value"]
	suite.True(math.IsNaN(values[5]))
	suite.True(math.IsNaN(values[7]))
	suite.Equal(6.0, values[6])
	suite.Equal(8, result.Advances("sma"))
	suite.Len(e.Faults().ByNode("flaky"), 2)
	suite.Empty(e.Faults().ByNode("sma"))
}

func (suite *EngineTestSuite) TestIntentsForwardedToBroker() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	broker := mocks.NewMockBroker(ctrl)

	var submitted []types.OrderIntent

	broker.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, intent types.OrderIntent) error {
		submitted = append(submitted, intent)
		if len(submitted) == 1 {
			return fmt.Errorf("broker offline")
		}

		return nil
	}).MinTimes(1)

	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "intents", Broker: broker, Observers: nil, Logger: suite.log})
	suite.runIncremental(e, suite.bars)

	result := e.Result()
	suite.Equal(result.Intents, submitted)
	suite.Equal(1, result.Rejected)

	seen := make(map[string]bool)
	for _, intent := range result.Intents {
		suite.Equal("cross", intent.Strategy)
		suite.Equal("SPY", intent.Symbol)
		// slow SMA needs 15 bars and the strategy reads two of them
		suite.GreaterOrEqual(intent.Bar, 15)
		suite.NoError(intent.Validate())
		suite.False(seen[intent.ID])
		seen[intent.ID] = true
	}
}

func (suite *EngineTestSuite) TestObserverSeesEveryTick() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	observer := mocks.NewMockObserver(ctrl)

	var phases []types.Phase

	observer.EXPECT().OnTick(gomock.Any()).Do(func(snapshot engine.TickSnapshot) {
		phases = append(phases, snapshot.Phase("sma20"))
		suite.Equal(snapshot.Tick.Time, snapshot.Time())
		suite.Equal(suite.bars[snapshot.Tick.Index].Close, snapshot.Feed(feedName, types.LineClose).Get(0))
	}).Times(len(suite.bars))

	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "", Broker: nil, Observers: []engine.Observer{observer}, Logger: suite.log})
	suite.runBatch(e, suite.bars)

	suite.Equal(types.PhaseWarmup, phases[18])
	suite.Equal(types.PhaseTransition, phases[19])
	suite.Equal(types.PhaseSteady, phases[20])
}

func (suite *EngineTestSuite) TestTickHookErrorAborts() {
	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})
	e.AddTickHook(func(_ context.Context, tick engine.Tick) error {
		if tick.Index == 3 {
			return fmt.Errorf("stop")
		}

		return nil
	})

	g := e.Graph()

	var err error

	for i := 0; i < 5 && err == nil; i++ {
		g.Feed(feedName).ForwardBar(suite.bars[i])
		err = e.StepTick(suite.ctx, engine.Tick{Index: i, Time: suite.bars[i].Time, Feeds: []string{feedName}})
	}

	suite.True(errors.HasCode(err, errors.ErrCodeCallbackFailed))
	suite.Equal(4, e.Ticks())
}

func (suite *EngineTestSuite) TestStepTickRejectsBadTicks() {
	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})
	t0 := suite.bars[0].Time

	err := e.StepTick(suite.ctx, engine.Tick{Index: 1, Time: t0, Feeds: nil})
	suite.True(errors.HasCode(err, errors.ErrCodeEngineStateInvalid))

	suite.Require().NoError(e.StepTick(suite.ctx, engine.Tick{Index: 0, Time: t0, Feeds: nil}))

	err = e.StepTick(suite.ctx, engine.Tick{Index: 1, Time: t0.Add(-time.Minute), Feeds: nil})
	suite.True(errors.HasCode(err, errors.ErrCodeOutOfOrderData))
}

func (suite *EngineTestSuite) TestRunBatchCancelled() {
	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})

	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	timeline := []engine.Tick{{Index: 0, Time: suite.bars[0].Time, Feeds: []string{feedName}}}
	err := e.RunBatch(ctx, timeline)
	suite.True(errors.HasCode(err, errors.ErrCodeCancelled))
}

func (suite *EngineTestSuite) TestRunBatchRejectsBadTimeline() {
	e := engine.New(suite.buildGraph(graph.DefaultConfig()), engine.Options{RunID: "", Broker: nil, Observers: nil, Logger: suite.log})

	err := e.RunBatch(suite.ctx, []engine.Tick{{Index: 0, Time: suite.bars[0].Time, Feeds: []string{"qqq"}}})
	suite.True(errors.HasCode(err, errors.ErrCodeMissingBinding))

	err = e.RunBatch(suite.ctx, []engine.Tick{
		{Index: 0, Time: suite.bars[1].Time, Feeds: nil},
		{Index: 1, Time: suite.bars[0].Time, Feeds: nil},
	})
	suite.True(errors.HasCode(err, errors.ErrCodeOutOfOrderData))
}
