package backtest_test

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rxtech-lab/argo-engine/internal/backtest"
	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/feed"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/results"
	"github.com/rxtech-lab/argo-engine/internal/sweep"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/mocks"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RunnerTestSuite struct {
	suite.Suite
	bars []types.Bar
	path string
	log  *logger.Logger
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (suite *RunnerTestSuite) SetupTest() {
	config := mocks.DefaultConfig()
	config.Symbol = "SPY"
	config.Count = 200
	suite.bars = mocks.NewBarGenerator(7).Generate(config)
	suite.log = logger.NewNopLogger()

	var sb strings.Builder
	sb.WriteString("time,symbol,open,high,low,close,volume\n")

	for _, b := range suite.bars {
		fmt.Fprintf(&sb, "%s,%s,%v,%v,%v,%v,%v\n",
			b.Time.UTC().Format("2006-01-02 15:04:05"), b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	suite.path = filepath.Join(suite.T().TempDir(), "spy.csv")
	suite.Require().NoError(os.WriteFile(suite.path, []byte(sb.String()), 0o600))
}

func (suite *RunnerTestSuite) config(mode engine.Mode) backtest.Config {
	config := backtest.EmptyConfig()
	config.Mode = mode
	config.ResultsFolder = ""
	config.Feeds = []backtest.FeedConfig{
		{Name: "spy", Path: suite.path, Symbol: "SPY", Resample: 0, Fields: nil},
	}
	config.Nodes = []backtest.NodeConfig{
		{Name: "sma", Kind: types.IndicatorTypeMA, Inputs: []string{"spy:close"}, Params: map[string]any{"period": 20}, Clock: nil},
		{Name: "ema", Kind: types.IndicatorTypeEMA, Inputs: []string{"sma"}, Params: map[string]any{"period": 5}, Clock: nil},
		{Name: "macd", Kind: types.IndicatorTypeMACD, Inputs: []string{"spy:close"}, Params: nil, Clock: nil},
	}
	config.Strategies = []backtest.StrategyConfig{
		{Name: "cross", Kind: "sma_cross", Source: "spy:close", Params: map[string]any{"fast": 5, "slow": 15}},
	}

	return config
}

func (suite *RunnerTestSuite) sliceOpener(fc backtest.FeedConfig, _ backtest.Config, _ *logger.Logger) (feed.Feed, error) {
	return feed.NewSliceFeed(fc.Name, suite.bars), nil
}

func (suite *RunnerTestSuite) run(config backtest.Config, callbacks backtest.LifecycleCallbacks) *engine.Result {
	runner, err := backtest.NewRunner(config, suite.log)
	suite.Require().NoError(err)

	result, err := runner.Run(context.Background(), callbacks)
	suite.Require().NoError(err)

	return result
}

func (suite *RunnerTestSuite) requireSameOutputs(expected, actual map[string]map[string][]float64) {
	suite.Require().Len(actual, len(expected))

	for name, outputs := range expected {
		for output, values := range outputs {
			got := actual[name][output]
			suite.Require().Len(got, len(values), "%s.%s", name, output)

			for i, v := range values {
				if math.IsNaN(v) {
					suite.True(math.IsNaN(got[i]), "%s.%s[%d]", name, output, i)

					continue
				}

				suite.Equal(math.Float64bits(v), math.Float64bits(got[i]), "%s.%s[%d]", name, output, i)
			}
		}
	}
}

func (suite *RunnerTestSuite) TestBatchMatchesIncrementalFromCSV() {
	batch := suite.run(suite.config(engine.ModeBatch), backtest.LifecycleCallbacks{})
	incremental := suite.run(suite.config(engine.ModeIncremental), backtest.LifecycleCallbacks{})

	suite.Len(batch.Timeline, len(suite.bars))
	suite.requireSameOutputs(batch.Outputs, incremental.Outputs)
	suite.Equal(batch.Counters, incremental.Counters)
	suite.Equal(len(batch.Intents), len(incremental.Intents))

	suite.Equal(len(suite.bars)-19, batch.Advances("sma"))
	suite.Equal(len(suite.bars)-23, batch.Advances("ema"))
	suite.Equal(len(suite.bars)-33, batch.Advances("macd_signal"))
}

func (suite *RunnerTestSuite) TestRunWritesResults() {
	config := suite.config(engine.ModeBatch)
	config.ResultsFolder = suite.T().TempDir()

	var folder string
	onRunEnd := backtest.OnRunEndCallback(func(_ string, _ *engine.Result, resultFolder string, err error) {
		suite.NoError(err)
		folder = resultFolder
	})

	result := suite.run(config, backtest.LifecycleCallbacks{OnRunEnd: &onRunEnd})
	suite.Equal(filepath.Join(config.ResultsFolder, result.RunID), folder)

	rows, err := results.CountRows(folder, results.TimelineFile)
	suite.Require().NoError(err)
	suite.Equal(len(suite.bars), rows)

	sma, err := results.ReadOutput(folder, "sma", "value")
	suite.Require().NoError(err)
	suite.requireSameOutputs(
		map[string]map[string][]float64{"sma": {"value": result.Outputs["sma"]["value"]}},
		map[string]map[string][]float64{"sma": {"value": sma}},
	)

	_, err = os.Stat(filepath.Join(folder, results.SummaryFile))
	suite.NoError(err)
}

func (suite *RunnerTestSuite) TestOnTickReportsProgress() {
	runner, err := backtest.NewRunner(suite.config(engine.ModeBatch), suite.log)
	suite.Require().NoError(err)
	runner.SetFeedOpener(suite.sliceOpener)

	var ticks, total int
	onTick := backtest.OnTickCallback(func(_ string, tick engine.Tick, n int) {
		ticks++
		total = n
		suite.Equal(ticks-1, tick.Index)
	})

	_, err = runner.Run(context.Background(), backtest.LifecycleCallbacks{OnTick: &onTick})
	suite.Require().NoError(err)
	suite.Equal(len(suite.bars), ticks)
	suite.Equal(len(suite.bars), total)
}

func (suite *RunnerTestSuite) TestRunStartCallbackError() {
	runner, err := backtest.NewRunner(suite.config(engine.ModeIncremental), suite.log)
	suite.Require().NoError(err)
	runner.SetFeedOpener(suite.sliceOpener)

	onRunStart := backtest.OnRunStartCallback(func(string, sweep.Params) error {
		return fmt.Errorf("not now")
	})

	_, err = runner.Run(context.Background(), backtest.LifecycleCallbacks{OnRunStart: &onRunStart})
	suite.True(errors.HasCode(err, errors.ErrCodeCallbackFailed))
}

func (suite *RunnerTestSuite) TestSweep() {
	config := suite.config(engine.ModeBatch)
	config.Workers = 2
	config.Sweep = map[string][]any{
		"cross.fast": {3, 5},
		"sma.period": {10, 20, 30},
	}

	runner, err := backtest.NewRunner(config, suite.log)
	suite.Require().NoError(err)
	runner.SetFeedOpener(suite.sliceOpener)

	var (
		mu      sync.Mutex
		started int
		runs    []string
		endErr  = fmt.Errorf("not called")
	)

	onSweepStart := backtest.OnSweepStartCallback(func(total int) error {
		started = total

		return nil
	})
	onSweepEnd := backtest.OnSweepEndCallback(func(err error) { endErr = err })
	onRunStart := backtest.OnRunStartCallback(func(runID string, _ sweep.Params) error {
		mu.Lock()
		defer mu.Unlock()
		runs = append(runs, runID)

		return nil
	})

	outcomes, err := runner.Sweep(context.Background(), backtest.LifecycleCallbacks{
		OnSweepStart: &onSweepStart,
		OnSweepEnd:   &onSweepEnd,
		OnRunStart:   &onRunStart,
	})
	suite.Require().NoError(err)
	suite.NoError(endErr)
	suite.Equal(6, started)
	suite.Len(runs, 6)
	suite.Require().Len(outcomes, 6)

	// cross.fast varies slowest
	suite.Equal(3, outcomes[0].Job.Params["cross.fast"])
	suite.Equal(10, outcomes[0].Job.Params["sma.period"])
	suite.Equal(5, outcomes[5].Job.Params["cross.fast"])
	suite.Equal(30, outcomes[5].Job.Params["sma.period"])

	for _, o := range outcomes {
		suite.Require().NoError(o.Err)
		period := o.Job.Params["sma.period"].(int)
		suite.Equal(len(suite.bars)-period+1, o.Result.Advances("sma"))
		suite.Equal(o.Job.RunID, o.Result.RunID)
	}
}

func (suite *RunnerTestSuite) TestSweepUnknownTarget() {
	config := suite.config(engine.ModeBatch)
	config.Sweep = map[string][]any{"nope.period": {1}}

	runner, err := backtest.NewRunner(config, suite.log)
	suite.Require().NoError(err)

	_, err = runner.Sweep(context.Background(), backtest.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *RunnerTestSuite) TestBuild() {
	runner, err := backtest.NewRunner(suite.config(engine.ModeBatch), suite.log)
	suite.Require().NoError(err)

	g, err := runner.Build(sweep.Params{"sma.period": 50})
	suite.Require().NoError(err)
	suite.Equal(50, g.Node("sma").MinPeriod())
	suite.Equal(54, g.Node("ema").MinPeriod())
	suite.NotNil(g.Node("macd_signal"))
	suite.NotNil(g.Node("cross_fast"))

	config := suite.config(engine.ModeBatch)
	config.Nodes[0].Kind = "unknown"
	runner, err = backtest.NewRunner(config, suite.log)
	suite.Require().NoError(err)

	_, err = runner.Build(sweep.Params{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	config = suite.config(engine.ModeBatch)
	config.Strategies[0].Kind = "martingale"
	runner, err = backtest.NewRunner(config, suite.log)
	suite.Require().NoError(err)

	_, err = runner.Build(sweep.Params{})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
}

func (suite *RunnerTestSuite) TestNewRunnerValidates() {
	config := suite.config(engine.ModeBatch)
	config.Feeds = nil

	_, err := backtest.NewRunner(config, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	config = suite.config(engine.ModeIncremental)
	config.Buffer.MaxLen = -1

	_, err = backtest.NewRunner(config, suite.log)
	suite.Error(err)
}
