// Package backtest turns a YAML configuration into graphs, feeds and
// engines, and runs them once or as a parameter sweep.
package backtest

import (
	"context"
	"maps"
	"path/filepath"
	"slices"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-engine/internal/clock"
	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/feed"
	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/internal/indicator"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/results"
	"github.com/rxtech-lab/argo-engine/internal/strategy"
	"github.com/rxtech-lab/argo-engine/internal/sweep"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/internal/version"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
)

// OnSweepStartCallback is called once before any run starts.
type OnSweepStartCallback func(totalRuns int) error

// OnSweepEndCallback is called when every run finished (always called via defer).
type OnSweepEndCallback func(err error)

// OnRunStartCallback is called after a run's graph and feeds are ready.
type OnRunStartCallback func(runID string, params sweep.Params) error

// OnRunEndCallback is called when a run finishes. resultFolder is empty when
// results are not written.
type OnRunEndCallback func(runID string, result *engine.Result, resultFolder string, err error)

// OnTickCallback is called after every master tick. total is zero in
// incremental mode, where the length of the run is unknown up front.
type OnTickCallback func(runID string, tick engine.Tick, total int)

// LifecycleCallbacks holds the callbacks of a run or sweep.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnSweepStart *OnSweepStartCallback
	OnSweepEnd   *OnSweepEndCallback
	OnRunStart   *OnRunStartCallback
	OnRunEnd     *OnRunEndCallback
	OnTick       *OnTickCallback
}

// FeedOpener creates the source of a configured feed.
type FeedOpener func(fc FeedConfig, config Config, log *logger.Logger) (feed.Feed, error)

// Runner runs the graph a Config describes.
type Runner struct {
	config     Config
	log        *logger.Logger
	strategies *strategy.Registry
	openFeed   FeedOpener
}

// NewRunner validates config and checks the engine version constraint.
func NewRunner(config Config, log *logger.Logger) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := version.Check(config.EngineVersion); err != nil {
		return nil, err
	}

	return &Runner{
		config:     config,
		log:        log.Named("backtest"),
		strategies: strategy.NewRegistry(),
		openFeed:   OpenDuckDBFeed,
	}, nil
}

// Config returns the run configuration.
func (r *Runner) Config() Config {
	return r.config
}

// Strategies returns the strategy registry, for registering custom kinds.
func (r *Runner) Strategies() *strategy.Registry {
	return r.strategies
}

// SetFeedOpener replaces how feeds are opened.
func (r *Runner) SetFeedOpener(opener FeedOpener) {
	r.openFeed = opener
}

// OpenDuckDBFeed reads fc.Path through DuckDB, resampling and windowing it
// when configured.
func OpenDuckDBFeed(fc FeedConfig, config Config, log *logger.Logger) (feed.Feed, error) {
	symbol := optional.None[string]()
	if fc.Symbol != "" {
		symbol = optional.Some(fc.Symbol)
	}

	src, err := feed.NewDuckDBFeed(fc.Name, fc.Path, feed.DuckDBOptions{
		Symbol: symbol,
		Start:  config.StartTime,
		End:    config.EndTime,
		Fields: fc.Fields,
	}, log)
	if err != nil {
		return nil, err
	}

	if fc.Resample <= 0 {
		return src, nil
	}

	resampled, err := feed.NewResampler(fc.Name, src, fc.Resample)
	if err != nil {
		src.Close()

		return nil, err
	}

	// resampled bars are stamped at period close, which may fall past End
	return feed.Between(resampled, config.StartTime, config.EndTime), nil
}

// Build declares the configured graph with params applied on top of the
// configured node and strategy params.
func (r *Runner) Build(params sweep.Params) (*graph.Graph, error) {
	if err := r.checkTargets(params); err != nil {
		return nil, err
	}

	b := graph.NewBuilder(graph.Config{Buffer: r.config.Buffer}, r.log)
	for _, fc := range r.config.Feeds {
		b.AddFeed(fc.Name, fc.Fields...)
	}

	registry := indicator.NewDefaultRegistry()

	for _, nc := range r.config.Nodes {
		refs, err := parseRefs(nc.Inputs)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "node %s", nc.Name)
		}

		merged := merge(nc.Params, params.For(nc.Name))

		if nc.Kind == types.IndicatorTypeMACD {
			if len(refs) != 1 {
				return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "node %s: macd takes one input, got %d", nc.Name, len(refs))
			}

			if _, err := indicator.DeclareMACD(b, nc.Name, refs[0], merged); err != nil {
				return nil, err
			}

			continue
		}

		kernel, err := registry.Create(nc.Kind, merged)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "node %s", nc.Name)
		}

		var opts []graph.NodeOption
		if len(nc.Clock) > 0 {
			opts = append(opts, graph.WithClock(nc.Clock...))
		}

		b.AddNode(nc.Name, kernel, refs, opts...)
	}

	for _, sc := range r.config.Strategies {
		src, err := graph.ParseRef(sc.Source)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "strategy %s", sc.Name)
		}

		if _, err := r.strategies.Declare(b, sc.Kind, sc.Name, src, merge(sc.Params, params.For(sc.Name))); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

// Run executes the configured graph once.
func (r *Runner) Run(ctx context.Context, callbacks LifecycleCallbacks) (*engine.Result, error) {
	jobs := sweep.Jobs([]sweep.Params{{}})

	return r.run(ctx, jobs[0], callbacks)
}

// Sweep runs one independent graph per point of the configured grid.
func (r *Runner) Sweep(ctx context.Context, callbacks LifecycleCallbacks) (outcomes []sweep.Outcome, err error) {
	if callbacks.OnSweepEnd != nil {
		defer func() { (*callbacks.OnSweepEnd)(err) }()
	}

	grid := sweep.Grid(r.config.Sweep)
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	jobs := sweep.Jobs(grid.Expand())
	for _, job := range jobs {
		if err := r.checkTargets(job.Params); err != nil {
			return nil, err
		}
	}

	if callbacks.OnSweepStart != nil {
		if err := (*callbacks.OnSweepStart)(len(jobs)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "sweep start callback failed", err)
		}
	}

	r.log.Info("Starting sweep", zap.Int("runs", len(jobs)), zap.Int("workers", r.config.Workers))

	return sweep.Run(ctx, jobs, func(ctx context.Context, job sweep.Job) (*engine.Result, error) {
		return r.run(ctx, job, callbacks)
	}, sweep.Options{Workers: r.config.Workers, Logger: r.log, OnDone: nil})
}

func (r *Runner) run(ctx context.Context, job sweep.Job, callbacks LifecycleCallbacks) (result *engine.Result, err error) {
	folder := ""

	if callbacks.OnRunEnd != nil {
		defer func() { (*callbacks.OnRunEnd)(job.RunID, result, folder, err) }()
	}

	g, err := r.Build(job.Params)
	if err != nil {
		return nil, err
	}

	log := r.log.With(zap.String("run_id", job.RunID))
	e := engine.New(g, engine.Options{
		RunID:     job.RunID,
		Broker:    engine.NewIntentRecorder(),
		Observers: nil,
		Logger:    log,
	})

	if callbacks.OnTick != nil {
		onTick := *callbacks.OnTick
		e.AddObserver(engine.ObserverFunc(func(s engine.TickSnapshot) {
			onTick(job.RunID, s.Tick, s.Total)
		}))
	}

	c := clock.NewCoordinator(e, log)

	var opened []feed.Feed

	closeOpened := func() {
		for _, f := range opened {
			if err := feed.Close(f); err != nil {
				log.Warn("Failed to close feed", zap.String("feed", f.Name()), zap.Error(err))
			}
		}
	}

	for _, fc := range r.config.Feeds {
		f, err := r.openFeed(fc, r.config, log)
		if err != nil {
			closeOpened()

			return nil, err
		}

		opened = append(opened, f)

		if err := c.AddFeed(f); err != nil {
			closeOpened()

			return nil, err
		}
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(job.RunID, job.Params); err != nil {
			closeOpened()

			return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
		}
	}

	result, err = c.Run(ctx, r.config.Mode)
	if err != nil {
		return result, err
	}

	if r.config.ResultsFolder == "" {
		return result, nil
	}

	writer, err := results.NewWriter(log)
	if err != nil {
		return result, err
	}
	defer writer.Close()

	folder = filepath.Join(r.config.ResultsFolder, job.RunID)
	if err := writer.Write(folder, result, job.Params); err != nil {
		return result, err
	}

	return result, nil
}

func (r *Runner) checkTargets(params sweep.Params) error {
	targets := make(map[string]bool)
	for _, nc := range r.config.Nodes {
		targets[nc.Name] = true
	}

	for _, sc := range r.config.Strategies {
		targets[sc.Name] = true
	}

	for key := range params {
		target, _, err := sweep.Split(key)
		if err != nil {
			return err
		}

		if !targets[target] {
			return errors.Newf(errors.ErrCodeInvalidParameter, "sweep key %q names no node or strategy", key)
		}
	}

	return nil
}

func parseRefs(inputs []string) ([]graph.Ref, error) {
	refs := make([]graph.Ref, 0, len(inputs))

	for _, in := range inputs {
		ref, err := graph.ParseRef(in)
		if err != nil {
			return nil, err
		}

		refs = append(refs, ref)
	}

	return refs, nil
}

func merge(base, override map[string]any) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]any, len(override))
	}

	maps.Copy(out, override)

	return out
}

func indicatorKinds() []any {
	kinds := indicator.NewDefaultRegistry().List()
	kinds = append(kinds, types.IndicatorTypeMACD)
	slices.Sort(kinds)

	out := make([]any, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}

	return out
}
