// Package clock merges several feeds into one master clock and drives an
// engine through it.
//
// The coordinator keeps one bar of look-ahead per feed. Each master tick is
// the smallest pending timestamp; every feed whose pending bar carries that
// timestamp delivers it on the tick, the others are left alone so their
// readers keep seeing the previous bar. Bars are stamped at their close, so
// a daily bar closing at 16:00 comes after every intraday bar up to 16:00.
package clock

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/feed"
	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
)

type source struct {
	feed      feed.Feed
	next      types.Bar
	hasNext   bool
	last      time.Time
	delivered int
}

// Coordinator owns the feeds of a run and the engine consuming them.
type Coordinator struct {
	engine  *engine.Engine
	graph   *graph.Graph
	sources []*source
	timers  []*timer
	log     *logger.Logger
	started bool
}

// NewCoordinator creates a coordinator for e. Timers run as an engine tick
// hook, after intents are forwarded and before observers.
func NewCoordinator(e *engine.Engine, log *logger.Logger) *Coordinator {
	c := &Coordinator{
		engine:  e,
		graph:   e.Graph(),
		sources: nil,
		timers:  nil,
		log:     log.Named("clock"),
		started: false,
	}

	e.AddTickHook(c.fireTimers)

	return c
}

// AddFeed registers the source of a graph feed. The feed's name must match
// a feed declared on the graph.
func (c *Coordinator) AddFeed(f feed.Feed) error {
	if c.started {
		return errors.New(errors.ErrCodeEngineStateInvalid, "feeds must be added before the run starts")
	}

	if c.graph.Feed(f.Name()) == nil {
		return errors.Newf(errors.ErrCodeMissingBinding, "graph has no feed named %q", f.Name())
	}

	for _, s := range c.sources {
		if s.feed.Name() == f.Name() {
			return errors.Newf(errors.ErrCodeDuplicateFeed, "feed %q already added", f.Name())
		}
	}

	c.sources = append(c.sources, &source{
		feed:      f,
		next:      types.Bar{},
		hasNext:   false,
		last:      time.Time{},
		delivered: 0,
	})

	return nil
}

// RegisterTimer adds a timer checked once per master tick.
func (c *Coordinator) RegisterTimer(schedule Schedule, callback TimerFunc) {
	c.timers = append(c.timers, &timer{schedule: schedule, callback: callback, next: time.Time{}})
}

// Run drives the engine in the given mode until every feed is exhausted or
// ctx is cancelled. On cancellation the partial result is returned together
// with the error.
func (c *Coordinator) Run(ctx context.Context, mode engine.Mode) (*engine.Result, error) {
	switch mode {
	case engine.ModeBatch:
		return c.RunBatch(ctx)
	case engine.ModeIncremental, "":
		return c.RunIncremental(ctx)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown engine mode %q", mode)
	}
}

// RunIncremental steps the engine as each master tick is merged.
func (c *Coordinator) RunIncremental(ctx context.Context) (*engine.Result, error) {
	if err := c.start(); err != nil {
		return nil, err
	}

	defer c.close()

	start := time.Now()

	err := c.merge(ctx, func(tick engine.Tick) error {
		return c.engine.StepTick(ctx, tick)
	})

	c.log.Info("Incremental run complete",
		zap.Int("ticks", c.engine.Ticks()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)

	return c.engine.Result(), err
}

// RunBatch loads every feed completely, building the master timeline, and
// then hands the timeline to the engine. Data faults surface before any
// node is stepped.
func (c *Coordinator) RunBatch(ctx context.Context) (*engine.Result, error) {
	if err := c.start(); err != nil {
		return nil, err
	}

	defer c.close()

	var timeline []engine.Tick

	err := c.merge(ctx, func(tick engine.Tick) error {
		timeline = append(timeline, tick)

		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug("Feeds preloaded", zap.Int("ticks", len(timeline)))

	if err := c.engine.RunBatch(ctx, timeline); err != nil {
		return c.engine.Result(), err
	}

	return c.engine.Result(), nil
}

// Replay re-runs the completed timeline through the engine.
func (c *Coordinator) Replay(ctx context.Context) (*engine.Result, error) {
	for _, t := range c.timers {
		t.reset()
	}

	if err := c.engine.Replay(ctx); err != nil {
		return nil, err
	}

	return c.engine.Result(), nil
}

func (c *Coordinator) start() error {
	if c.started {
		return errors.New(errors.ErrCodeEngineStateInvalid, "coordinator already ran")
	}

	for _, name := range c.graph.Feeds() {
		found := false

		for _, s := range c.sources {
			if s.feed.Name() == name {
				found = true

				break
			}
		}

		if !found {
			return errors.Newf(errors.ErrCodeMissingBinding, "graph feed %q has no source", name)
		}
	}

	c.started = true

	return nil
}

func (c *Coordinator) close() {
	for _, s := range c.sources {
		if err := feed.Close(s.feed); err != nil {
			c.log.Warn("Failed to close feed", zap.String("feed", s.feed.Name()), zap.Error(err))
		}
	}
}

// merge pulls bars into the graph's feed lines one master tick at a time and
// calls fn after each tick's bars are committed.
func (c *Coordinator) merge(ctx context.Context, fn func(tick engine.Tick) error) error {
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCancelled, "run cancelled", err)
		}

		for _, s := range c.sources {
			if err := c.prime(s); err != nil {
				c.log.Error("Data fault", zap.String("feed", s.feed.Name()), zap.Error(err))

				return err
			}
		}

		master, ok := c.masterTime()
		if !ok {
			return nil
		}

		tick := engine.Tick{Index: index, Time: master, Feeds: nil}

		for _, s := range c.sources {
			if !s.hasNext || !s.next.Time.Equal(master) {
				continue
			}

			c.graph.Feed(s.feed.Name()).ForwardBar(s.next)
			s.last = s.next.Time
			s.delivered++
			s.hasNext = false
			tick.Feeds = append(tick.Feeds, s.feed.Name())
		}

		if err := fn(tick); err != nil {
			return err
		}
	}
}

// prime reads the next bar of s if none is pending and validates it.
func (c *Coordinator) prime(s *source) error {
	if s.hasNext || !s.feed.HasNext() {
		return nil
	}

	bar, err := s.feed.Advance()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataFault, err, "feed %s", s.feed.Name())
	}

	if err := bar.Validate(); err != nil {
		return errors.Wrapf(errors.ErrCodeDataFault, err, "feed %s bar %d", s.feed.Name(), s.delivered)
	}

	if s.delivered > 0 && !bar.Time.After(s.last) {
		return errors.Wrapf(errors.ErrCodeDataFault,
			errors.Newf(errors.ErrCodeOutOfOrderData, "bar at %s does not follow %s", bar.Time, s.last),
			"feed %s bar %d", s.feed.Name(), s.delivered)
	}

	s.next = bar
	s.hasNext = true

	return nil
}

func (c *Coordinator) masterTime() (time.Time, bool) {
	var (
		master time.Time
		found  bool
	)

	for _, s := range c.sources {
		if !s.hasNext {
			continue
		}

		if !found || s.next.Time.Before(master) {
			master = s.next.Time
			found = true
		}
	}

	return master, found
}

func (c *Coordinator) fireTimers(ctx context.Context, tick engine.Tick) error {
	for _, t := range c.timers {
		if err := t.check(ctx, tick); err != nil {
			return err
		}
	}

	return nil
}
