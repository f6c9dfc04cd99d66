// Package engine advances a built graph one master tick at a time
// (incremental) or one node at a time over a pre-loaded timeline (batch).
// Both modes call the same node step, so their outputs are identical bar for
// bar, NaN positions included.
package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
)

// Mode selects how a run evaluates the graph.
type Mode string

const (
	ModeBatch       Mode = "batch"
	ModeIncremental Mode = "incremental"
)

// Tick is one master clock step.
type Tick struct {
	// Index is the 0-based position of the tick in the run.
	Index int `yaml:"index" json:"index"`
	// Time is the master clock time.
	Time time.Time `yaml:"time" json:"time"`
	// Feeds lists the feeds that delivered a bar on this tick.
	Feeds []string `yaml:"feeds" json:"feeds"`
}

// TickHook runs after intents are forwarded and before observers.
type TickHook func(ctx context.Context, tick Tick) error

// Options configures an Engine.
type Options struct {
	// RunID identifies the run in logs, results and intent IDs. Generated when empty.
	RunID     string
	Broker    Broker
	Observers []Observer
	Logger    *logger.Logger
}

// Result is the outcome of a completed run.
type Result struct {
	RunID    string                          `yaml:"run_id" json:"run_id"`
	Mode     Mode                            `yaml:"mode" json:"mode"`
	Timeline []Tick                          `yaml:"timeline" json:"timeline"`
	Outputs  map[string]map[string][]float64 `yaml:"outputs" json:"outputs"`
	Counters map[string]node.Counters        `yaml:"counters" json:"counters"`
	Faults   []types.Fault                   `yaml:"faults" json:"faults"`
	Intents  []types.OrderIntent             `yaml:"intents" json:"intents"`
	// Rejected counts intents the broker refused.
	Rejected int `yaml:"rejected" json:"rejected"`
}

// Advances returns the number of defined bars a node produced.
func (r *Result) Advances(name string) int {
	return r.Counters[name].Advances()
}

// Engine drives one graph for one run.
type Engine struct {
	runID     string
	namespace uuid.UUID
	mode      Mode
	graph     *graph.Graph
	broker    Broker
	observers []Observer
	hooks     []TickHook
	log       *logger.Logger

	faults   *FaultLog
	intents  []types.OrderIntent
	rejected int
	timeline []Tick
	total    int
}

// New creates an engine for g.
func New(g *graph.Graph, opts Options) *Engine {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	return &Engine{
		runID:     runID,
		namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte(runID)),
		mode:      ModeIncremental,
		graph:     g,
		broker:    opts.Broker,
		observers: slices.Clone(opts.Observers),
		hooks:     nil,
		log:       opts.Logger.Named("engine").With(zap.String("run_id", runID)),
		faults:    NewFaultLog(),
		intents:   nil,
		rejected:  0,
		timeline:  nil,
		total:     0,
	}
}

// RunID returns the run identifier.
func (e *Engine) RunID() string {
	return e.runID
}

// Graph returns the driven graph.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// Faults returns the fault log.
func (e *Engine) Faults() *FaultLog {
	return e.faults
}

// AddObserver registers an observer.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// AddTickHook registers a hook run at the end of every tick.
func (e *Engine) AddTickHook(h TickHook) {
	e.hooks = append(e.hooks, h)
}

// SetTotal records the expected number of ticks, reported to observers.
func (e *Engine) SetTotal(total int) {
	e.total = total
}

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() int {
	return len(e.timeline)
}

// StepTick processes one master tick incrementally. The caller has already
// committed the tick's bars to the feed lines. Nodes are stepped in
// topological order when their clock ticked.
func (e *Engine) StepTick(ctx context.Context, tick Tick) error {
	if tick.Index != len(e.timeline) {
		return errors.Newf(errors.ErrCodeEngineStateInvalid, "expected tick %d, got %d", len(e.timeline), tick.Index)
	}

	if n := len(e.timeline); n > 0 && tick.Time.Before(e.timeline[n-1].Time) {
		return errors.Newf(errors.ErrCodeOutOfOrderData, "master clock moved back from %s to %s", e.timeline[n-1].Time, tick.Time)
	}

	var pending []types.OrderIntent

	for _, n := range e.graph.Nodes() {
		if !n.Ticks(tick.Feeds) {
			continue
		}

		intents, fault := n.Step(tick.Index, tick.Time)
		if fault != nil {
			e.recordFault(*fault)

			continue
		}

		pending = append(pending, intents...)
	}

	return e.finishTick(ctx, tick, pending)
}

// finishTick forwards intents, runs hooks and notifies observers.
func (e *Engine) finishTick(ctx context.Context, tick Tick, pending []types.OrderIntent) error {
	e.timeline = append(e.timeline, tick)

	for i := range pending {
		intent := pending[i]
		intent.ID = uuid.NewSHA1(e.namespace, []byte(fmt.Sprintf("%s/%d/%d", intent.Strategy, tick.Index, i))).String()

		e.intents = append(e.intents, intent)
		pending[i] = intent

		if e.broker == nil {
			continue
		}

		if err := e.broker.Submit(ctx, intent); err != nil {
			e.rejected++
			e.log.Warn("Broker rejected intent",
				zap.String("intent_id", intent.ID),
				zap.String("strategy", intent.Strategy),
				zap.Int("tick", tick.Index),
				zap.Error(err),
			)
		}
	}

	for _, hook := range e.hooks {
		if err := hook(ctx, tick); err != nil {
			return errors.Wrapf(errors.ErrCodeCallbackFailed, err, "tick %d", tick.Index)
		}
	}

	if len(e.observers) > 0 {
		snapshot := TickSnapshot{
			Tick:    tick,
			Total:   e.total,
			Intents: pending,
			graph:   e.graph,
		}

		for _, o := range e.observers {
			o.OnTick(snapshot)
		}
	}

	return nil
}

func (e *Engine) recordFault(f types.Fault) {
	e.faults.Record(f)
	e.log.Warn("Computation fault",
		zap.String("node", f.Node),
		zap.Int("tick", f.Tick),
		zap.Int("bar", f.Bar),
		zap.String("phase", f.Phase.String()),
		zap.String("error", f.Err),
	)
}

// Result collects the outputs, counters, faults and intents of the run.
func (e *Engine) Result() *Result {
	nodes := e.graph.Nodes()
	outputs := make(map[string]map[string][]float64, len(nodes))
	counters := make(map[string]node.Counters, len(nodes))

	for _, n := range nodes {
		values := make(map[string][]float64)
		for _, name := range n.OutputNames() {
			values[name] = n.Values(name)
		}

		outputs[n.Name()] = values
		counters[n.Name()] = n.Counters()
	}

	return &Result{
		RunID:    e.runID,
		Mode:     e.mode,
		Timeline: slices.Clone(e.timeline),
		Outputs:  outputs,
		Counters: counters,
		Faults:   e.faults.All(),
		Intents:  slices.Clone(e.intents),
		Rejected: e.rejected,
	}
}

// reset clears per-run bookkeeping.
func (e *Engine) reset() {
	e.faults.Reset()
	e.intents = nil
	e.rejected = 0
	e.timeline = nil
}
