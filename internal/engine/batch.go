package engine

import (
	"context"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
)

// RunBatch evaluates the whole timeline node by node. Every feed line must
// already hold all of its bars (see series.Lines.ForwardBar) and timeline
// must list, per master tick, the feeds that delivered a bar.
//
// Each node computes its full output array in one pass, calling the same
// Step as StepTick. Before each step the node's inputs are repositioned to
// the tick being computed, so every read sees the state an incremental run
// would see. Intents, hooks and observers are then replayed tick by tick.
func (e *Engine) RunBatch(ctx context.Context, timeline []Tick) error {
	if !e.graph.Unbounded() {
		return errors.New(errors.ErrCodeInvalidBufferMode, "batch runs require unbounded buffers")
	}

	if len(e.timeline) > 0 {
		return errors.New(errors.ErrCodeEngineStateInvalid, "engine already ran; use Replay")
	}

	if err := e.checkTimeline(timeline); err != nil {
		return err
	}

	e.mode = ModeBatch
	e.total = len(timeline)

	start := time.Now()
	feedTicks := e.feedMasks(timeline)
	nodeTicks := make(map[*node.Node][]bool, len(e.graph.Nodes()))
	intents := make([][]types.OrderIntent, len(timeline))

	var faults []types.Fault

	for _, n := range e.graph.Nodes() {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCancelled, "batch run cancelled", err)
		}

		mask, steps := e.nodeMask(n, timeline)
		nodeTicks[n] = mask

		feeds, upstream := sources(n)
		for _, name := range feeds {
			e.graph.Feed(name).Home()
		}

		for _, up := range upstream {
			up.HomeOutputs()
		}

		n.Prepare(steps)

		for t, tick := range timeline {
			for _, name := range feeds {
				if feedTicks[name][t] {
					e.graph.Feed(name).Advance(1)
				}
			}

			for _, up := range upstream {
				if nodeTicks[up][t] {
					up.AdvanceOutputs(1)
				}
			}

			if !mask[t] {
				continue
			}

			out, fault := n.Step(t, tick.Time)
			if fault != nil {
				faults = append(faults, *fault)

				continue
			}

			intents[t] = append(intents[t], out...)
		}

		e.log.Debug("Node pass complete",
			zap.String("node", n.Name()),
			zap.Int("steps", steps),
			zap.Int("advances", n.Counters().Advances()),
		)
	}

	// node passes run in topological order, so a stable sort by tick
	// yields (tick, node order)
	slices.SortStableFunc(faults, func(a, b types.Fault) int {
		return a.Tick - b.Tick
	})

	for _, f := range faults {
		e.recordFault(f)
	}

	e.graph.Home()

	for t, tick := range timeline {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCancelled, "batch run cancelled", err)
		}

		for _, name := range tick.Feeds {
			e.graph.Feed(name).Advance(1)
		}

		for _, n := range e.graph.Nodes() {
			if nodeTicks[n][t] {
				n.AdvanceOutputs(1)
			}
		}

		if err := e.finishTick(ctx, tick, intents[t]); err != nil {
			return err
		}
	}

	e.log.Info("Batch run complete",
		zap.Int("ticks", len(timeline)),
		zap.Int("faults", e.faults.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return nil
}

func (e *Engine) checkTimeline(timeline []Tick) error {
	for i, tick := range timeline {
		if tick.Index != i {
			return errors.Newf(errors.ErrCodeEngineStateInvalid, "timeline tick %d has index %d", i, tick.Index)
		}

		if i > 0 && tick.Time.Before(timeline[i-1].Time) {
			return errors.Newf(errors.ErrCodeOutOfOrderData, "timeline moves back at tick %d", i)
		}

		for _, name := range tick.Feeds {
			if e.graph.Feed(name) == nil {
				return errors.Newf(errors.ErrCodeMissingBinding, "tick %d names unknown feed %q", i, name)
			}
		}
	}

	return nil
}

// feedMasks returns, per feed, whether it ticked at each master tick.
func (e *Engine) feedMasks(timeline []Tick) map[string][]bool {
	masks := make(map[string][]bool, len(e.graph.Feeds()))
	for _, name := range e.graph.Feeds() {
		masks[name] = make([]bool, len(timeline))
	}

	for t, tick := range timeline {
		for _, name := range tick.Feeds {
			masks[name][t] = true
		}
	}

	return masks
}

func (e *Engine) nodeMask(n *node.Node, timeline []Tick) ([]bool, int) {
	mask := make([]bool, len(timeline))
	steps := 0

	for t, tick := range timeline {
		if n.Ticks(tick.Feeds) {
			mask[t] = true
			steps++
		}
	}

	return mask, steps
}

// sources returns the distinct feeds and upstream nodes a node reads.
func sources(n *node.Node) ([]string, []*node.Node) {
	var (
		feeds    []string
		upstream []*node.Node
	)

	for _, in := range n.Inputs() {
		if in.Source != nil {
			if !slices.Contains(upstream, in.Source) {
				upstream = append(upstream, in.Source)
			}

			continue
		}

		if !slices.Contains(feeds, in.Feed) {
			feeds = append(feeds, in.Feed)
		}
	}

	return feeds, upstream
}
