package engine

import (
	"context"
	"slices"

	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
)

// Replay re-runs the completed timeline over the stored feed bars. Every
// cursor is moved home, node and kernel state is reset, and each tick is
// stepped again; existing output slots are overwritten, so a replay
// reproduces the first run exactly. Intents are forwarded to the broker
// again.
func (e *Engine) Replay(ctx context.Context) error {
	if !e.graph.Unbounded() {
		return errors.New(errors.ErrCodeInvalidBufferMode, "replay requires unbounded buffers")
	}

	timeline := slices.Clone(e.timeline)
	if len(timeline) == 0 {
		return errors.New(errors.ErrCodeEngineStateInvalid, "nothing to replay")
	}

	e.reset()
	e.graph.ResetNodes()

	for _, name := range e.graph.Feeds() {
		e.graph.Feed(name).Home()
	}

	e.log.Debug("Replaying run", zap.Int("ticks", len(timeline)))

	for _, tick := range timeline {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCancelled, "replay cancelled", err)
		}

		for _, name := range tick.Feeds {
			e.graph.Feed(name).Advance(1)
		}

		if err := e.StepTick(ctx, tick); err != nil {
			return err
		}
	}

	return nil
}
