package node

import (
	"time"

	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// StepContext is what a kernel sees during one step.
type StepContext struct {
	node    *Node
	phase   types.Phase
	bar     int
	time    time.Time
	intents []types.OrderIntent
}

// Phase returns the lifecycle phase of this step.
func (sc *StepContext) Phase() types.Phase {
	return sc.phase
}

// Bar returns the 0-based index of the current bar on the node's own clock.
func (sc *StepContext) Bar() int {
	return sc.bar
}

// Time returns the master tick time.
func (sc *StepContext) Time() time.Time {
	return sc.time
}

// Name returns the node name.
func (sc *StepContext) Name() string {
	return sc.node.name
}

// NumInputs returns the number of bound inputs.
func (sc *StepContext) NumInputs() int {
	return len(sc.node.inputs)
}

// Input returns the i-th bound input.
func (sc *StepContext) Input(i int) series.Reader {
	return sc.node.inputs[i].Reader
}

// Output returns a read-only view of the node's own i-th output, so a
// kernel can read its previous values.
func (sc *StepContext) Output(i int) series.Reader {
	return series.ReadOnly(sc.node.outputs[i])
}

// Set writes v as the i-th output of the current bar.
func (sc *StepContext) Set(i int, v float64) {
	sc.node.outputs[i].Set(0, v)
}

// Emit queues an order intent for the broker. Intents are only accepted
// in Steady; the Transition bar seeds state and trades nothing.
func (sc *StepContext) Emit(intent types.OrderIntent) error {
	if sc.phase != types.PhaseSteady {
		return errors.Newf(errors.ErrCodeIntentDuringWarmup, "node %s emitted an intent in %s, outside steady state", sc.node.name, sc.phase)
	}

	intent.Strategy = sc.node.name
	intent.Time = sc.time
	intent.Bar = sc.bar
	sc.intents = append(sc.intents, intent)

	return nil
}
