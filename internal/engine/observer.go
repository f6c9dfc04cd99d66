package engine

import (
	"time"

	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// Observer is notified once per completed master tick, after the graph
// step, intent forwarding and timers.
type Observer interface {
	OnTick(snapshot TickSnapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snapshot TickSnapshot)

// OnTick implements Observer.
func (f ObserverFunc) OnTick(snapshot TickSnapshot) {
	f(snapshot)
}

// TickSnapshot is a read-only view of the graph at the end of a tick. It is
// only valid during the OnTick call.
type TickSnapshot struct {
	Tick    Tick
	Total   int
	Intents []types.OrderIntent
	graph   *graph.Graph
}

// Time returns the master tick time.
func (s TickSnapshot) Time() time.Time {
	return s.Tick.Time
}

// Feed returns a feed line, or nil.
func (s TickSnapshot) Feed(feed, line string) series.Reader {
	return s.graph.Resolve(graph.Line(feed, line))
}

// Output returns a node output, or nil.
func (s TickSnapshot) Output(node, output string) series.Reader {
	return s.graph.Resolve(graph.Output(node, output))
}

// Phase returns the phase of the node's latest committed bar.
func (s TickSnapshot) Phase(name string) types.Phase {
	n := s.graph.Node(name)
	if n == nil {
		return types.PhaseWarmup
	}

	outputs := n.OutputNames()
	committed := n.Output(outputs[0]).Len()
	at := n.ReadyAt()

	switch {
	case at == 0 || committed < at:
		return types.PhaseWarmup
	case committed == at:
		return types.PhaseTransition
	default:
		return types.PhaseSteady
	}
}
