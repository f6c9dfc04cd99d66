package engine

import (
	"slices"

	"github.com/rxtech-lab/argo-engine/internal/types"
)

// FaultLog collects the computation faults of a run in (tick, node order).
type FaultLog struct {
	faults []types.Fault
}

// NewFaultLog creates an empty log.
func NewFaultLog() *FaultLog {
	return &FaultLog{faults: nil}
}

// Record appends a fault.
func (l *FaultLog) Record(f types.Fault) {
	l.faults = append(l.faults, f)
}

// All returns every fault.
func (l *FaultLog) All() []types.Fault {
	return slices.Clone(l.faults)
}

// Len returns the number of faults.
func (l *FaultLog) Len() int {
	return len(l.faults)
}

// ByNode returns the faults of one node.
func (l *FaultLog) ByNode(name string) []types.Fault {
	var out []types.Fault

	for _, f := range l.faults {
		if f.Node == name {
			out = append(out, f)
		}
	}

	return out
}

// Reset empties the log.
func (l *FaultLog) Reset() {
	l.faults = nil
}
