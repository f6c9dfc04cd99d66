// Package node implements the compute node lifecycle shared by every
// indicator and strategy in a graph.
//
// A node owns its output buffers and a Kernel. The node decides the phase of
// each step (Warmup, Transition, Steady), opens the output slot, recovers
// kernel failures and keeps the call counters. The kernel only computes.
package node

import (
	"fmt"
)

// Descriptor is the compile-time shape of a kernel.
type Descriptor struct {
	// Kind names the kernel family, for example "sma".
	Kind string
	// Outputs lists the output line names in index order. At least one.
	Outputs []string
	// Lookback is the number of input bars the kernel needs before its
	// first defined output. 1 means "defined from the first bar".
	Lookback int
	// Inputs is the exact number of inputs the kernel reads. 0 accepts any.
	Inputs int
}

// Validate checks that the descriptor can be bound into a graph.
func (d Descriptor) Validate() error {
	if d.Kind == "" {
		return fmt.Errorf("kernel kind is required")
	}

	if len(d.Outputs) == 0 {
		return fmt.Errorf("kernel %s declares no outputs", d.Kind)
	}

	seen := make(map[string]struct{}, len(d.Outputs))
	for _, name := range d.Outputs {
		if name == "" {
			return fmt.Errorf("kernel %s declares an empty output name", d.Kind)
		}

		if _, ok := seen[name]; ok {
			return fmt.Errorf("kernel %s declares output %q twice", d.Kind, name)
		}

		seen[name] = struct{}{}
	}

	if d.Inputs < 0 {
		return fmt.Errorf("kernel %s input count must be >= 0, got %d", d.Kind, d.Inputs)
	}

	if d.Lookback < 1 {
		return fmt.Errorf("kernel %s lookback must be >= 1, got %d", d.Kind, d.Lookback)
	}

	return nil
}

// OutputIndex returns the index of the named output, or -1.
func (d Descriptor) OutputIndex(name string) int {
	for i, out := range d.Outputs {
		if out == name {
			return i
		}
	}

	return -1
}

// Kernel computes one bar of a node.
//
// Step is called once per tick of the node's clock, in every phase. The
// kernel reads its inputs through the context and writes its outputs at the
// current bar. During Warmup outputs start as NaN; a kernel may accumulate
// state and leave them untouched. On Transition the kernel seeds its state
// from the full input window; on Steady it updates incrementally. Batch and
// incremental runs call the same Step.
type Kernel interface {
	Descriptor() Descriptor
	Step(sc *StepContext) error
}

// Resetter is implemented by kernels that keep state between steps. Reset
// returns the kernel to its freshly built state before a replay.
type Resetter interface {
	Reset()
}
