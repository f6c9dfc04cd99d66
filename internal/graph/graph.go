// Package graph assembles feeds and compute nodes into a validated,
// topologically ordered dependency graph. Everything here is per build:
// there is no process-wide registry, so parameter sweeps build one graph per
// run.
package graph

import (
	"slices"

	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
)

// Config holds the per-build settings of a graph.
type Config struct {
	Buffer series.Config `yaml:"buffer" json:"buffer"`
}

// DefaultConfig returns a graph configuration with unbounded buffers.
func DefaultConfig() Config {
	return Config{Buffer: series.DefaultConfig()}
}

// Graph is a built dependency graph. Nodes are stored in topological order.
type Graph struct {
	cfg       Config
	feedNames []string
	feeds     map[string]*series.Lines
	nodes     []*node.Node
	index     map[string]int
}

// Config returns the build configuration.
func (g *Graph) Config() Config {
	return g.cfg
}

// Unbounded reports whether every buffer of the graph keeps its full history.
func (g *Graph) Unbounded() bool {
	return g.cfg.Buffer.Mode != series.ModeBounded
}

// Feeds returns the feed names in declaration order.
func (g *Graph) Feeds() []string {
	return slices.Clone(g.feedNames)
}

// Feed returns the lines of a feed, or nil.
func (g *Graph) Feed(name string) *series.Lines {
	return g.feeds[name]
}

// Nodes returns the nodes in topological order.
func (g *Graph) Nodes() []*node.Node {
	return slices.Clone(g.nodes)
}

// Node returns the named node, or nil.
func (g *Graph) Node(name string) *node.Node {
	i, ok := g.index[name]
	if !ok {
		return nil
	}

	return g.nodes[i]
}

// Order returns the topological position of a node, or -1.
func (g *Graph) Order(name string) int {
	i, ok := g.index[name]
	if !ok {
		return -1
	}

	return i
}

// Resolve returns the reader behind a reference, or nil.
func (g *Graph) Resolve(ref Ref) series.Reader {
	if ref.IsFeed() {
		lines := g.feeds[ref.Feed]
		if lines == nil {
			return nil
		}

		return lines.Line(ref.Line)
	}

	n := g.Node(ref.Node)
	if n == nil {
		return nil
	}

	return n.Output(ref.Output)
}

// Home moves every feed line and node output before its first bar.
func (g *Graph) Home() {
	for _, name := range g.feedNames {
		g.feeds[name].Home()
	}

	for _, n := range g.nodes {
		n.HomeOutputs()
	}
}

// ResetNodes clears node lifecycle and kernel state and homes the outputs.
func (g *Graph) ResetNodes() {
	for _, n := range g.nodes {
		n.Reset()
	}
}
