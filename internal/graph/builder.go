package graph

import (
	"slices"
	"strings"

	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
)

type feedDecl struct {
	name  string
	extra []string
}

type nodeDecl struct {
	name   string
	kernel node.Kernel
	inputs []Ref
	clock  []string
}

// NodeOption customises a node declaration.
type NodeOption func(*nodeDecl)

// WithClock overrides the feeds that step the node. By default a node is
// stepped by every feed it transitively reads from.
func WithClock(feeds ...string) NodeOption {
	return func(d *nodeDecl) {
		d.clock = slices.Clone(feeds)
	}
}

// Builder collects feed and node declarations and validates them on Build.
type Builder struct {
	cfg   Config
	log   *logger.Logger
	feeds []feedDecl
	nodes []nodeDecl
	names map[string]struct{}
	err   error
}

// NewBuilder creates a builder. log may be nil.
func NewBuilder(cfg Config, log *logger.Logger) *Builder {
	return &Builder{
		cfg:   cfg,
		log:   log.Named("graph"),
		feeds: nil,
		nodes: nil,
		names: make(map[string]struct{}),
		err:   nil,
	}
}

// AddFeed declares a feed with the OHLCV lines plus any extra numeric fields.
func (b *Builder) AddFeed(name string, extra ...string) *Builder {
	if b.err != nil {
		return b
	}

	if err := b.claim(name, errors.ErrCodeDuplicateFeed, "feed"); err != nil {
		b.err = err

		return b
	}

	b.feeds = append(b.feeds, feedDecl{name: name, extra: slices.Clone(extra)})

	return b
}

// AddNode declares a compute node bound to inputs.
func (b *Builder) AddNode(name string, kernel node.Kernel, inputs []Ref, opts ...NodeOption) *Builder {
	if b.err != nil {
		return b
	}

	if kernel == nil {
		b.err = errors.Newf(errors.ErrCodeMissingBinding, "node %s has no kernel", name)

		return b
	}

	if err := b.claim(name, errors.ErrCodeDuplicateNode, "node"); err != nil {
		b.err = err

		return b
	}

	decl := nodeDecl{name: name, kernel: kernel, inputs: slices.Clone(inputs), clock: nil}
	for _, opt := range opts {
		opt(&decl)
	}

	b.nodes = append(b.nodes, decl)

	return b
}

func (b *Builder) claim(name string, code errors.ErrorCode, what string) error {
	if name == "" {
		return errors.Newf(errors.ErrCodeInvalidParameter, "%s name is required", what)
	}

	if strings.ContainsAny(name, ":.") {
		return errors.Newf(errors.ErrCodeInvalidParameter, "%s name %q must not contain ':' or '.'", what, name)
	}

	if _, ok := b.names[name]; ok {
		return errors.Newf(code, "%s %q is already declared", what, name)
	}

	b.names[name] = struct{}{}

	return nil
}

// Build validates the declarations, orders the nodes, computes every
// node's minimum period and allocates the buffers.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}

	if err := b.cfg.Buffer.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidBufferMode, "invalid buffer configuration", err)
	}

	g := &Graph{
		cfg:       b.cfg,
		feedNames: make([]string, 0, len(b.feeds)),
		feeds:     make(map[string]*series.Lines, len(b.feeds)),
		nodes:     make([]*node.Node, 0, len(b.nodes)),
		index:     make(map[string]int, len(b.nodes)),
	}

	for _, f := range b.feeds {
		g.feedNames = append(g.feedNames, f.name)
		g.feeds[f.name] = series.NewLines(b.cfg.Buffer, f.extra...)
	}

	decls := make(map[string]nodeDecl, len(b.nodes))
	for _, d := range b.nodes {
		decls[d.name] = d
	}

	if err := b.checkBindings(g, decls); err != nil {
		return nil, err
	}

	order, err := b.sort()
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		n, err := b.bind(g, decls[name])
		if err != nil {
			return nil, err
		}

		g.index[name] = len(g.nodes)
		g.nodes = append(g.nodes, n)

		b.log.Debug("Node bound",
			zap.String("node", name),
			zap.String("kind", n.Kind()),
			zap.Int("minperiod", n.MinPeriod()),
			zap.Strings("clock", n.Clock()),
		)
	}

	if err := checkWindows(b.cfg.Buffer, g.nodes); err != nil {
		return nil, err
	}

	b.log.Debug("Graph built",
		zap.Int("feeds", len(g.feedNames)),
		zap.Int("nodes", len(g.nodes)),
	)

	return g, nil
}

func (b *Builder) checkBindings(g *Graph, decls map[string]nodeDecl) error {
	for _, d := range b.nodes {
		for _, ref := range d.inputs {
			if ref.IsFeed() {
				lines := g.feeds[ref.Feed]
				if lines == nil {
					return errors.Newf(errors.ErrCodeMissingBinding, "node %s reads unknown feed %q", d.name, ref.Feed)
				}

				if !lines.Has(ref.Line) {
					return errors.Newf(errors.ErrCodeMissingBinding, "node %s reads unknown line %s", d.name, ref)
				}

				continue
			}

			up, ok := decls[ref.Node]
			if !ok {
				return errors.Newf(errors.ErrCodeMissingBinding, "node %s reads unknown node %q", d.name, ref.Node)
			}

			if up.kernel.Descriptor().OutputIndex(ref.Output) < 0 {
				return errors.Newf(errors.ErrCodeUnknownOutput, "node %s reads unknown output %s", d.name, ref)
			}
		}

		for _, feed := range d.clock {
			if g.feeds[feed] == nil {
				return errors.Newf(errors.ErrCodeMissingBinding, "node %s is clocked by unknown feed %q", d.name, feed)
			}
		}
	}

	return nil
}

// checkWindows rejects a bounded buffer too short for a kernel's read
// window. Kernels read Lookback bars of input plus one bar back for the
// previous value.
func checkWindows(cfg series.Config, nodes []*node.Node) error {
	if cfg.Mode != series.ModeBounded {
		return nil
	}

	for _, n := range nodes {
		need := n.Kernel().Descriptor().Lookback + 1
		if cfg.MaxLen < need {
			return errors.Newf(errors.ErrCodeInvalidBufferMode,
				"node %s reads %d bars but bounded buffers keep %d", n.Name(), need, cfg.MaxLen)
		}
	}

	return nil
}

// sort orders node declarations with Kahn's algorithm. Ties keep
// declaration order so builds are deterministic.
func (b *Builder) sort() ([]string, error) {
	indegree := make(map[string]int, len(b.nodes))
	dependents := make(map[string][]string, len(b.nodes))

	for _, d := range b.nodes {
		deps := make(map[string]struct{})

		for _, ref := range d.inputs {
			if !ref.IsFeed() {
				deps[ref.Node] = struct{}{}
			}
		}

		indegree[d.name] = len(deps)
		for dep := range deps {
			dependents[dep] = append(dependents[dep], d.name)
		}
	}

	order := make([]string, 0, len(b.nodes))
	done := make(map[string]bool, len(b.nodes))

	for len(order) < len(b.nodes) {
		progressed := false

		for _, d := range b.nodes {
			if done[d.name] || indegree[d.name] > 0 {
				continue
			}

			done[d.name] = true
			order = append(order, d.name)
			progressed = true

			for _, dep := range dependents[d.name] {
				indegree[dep]--
			}

			break
		}

		if !progressed {
			var cycle []string

			for _, d := range b.nodes {
				if !done[d.name] {
					cycle = append(cycle, d.name)
				}
			}

			return nil, errors.Newf(errors.ErrCodeCyclicDependency, "dependency cycle among nodes %s", strings.Join(cycle, ", "))
		}
	}

	return order, nil
}

func (b *Builder) bind(g *Graph, d nodeDecl) (*node.Node, error) {
	inputs := make([]node.Input, 0, len(d.inputs))
	clock := make(map[string]struct{})

	for _, ref := range d.inputs {
		if ref.IsFeed() {
			inputs = append(inputs, node.Input{
				Label:  ref.String(),
				Reader: g.feeds[ref.Feed].Line(ref.Line),
				Feed:   ref.Feed,
				Source: nil,
			})
			clock[ref.Feed] = struct{}{}

			continue
		}

		up := g.Node(ref.Node)
		inputs = append(inputs, node.Input{
			Label:  ref.String(),
			Reader: up.Output(ref.Output),
			Feed:   "",
			Source: up,
		})

		for _, feed := range up.Clock() {
			clock[feed] = struct{}{}
		}
	}

	feeds := d.clock
	if len(feeds) == 0 {
		for _, name := range g.feedNames {
			if _, ok := clock[name]; ok {
				feeds = append(feeds, name)
			}
		}
	}

	return node.New(d.name, d.kernel, inputs, feeds, b.cfg.Buffer)
}
