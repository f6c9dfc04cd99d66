package indicator

import (
	"github.com/rxtech-lab/argo-engine/internal/graph"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// MACDParams configures a moving average convergence divergence group.
type MACDParams struct {
	Fast   int `yaml:"fast" json:"fast" jsonschema:"title=Fast period,minimum=1,default=12" validate:"required,gte=1"`
	Slow   int `yaml:"slow" json:"slow" jsonschema:"title=Slow period,minimum=1,default=26" validate:"required,gtfield=Fast"`
	Signal int `yaml:"signal" json:"signal" jsonschema:"title=Signal period,minimum=1,default=9" validate:"required,gte=1"`
}

// DefaultMACDParams returns the classic 12/26/9 configuration.
func DefaultMACDParams() MACDParams {
	return MACDParams{Fast: 12, Slow: 26, Signal: 9}
}

// MACDNodes names the nodes AddMACD declares.
type MACDNodes struct {
	Fast      string
	Slow      string
	Line      string
	Signal    string
	Histogram string
}

// AddMACD declares MACD as a small subgraph of EMA and Diff nodes:
// name is the MACD line, name_signal its EMA and name_hist their difference.
func AddMACD(b *graph.Builder, name string, src graph.Ref, params MACDParams) (MACDNodes, error) {
	nodes := MACDNodes{
		Fast:      name + "_fast",
		Slow:      name + "_slow",
		Line:      name,
		Signal:    name + "_signal",
		Histogram: name + "_hist",
	}

	if err := validateParams(params); err != nil {
		return nodes, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "macd %s", name)
	}

	fast, err := NewEMA(EMAParams{Period: params.Fast})
	if err != nil {
		return nodes, err
	}

	slow, err := NewEMA(EMAParams{Period: params.Slow})
	if err != nil {
		return nodes, err
	}

	signal, err := NewEMA(EMAParams{Period: params.Signal})
	if err != nil {
		return nodes, err
	}

	b.AddNode(nodes.Fast, fast, []graph.Ref{src}).
		AddNode(nodes.Slow, slow, []graph.Ref{src}).
		AddNode(nodes.Line, &Diff{}, []graph.Ref{graph.Value(nodes.Fast), graph.Value(nodes.Slow)}).
		AddNode(nodes.Signal, signal, []graph.Ref{graph.Value(nodes.Line)}).
		AddNode(nodes.Histogram, &Diff{}, []graph.Ref{graph.Value(nodes.Line), graph.Value(nodes.Signal)})

	return nodes, nil
}

// DeclareMACD is AddMACD for a loosely typed params map. Missing params
// take the 12/26/9 defaults.
func DeclareMACD(b *graph.Builder, name string, src graph.Ref, params map[string]any) (MACDNodes, error) {
	p := DefaultMACDParams()
	if err := decodeParams(params, &p); err != nil {
		return MACDNodes{Line: name}, errors.Wrapf(errors.GetCode(err), err, "macd %s", name)
	}

	return AddMACD(b, name, src, p)
}
