package graph

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/argo-engine/internal/types"
)

// Ref names an input binding: either a feed line or a node output.
type Ref struct {
	Feed   string `yaml:"feed,omitempty" json:"feed,omitempty"`
	Line   string `yaml:"line,omitempty" json:"line,omitempty"`
	Node   string `yaml:"node,omitempty" json:"node,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Line references a named line of a feed.
func Line(feed, line string) Ref {
	return Ref{Feed: feed, Line: line, Node: "", Output: ""}
}

// Close references the close line of a feed.
func Close(feed string) Ref {
	return Line(feed, types.LineClose)
}

// High references the high line of a feed.
func High(feed string) Ref {
	return Line(feed, types.LineHigh)
}

// Low references the low line of a feed.
func Low(feed string) Ref {
	return Line(feed, types.LineLow)
}

// Output references a named output of a node.
func Output(node, output string) Ref {
	return Ref{Feed: "", Line: "", Node: node, Output: output}
}

// Value references the "value" output of a single-output node.
func Value(node string) Ref {
	return Output(node, "value")
}

// IsFeed reports whether the reference points at a feed line.
func (r Ref) IsFeed() bool {
	return r.Feed != ""
}

// ParseRef parses "feed:line" or "node.output". A bare name is the "value"
// output of a node.
func ParseRef(s string) (Ref, error) {
	if feed, line, ok := strings.Cut(s, ":"); ok {
		if feed == "" || line == "" {
			return Ref{}, fmt.Errorf("invalid feed reference %q", s)
		}

		return Line(feed, line), nil
	}

	if s == "" {
		return Ref{}, fmt.Errorf("empty reference")
	}

	if node, output, ok := strings.Cut(s, "."); ok {
		if node == "" || output == "" {
			return Ref{}, fmt.Errorf("invalid node reference %q", s)
		}

		return Output(node, output), nil
	}

	return Value(s), nil
}

func (r Ref) String() string {
	if r.IsFeed() {
		return r.Feed + ":" + r.Line
	}

	return r.Node + "." + r.Output
}
