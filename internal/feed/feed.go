// Package feed defines the pull interface the clock coordinator reads bars
// through, plus in-memory, resampling and DuckDB-backed implementations.
package feed

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-engine/internal/types"
)

// Feed is a source of timestamped bars in strictly increasing time order.
// Exhaustion is reported by HasNext, never as an error.
type Feed interface {
	// Name identifies the feed inside a graph.
	Name() string
	// HasNext reports whether Advance will yield another bar.
	HasNext() bool
	// Advance returns the next bar.
	Advance() (types.Bar, error)
}

// Closer is implemented by feeds holding external resources.
type Closer interface {
	Close() error
}

// Close closes f if it holds resources.
func Close(f Feed) error {
	if c, ok := f.(Closer); ok {
		return c.Close()
	}

	return nil
}

// SliceFeed serves bars from memory.
type SliceFeed struct {
	name string
	bars []types.Bar
	pos  int
}

// NewSliceFeed creates an in-memory feed. The slice is not copied.
func NewSliceFeed(name string, bars []types.Bar) *SliceFeed {
	return &SliceFeed{
		name: name,
		bars: bars,
		pos:  0,
	}
}

// Name implements Feed.
func (f *SliceFeed) Name() string {
	return f.name
}

// HasNext implements Feed.
func (f *SliceFeed) HasNext() bool {
	return f.pos < len(f.bars)
}

// Advance implements Feed.
func (f *SliceFeed) Advance() (types.Bar, error) {
	if !f.HasNext() {
		return types.Bar{}, errExhausted(f.name)
	}

	bar := f.bars[f.pos]
	f.pos++

	return bar, nil
}

// Len returns the total number of bars.
func (f *SliceFeed) Len() int {
	return len(f.bars)
}

// Rewind restarts the feed from its first bar.
func (f *SliceFeed) Rewind() {
	f.pos = 0
}

// Between wraps f so that only bars with start <= time <= end are served.
// Unset bounds are open.
func Between(f Feed, start optional.Option[time.Time], end optional.Option[time.Time]) Feed {
	if start.IsNone() && end.IsNone() {
		return f
	}

	return &window{
		src:     f,
		start:   start,
		end:     end,
		pending: optional.None[types.Bar](),
		err:     nil,
		done:    false,
	}
}

type window struct {
	src     Feed
	start   optional.Option[time.Time]
	end     optional.Option[time.Time]
	pending optional.Option[types.Bar]
	err     error
	done    bool
}

func (w *window) Name() string {
	return w.src.Name()
}

// fill reads ahead to the next bar inside the window.
func (w *window) fill() {
	for w.pending.IsNone() && w.err == nil && !w.done && w.src.HasNext() {
		bar, err := w.src.Advance()
		if err != nil {
			w.err = err

			return
		}

		if w.start.IsSome() && bar.Time.Before(w.start.Unwrap()) {
			continue
		}

		if w.end.IsSome() && bar.Time.After(w.end.Unwrap()) {
			w.done = true

			return
		}

		w.pending = optional.Some(bar)
	}
}

func (w *window) HasNext() bool {
	w.fill()

	return w.pending.IsSome() || w.err != nil
}

func (w *window) Advance() (types.Bar, error) {
	w.fill()

	if w.err != nil {
		err := w.err
		w.err = nil
		w.done = true

		return types.Bar{}, err
	}

	if w.pending.IsNone() {
		return types.Bar{}, errExhausted(w.src.Name())
	}

	bar := w.pending.Unwrap()
	w.pending = optional.None[types.Bar]()

	return bar, nil
}

func (w *window) Close() error {
	return Close(w.src)
}
