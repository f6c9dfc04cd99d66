package series

import (
	"slices"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/types"
)

// Lines is the set of buffers owned by one feed: one per named field plus
// the timestamp series. All buffers move together.
type Lines struct {
	names   []string
	buffers map[string]*Buffer
	times   *Times
}

// NewLines creates the OHLCV lines plus any extra named fields.
func NewLines(cfg Config, extra ...string) *Lines {
	names := slices.Clone(types.StandardLines)
	for _, name := range extra {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	buffers := make(map[string]*Buffer, len(names))
	for _, name := range names {
		buffers[name] = NewBuffer(cfg)
	}

	return &Lines{
		names:   names,
		buffers: buffers,
		times:   NewTimes(cfg),
	}
}

// Names returns the line names in storage order.
func (l *Lines) Names() []string {
	return slices.Clone(l.names)
}

// Has reports whether a line with this name exists.
func (l *Lines) Has(name string) bool {
	_, ok := l.buffers[name]

	return ok
}

// Line returns a read-only view of the named line, or nil if it does not exist.
func (l *Lines) Line(name string) Reader {
	b, ok := l.buffers[name]
	if !ok {
		return nil
	}

	return ReadOnly(b)
}

// Times returns the timestamp series.
func (l *Lines) Times() TimeReader {
	return l.times
}

// Time returns the timestamp of the current bar.
func (l *Lines) Time() time.Time {
	return l.times.Get(0)
}

// Len returns the number of committed bars.
func (l *Lines) Len() int {
	return l.times.Len()
}

// BufLen returns the number of stored bars.
func (l *Lines) BufLen() int {
	return l.times.BufLen()
}

// ForwardBar commits one bar across every line.
func (l *Lines) ForwardBar(bar types.Bar) {
	for _, name := range l.names {
		l.buffers[name].Forward(bar.Value(name))
	}

	l.times.Forward(bar.Time)
}

// Bar rebuilds the bar ago positions from the cursor.
func (l *Lines) Bar(ago int) types.Bar {
	bar := types.Bar{
		Symbol: "",
		Time:   l.times.Get(ago),
		Open:   l.buffers[types.LineOpen].Get(ago),
		High:   l.buffers[types.LineHigh].Get(ago),
		Low:    l.buffers[types.LineLow].Get(ago),
		Close:  l.buffers[types.LineClose].Get(ago),
		Volume: l.buffers[types.LineVolume].Get(ago),
		Fields: nil,
	}

	for _, name := range l.names[len(types.StandardLines):] {
		if bar.Fields == nil {
			bar.Fields = make(map[string]float64)
		}

		bar.Fields[name] = l.buffers[name].Get(ago)
	}

	return bar
}

// Advance moves every line forward n bars over stored data.
func (l *Lines) Advance(n int) {
	for _, b := range l.buffers {
		b.Advance(n)
	}

	l.times.Advance(n)
}

// Rewind moves every line back n bars.
func (l *Lines) Rewind(n int) {
	for _, b := range l.buffers {
		b.Rewind(n)
	}

	l.times.Rewind(n)
}

// Home moves every line before its first value.
func (l *Lines) Home() {
	for _, b := range l.buffers {
		b.Home()
	}

	l.times.Home()
}

// Backwards discards the newest n stored bars.
func (l *Lines) Backwards(n int) {
	for _, b := range l.buffers {
		b.Backwards(n)
	}

	l.times.Backwards(n)
}

// Reset drops all stored bars.
func (l *Lines) Reset() {
	for _, b := range l.buffers {
		b.Reset()
	}

	l.times.Reset()
}
