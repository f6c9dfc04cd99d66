// Package series implements the cursor-addressed time series buffers that
// hold every committed value in a run.
//
// Addressing is relative to the cursor: ago=0 is the current committed bar,
// ago=-1 the previous one. Reads outside the committed range return NaN (or
// the zero time for time lines) instead of failing, so "not warmed up yet"
// propagates as NaN through downstream computations.
package series

import (
	"math"
	"time"
)

// Buffer is a float64 series whose missing value is NaN.
type Buffer = Ring[float64]

// Times is the timestamp series that runs alongside a feed's lines.
type Times = Ring[time.Time]

// NewBuffer creates a float64 buffer.
func NewBuffer(cfg Config) *Buffer {
	return newRing(cfg, math.NaN())
}

// NewTimes creates a timestamp buffer.
func NewTimes(cfg Config) *Times {
	return newRing(cfg, time.Time{})
}

// Reader is the read-only view of a float series handed to downstream
// consumers. Only the producer holds the *Buffer.
type Reader interface {
	Get(ago int) float64
	GetSlice(ago, size int) []float64
	Len() int
}

// TimeReader is the read-only view of a timestamp series.
type TimeReader interface {
	Get(ago int) time.Time
	Len() int
}

// ReadOnly hides the mutating methods of a buffer behind Reader.
func ReadOnly(b *Buffer) Reader {
	return readOnly{b: b}
}

type readOnly struct {
	b *Buffer
}

func (r readOnly) Get(ago int) float64 {
	return r.b.Get(ago)
}

func (r readOnly) GetSlice(ago, size int) []float64 {
	return r.b.GetSlice(ago, size)
}

func (r readOnly) Len() int {
	return r.b.Len()
}

// Window copies the last period values ending at the cursor into dst and
// reports whether all of them are defined (non-NaN). dst must have length
// period.
func Window(r Reader, period int, dst []float64) bool {
	ok := true
	for i := 0; i < period; i++ {
		v := r.Get(-(period - 1 - i))
		dst[i] = v

		if math.IsNaN(v) {
			ok = false
		}
	}

	return ok
}
