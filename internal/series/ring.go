package series

import (
	"fmt"
)

// Mode selects how a buffer stores its history.
type Mode string

const (
	// ModeUnbounded keeps every committed value. Required for batch runs and replay.
	ModeUnbounded Mode = "unbounded"
	// ModeBounded keeps the newest MaxLen values in a circular array.
	ModeBounded Mode = "bounded"
)

// Config describes the storage of a buffer. It is built once per graph build.
type Config struct {
	Mode   Mode `yaml:"mode" json:"mode" validate:"omitempty,oneof=unbounded bounded"`
	MaxLen int  `yaml:"max_len" json:"max_len" validate:"gte=0"`
}

// DefaultConfig returns an unbounded configuration.
func DefaultConfig() Config {
	return Config{Mode: ModeUnbounded, MaxLen: 0}
}

// Validate checks that a bounded configuration has room for at least one value.
func (c Config) Validate() error {
	switch c.Mode {
	case "", ModeUnbounded:
		return nil
	case ModeBounded:
		if c.MaxLen < 1 {
			return fmt.Errorf("bounded buffer requires max_len >= 1, got %d", c.MaxLen)
		}

		return nil
	default:
		return fmt.Errorf("unknown buffer mode %q", c.Mode)
	}
}

// Ring is a cursor-addressed series of T.
//
// Slots are addressed by an absolute logical index that keeps counting when a
// bounded ring evicts its oldest values. The cursor idx points at the current
// committed slot and lencount is the number of committed slots visible behind
// it. Reads outside [idx-lencount+1, idx] or outside the stored window return
// the missing sentinel.
type Ring[T any] struct {
	mode    Mode
	maxlen  int
	missing T

	data   []T
	head   int // physical position of the oldest stored slot (bounded)
	size   int // stored slots
	offset int // logical index of the oldest stored slot

	idx      int
	lencount int
}

func newRing[T any](cfg Config, missing T) *Ring[T] {
	r := &Ring[T]{
		mode:     cfg.Mode,
		maxlen:   cfg.MaxLen,
		missing:  missing,
		data:     nil,
		head:     0,
		size:     0,
		offset:   0,
		idx:      -1,
		lencount: 0,
	}

	if r.mode == "" {
		r.mode = ModeUnbounded
	}

	if r.mode == ModeBounded {
		if r.maxlen < 1 {
			r.maxlen = 1
		}

		r.data = make([]T, r.maxlen)
	}

	return r
}

// Mode returns the storage mode.
func (r *Ring[T]) Mode() Mode {
	return r.mode
}

// Len returns the number of committed values visible from the cursor.
func (r *Ring[T]) Len() int {
	return r.lencount
}

// BufLen returns the number of stored values, including those past the cursor.
func (r *Ring[T]) BufLen() int {
	return r.size
}

// Idx returns the absolute logical index of the cursor, -1 before the first commit.
func (r *Ring[T]) Idx() int {
	return r.idx
}

func (r *Ring[T]) end() int {
	return r.offset + r.size
}

func (r *Ring[T]) physical(k int) int {
	if r.mode == ModeBounded {
		return (r.head + k - r.offset) % r.maxlen
	}

	return k
}

func (r *Ring[T]) readable(k int) bool {
	return k >= r.offset && k < r.end() && k <= r.idx && r.idx-k < r.lencount
}

func (r *Ring[T]) push(v T) {
	if r.mode != ModeBounded {
		r.data = append(r.data, v)
		r.size++

		return
	}

	if r.size < r.maxlen {
		r.data[(r.head+r.size)%r.maxlen] = v
		r.size++

		return
	}

	r.data[r.head] = v
	r.head = (r.head + 1) % r.maxlen
	r.offset++
}

// Forward commits v as the next value and moves the cursor onto it.
// When the slot already holds data from an earlier pass it is overwritten.
func (r *Ring[T]) Forward(v T) {
	next := r.idx + 1
	switch {
	case next >= r.offset && next < r.end():
		r.data[r.physical(next)] = v
	case next == r.end():
		r.push(v)
	default:
		// cursor sits before an evicted region: restart the window here
		r.resetStorage(next)
		r.push(v)
	}

	r.idx = next
	r.lencount++
}

func (r *Ring[T]) resetStorage(offset int) {
	if r.mode == ModeBounded {
		clear(r.data)
	} else {
		r.data = r.data[:0]
	}

	r.head = 0
	r.size = 0
	r.offset = offset
}

// Get returns the value ago bars from the cursor; ago=0 is the current bar and
// negative values reach into the past.
func (r *Ring[T]) Get(ago int) T {
	if ago > 0 {
		return r.missing
	}

	k := r.idx + ago
	if !r.readable(k) {
		return r.missing
	}

	return r.data[r.physical(k)]
}

// Set overwrites the committed value ago bars from the cursor. It reports
// false and writes nothing when ago is outside the committed range.
func (r *Ring[T]) Set(ago int, v T) bool {
	if ago > 0 {
		return false
	}

	k := r.idx + ago
	if !r.readable(k) {
		return false
	}

	r.data[r.physical(k)] = v

	return true
}

// GetSlice returns size values ending at ago, oldest first, padding unreadable
// positions with the missing sentinel.
func (r *Ring[T]) GetSlice(ago, size int) []T {
	if size <= 0 {
		return nil
	}

	out := make([]T, size)
	for i := 0; i < size; i++ {
		out[i] = r.Get(ago - (size - 1 - i))
	}

	return out
}

// Values returns every committed value visible from the cursor, oldest first.
func (r *Ring[T]) Values() []T {
	first := max(r.idx-r.lencount+1, r.offset)
	if r.idx < first {
		return []T{}
	}

	out := make([]T, 0, r.idx-first+1)
	for k := first; k <= r.idx; k++ {
		out = append(out, r.data[r.physical(k)])
	}

	return out
}

// Rewind moves the cursor back n bars. Stored data is kept so a later
// Advance or Forward can revisit it.
func (r *Ring[T]) Rewind(n int) {
	n = min(max(n, 0), r.lencount)
	r.idx -= n
	r.lencount -= n
}

// Advance moves the cursor forward n bars over data that is already stored.
// It stops at the last stored slot.
func (r *Ring[T]) Advance(n int) {
	n = min(max(n, 0), r.end()-1-r.idx)
	r.idx += n
	r.lencount += n
}

// Home moves the cursor before the first retained value without touching data.
func (r *Ring[T]) Home() {
	r.idx = r.offset - 1
	r.lencount = 0
}

// Extend stores n copies of v past the end of the buffer without moving the
// cursor. Batch runs use it to size output arrays before the pass.
func (r *Ring[T]) Extend(v T, n int) {
	for i := 0; i < n; i++ {
		r.push(v)
	}
}

// Backwards discards the newest n stored values. If the cursor pointed into
// the discarded region it moves back with it.
func (r *Ring[T]) Backwards(n int) {
	n = min(max(n, 0), r.size)
	r.size -= n

	if r.mode != ModeBounded {
		r.data = r.data[:r.size]
	}

	if last := r.end() - 1; r.idx > last {
		drop := r.idx - last
		r.idx = last
		r.lencount = max(r.lencount-drop, 0)
	}
}

// Reset drops all data and returns the ring to its initial state.
func (r *Ring[T]) Reset() {
	r.resetStorage(0)
	r.idx = -1
	r.lencount = 0
}
