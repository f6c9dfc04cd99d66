package clock

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/engine"
)

// TimerEvent is passed to a timer callback.
type TimerEvent struct {
	// Scheduled is the fire time the schedule asked for.
	Scheduled time.Time
	// Tick is the master tick on which the timer fired: the first tick at or
	// after Scheduled.
	Tick engine.Tick
}

// TimerFunc is called when a timer fires. A returned error aborts the run.
type TimerFunc func(ctx context.Context, event TimerEvent) error

type timer struct {
	schedule Schedule
	callback TimerFunc
	next     time.Time
}

// check fires the timer at most once for this tick. Fire times missed
// between two ticks collapse into one call.
func (t *timer) check(ctx context.Context, tick engine.Tick) error {
	if t.next.IsZero() {
		t.next = t.schedule.Next(tick.Time.Add(-time.Nanosecond))
	}

	if tick.Time.Before(t.next) {
		return nil
	}

	event := TimerEvent{Scheduled: t.next, Tick: tick}
	t.next = t.schedule.Next(tick.Time)

	return t.callback(ctx, event)
}

func (t *timer) reset() {
	t.next = time.Time{}
}
