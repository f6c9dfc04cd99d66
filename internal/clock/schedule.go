package clock

import (
	"fmt"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// Schedule decides when a timer fires.
type Schedule interface {
	// Next returns the first fire time strictly after t.
	Next(t time.Time) time.Time
	String() string
}

type every struct {
	interval time.Duration
}

// Every fires on each multiple of d (aligned to the zero time, so Every(time.Hour)
// fires on the hour).
func Every(d time.Duration) (Schedule, error) {
	if d <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidSchedule, "interval must be positive, got %s", d)
	}

	return every{interval: d}, nil
}

func (e every) Next(t time.Time) time.Time {
	return t.Truncate(e.interval).Add(e.interval)
}

func (e every) String() string {
	return "every " + e.interval.String()
}

type dailyAt struct {
	hour     int
	minute   int
	weekdays []time.Weekday
}

// DailyAt fires at hour:minute in the tick's location, on the given weekdays
// or every day when none are given.
func DailyAt(hour, minute int, weekdays ...time.Weekday) (Schedule, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, errors.Newf(errors.ErrCodeInvalidSchedule, "invalid time of day %02d:%02d", hour, minute)
	}

	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, errors.Newf(errors.ErrCodeInvalidSchedule, "invalid weekday %d", wd)
		}
	}

	return dailyAt{hour: hour, minute: minute, weekdays: slices.Clone(weekdays)}, nil
}

func (d dailyAt) allowed(wd time.Weekday) bool {
	return len(d.weekdays) == 0 || slices.Contains(d.weekdays, wd)
}

func (d dailyAt) Next(t time.Time) time.Time {
	candidate := time.Date(t.Year(), t.Month(), t.Day(), d.hour, d.minute, 0, 0, t.Location())
	if !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	for i := 0; i < 7 && !d.allowed(candidate.Weekday()); i++ {
		candidate = candidate.AddDate(0, 0, 1)
	}

	return candidate
}

func (d dailyAt) String() string {
	if len(d.weekdays) == 0 {
		return fmt.Sprintf("daily at %02d:%02d", d.hour, d.minute)
	}

	return fmt.Sprintf("daily at %02d:%02d on %v", d.hour, d.minute, d.weekdays)
}
