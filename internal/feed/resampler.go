package feed

import (
	"maps"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// Resampler aggregates the bars of a finer feed into a coarser timeframe.
// Input bars are stamped at their close, so a bar closing exactly on a
// period boundary belongs to the period ending there. Each aggregated bar is
// stamped at its period close.
type Resampler struct {
	name     string
	src      Feed
	interval time.Duration
	pending  optional.Option[types.Bar]
}

// NewResampler creates a resampling feed over src.
func NewResampler(name string, src Feed, interval time.Duration) (*Resampler, error) {
	if interval <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "resample interval must be positive, got %s", interval)
	}

	return &Resampler{
		name:     name,
		src:      src,
		interval: interval,
		pending:  optional.None[types.Bar](),
	}, nil
}

// Name implements Feed.
func (r *Resampler) Name() string {
	return r.name
}

// HasNext implements Feed.
func (r *Resampler) HasNext() bool {
	return r.pending.IsSome() || r.src.HasNext()
}

// Advance implements Feed. It reads the source until a bar of the next
// period shows up and keeps that bar for the following call.
func (r *Resampler) Advance() (types.Bar, error) {
	var first types.Bar

	if r.pending.IsSome() {
		first = r.pending.Unwrap()
		r.pending = optional.None[types.Bar]()
	} else {
		bar, err := r.src.Advance()
		if err != nil {
			return types.Bar{}, err
		}

		first = bar
	}

	closeAt := r.periodClose(first.Time)
	agg := types.Bar{
		Symbol: first.Symbol,
		Time:   closeAt,
		Open:   first.Open,
		High:   first.High,
		Low:    first.Low,
		Close:  first.Close,
		Volume: first.Volume,
		Fields: maps.Clone(first.Fields),
	}

	for r.src.HasNext() {
		bar, err := r.src.Advance()
		if err != nil {
			return types.Bar{}, err
		}

		if !r.periodClose(bar.Time).Equal(closeAt) {
			r.pending = optional.Some(bar)

			break
		}

		agg.High = math.Max(agg.High, bar.High)
		agg.Low = math.Min(agg.Low, bar.Low)
		agg.Close = bar.Close
		agg.Volume += bar.Volume

		for k, v := range bar.Fields {
			if agg.Fields == nil {
				agg.Fields = make(map[string]float64)
			}

			agg.Fields[k] = v
		}
	}

	return agg, nil
}

func (r *Resampler) periodClose(t time.Time) time.Time {
	end := t.Truncate(r.interval)
	if end.Before(t) {
		end = end.Add(r.interval)
	}

	return end
}

// Close implements Closer.
func (r *Resampler) Close() error {
	return Close(r.src)
}
