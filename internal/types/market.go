package types

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// Standard line names carried by every feed.
const (
	LineOpen   = "open"
	LineHigh   = "high"
	LineLow    = "low"
	LineClose  = "close"
	LineVolume = "volume"
)

// StandardLines lists the OHLCV lines in storage order.
var StandardLines = []string{LineOpen, LineHigh, LineLow, LineClose, LineVolume}

// Bar is one timestamped record delivered by a feed.
// Time is the bar close; a daily bar is stamped at the end of its session.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol"`
	Time   time.Time `yaml:"time" json:"time" validate:"required"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Volume float64   `yaml:"volume" json:"volume" validate:"gte=0"`
	// Fields holds extra numeric columns (open interest, funding rate, ...).
	Fields map[string]float64 `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Value returns the named line value. Unknown names return NaN.
func (b Bar) Value(line string) float64 {
	switch line {
	case LineOpen:
		return b.Open
	case LineHigh:
		return b.High
	case LineLow:
		return b.Low
	case LineClose:
		return b.Close
	case LineVolume:
		return b.Volume
	}

	if v, ok := b.Fields[line]; ok {
		return v
	}

	return math.NaN()
}

// Validate checks a bar for the malformed-input class of data faults.
func (b Bar) Validate() error {
	validate := validator.New()
	if err := validate.Struct(b); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedBar, "invalid bar", err)
	}

	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeMalformedBar, "bar %s at %s has a non-finite price", b.Symbol, b.Time)
		}
	}

	if b.High < b.Low {
		return errors.Newf(errors.ErrCodeMalformedBar, "bar %s at %s has high %.6f below low %.6f", b.Symbol, b.Time, b.High, b.Low)
	}

	return nil
}
