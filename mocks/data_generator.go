package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-engine/internal/types"
)

// BarGenerator produces synthetic OHLCV bars for tests and benchmarks.
// Prices follow a geometric random walk.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator creates a generator. Equal seeds yield equal bars.
func NewBarGenerator(seed int64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig controls the generated series.
type GeneratorConfig struct {
	Symbol string
	// Start is the close time of the first bar.
	Start    time.Time
	Interval time.Duration
	Count    int
	// InitialPrice is the first open.
	InitialPrice float64
	// Volatility is the per-bar standard deviation of returns (0.002 = 0.2%).
	Volatility float64
	// Drift is the total return spread over Count bars.
	Drift          float64
	VolumeBase     float64
	VolumeVariance float64
	// SessionOnly skips bars closing outside 09:35-16:00 UTC on weekdays.
	SessionOnly bool
}

// DefaultConfig returns one-minute bars starting 2024-01-02 09:31 UTC.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		Start:          time.Date(2024, 1, 2, 9, 31, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Drift:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
		SessionOnly:    false,
	}
}

// Generate returns config.Count bars in strictly increasing time order.
func (g *BarGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, 0, config.Count)
	price := config.InitialPrice
	t := config.Start

	for len(bars) < config.Count {
		if config.SessionOnly && !inSession(t) {
			t = t.Add(config.Interval)

			continue
		}

		open := price

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		closePrice := open * (1 + config.Volatility*z + config.Drift/float64(config.Count))
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, closePrice) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars = append(bars, types.Bar{
			Symbol: config.Symbol,
			Time:   t,
			Open:   round(open, 4),
			High:   round(high, 4),
			Low:    round(low, 4),
			Close:  round(closePrice, 4),
			Volume: round(volume, 2),
			Fields: nil,
		})

		price = closePrice
		t = t.Add(config.Interval)
	}

	return bars
}

// Closes returns the close prices of bars.
func Closes(bars []types.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	return closes
}

// BarsFromCloses builds flat bars (open = high = low = close) one interval
// apart, starting at start.
func BarsFromCloses(symbol string, start time.Time, interval time.Duration, closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * interval),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1,
			Fields: nil,
		}
	}

	return bars
}

func inSession(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()

	return minutes >= 9*60+35 && minutes <= 16*60
}

func round(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
