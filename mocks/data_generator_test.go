package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarGeneratorTestSuite struct {
	suite.Suite
}

func TestBarGeneratorSuite(t *testing.T) {
	suite.Run(t, new(BarGeneratorTestSuite))
}

func (suite *BarGeneratorTestSuite) TestGenerate() {
	config := DefaultConfig()
	config.Count = 100

	bars := NewBarGenerator(42).Generate(config)
	suite.Len(bars, 100)

	for i, b := range bars {
		suite.Equal(config.Symbol, b.Symbol)
		suite.Greater(b.Low, 0.0, "bar %d", i)
		suite.GreaterOrEqual(b.High, b.Low, "bar %d", i)
		suite.NoError(b.Validate(), "bar %d", i)

		if i > 0 {
			suite.Equal(config.Interval, b.Time.Sub(bars[i-1].Time), "bar %d", i)
		}
	}
}

func (suite *BarGeneratorTestSuite) TestReproducible() {
	config := DefaultConfig()
	config.Count = 50

	suite.Equal(NewBarGenerator(7).Generate(config), NewBarGenerator(7).Generate(config))
	suite.NotEqual(Closes(NewBarGenerator(7).Generate(config)), Closes(NewBarGenerator(8).Generate(config)))
}

func (suite *BarGeneratorTestSuite) TestSessionOnly() {
	config := DefaultConfig()
	config.Interval = 5 * time.Minute
	config.Start = time.Date(2024, 1, 5, 15, 50, 0, 0, time.UTC) // Friday
	config.Count = 4
	config.SessionOnly = true

	bars := NewBarGenerator(1).Generate(config)
	suite.Len(bars, 4)
	suite.Equal(time.Date(2024, 1, 5, 15, 50, 0, 0, time.UTC), bars[0].Time)
	suite.Equal(time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC), bars[2].Time)
	suite.Equal(time.Date(2024, 1, 8, 9, 35, 0, 0, time.UTC), bars[3].Time)
}

func (suite *BarGeneratorTestSuite) TestBarsFromCloses() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := BarsFromCloses("X", start, time.Hour, 1, 2, 3)

	suite.Len(bars, 3)
	suite.Equal(start.Add(2*time.Hour), bars[2].Time)
	suite.Equal([]float64{1, 2, 3}, Closes(bars))
}
