package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type PhaseTestSuite struct {
	suite.Suite
}

func TestPhaseSuite(t *testing.T) {
	suite.Run(t, new(PhaseTestSuite))
}

func (suite *PhaseTestSuite) TestString() {
	suite.Equal("warmup", PhaseWarmup.String())
	suite.Equal("transition", PhaseTransition.String())
	suite.Equal("steady", PhaseSteady.String())
	suite.Equal("unknown", Phase(9).String())
}

func (suite *PhaseTestSuite) TestAdvancing() {
	suite.False(PhaseWarmup.Advancing())
	suite.True(PhaseTransition.Advancing())
	suite.True(PhaseSteady.Advancing())
}
