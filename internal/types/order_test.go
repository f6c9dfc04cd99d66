package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) intent() OrderIntent {
	return OrderIntent{
		ID:       uuid.New().String(),
		Strategy: "sma_cross",
		Symbol:   "AAPL",
		Side:     SideBuy,
		Type:     OrderTypeMarket,
		Size:     decimal.NewFromInt(10),
		Time:     time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC),
		Bar:      20,
	}
}

func (suite *OrderTestSuite) TestValidMarketIntent() {
	o := suite.intent()
	suite.NoError(o.Validate())
}

func (suite *OrderTestSuite) TestLimitRequiresPrice() {
	o := suite.intent()
	o.Type = OrderTypeLimit
	err := o.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeIntentRejected))

	o.Price = decimal.RequireFromString("101.25")
	suite.NoError(o.Validate())
}

func (suite *OrderTestSuite) TestSizeMustBePositive() {
	o := suite.intent()
	o.Size = decimal.Zero
	suite.Error(o.Validate())
}

func (suite *OrderTestSuite) TestInvalidSide() {
	o := suite.intent()
	o.Side = "HOLD"
	suite.Error(o.Validate())
}

func (suite *OrderTestSuite) TestMissingID() {
	o := suite.intent()
	o.ID = ""
	suite.Error(o.Validate())
}
