package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// OrderIntent is what a strategy node asks the broker to do.
// The engine stamps ID, Strategy, Time and Bar before forwarding; it never
// validates or executes the intent itself.
type OrderIntent struct {
	ID       string          `yaml:"id" json:"id" validate:"required,uuid"`
	Strategy string          `yaml:"strategy" json:"strategy" validate:"required"`
	Symbol   string          `yaml:"symbol" json:"symbol"`
	Side     Side            `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type     OrderType       `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT STOP"`
	Size     decimal.Decimal `yaml:"size" json:"size"`
	// Price is zero for market orders.
	Price decimal.Decimal `yaml:"price" json:"price"`
	Time  time.Time       `yaml:"time" json:"time" validate:"required"`
	// Bar is the strategy's own 0-based bar index when the intent was emitted.
	Bar    int    `yaml:"bar" json:"bar"`
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Validate is offered to broker implementations; the engine does not call it.
func (o *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeIntentRejected, "invalid order intent", err)
	}

	if !o.Size.IsPositive() {
		return errors.Newf(errors.ErrCodeIntentRejected, "order size must be positive, got %s", o.Size)
	}

	if o.Type != OrderTypeMarket && !o.Price.IsPositive() {
		return errors.Newf(errors.ErrCodeIntentRejected, "%s order requires a positive price", o.Type)
	}

	return nil
}
