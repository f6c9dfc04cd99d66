package backtest

import (
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-engine/internal/indicator"
	"github.com/rxtech-lab/argo-engine/internal/strategy"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/schema"
)

// ParamsSchemas returns the params schema of every built-in node and
// strategy kind, keyed by kind.
func ParamsSchemas() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		string(types.IndicatorTypeMA):             schema.Reflect(indicator.SMAParams{}),
		string(types.IndicatorTypeEMA):            schema.Reflect(indicator.EMAParams{}),
		string(types.IndicatorTypeRSI):            schema.Reflect(indicator.RSIParams{}),
		string(types.IndicatorTypeATR):            schema.Reflect(indicator.ATRParams{}),
		string(types.IndicatorTypeBollingerBands): schema.Reflect(indicator.BollingerBandsParams{}),
		string(types.IndicatorTypeCrossOver):      schema.Reflect(indicator.CrossOverParams{}),
		string(types.IndicatorTypeDiff):           schema.Reflect(indicator.DiffParams{}),
		string(types.IndicatorTypeMACD):           schema.Reflect(indicator.MACDParams{}),
		"sma_cross":                               schema.Reflect(strategy.SMACrossParams{}),
	}
}
