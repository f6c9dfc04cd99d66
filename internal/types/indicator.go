package types

type IndicatorType string

const (
	IndicatorTypeMA             IndicatorType = "ma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeATR            IndicatorType = "atr"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeCrossOver      IndicatorType = "crossover"
	IndicatorTypeDiff           IndicatorType = "diff"
)
