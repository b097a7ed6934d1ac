// Package engine holds the pure calculators behind order execution: margin
// and leverage arithmetic, trigger evaluation, and currency-equivalence
// selection. Nothing in this package performs I/O; every output is
// deterministic in its inputs.
package engine

// FeeRate is the flat trading fee applied to notional value (0.1%).
const FeeRate = 0.001

// liquidationBuffer keeps the computed liquidation price 10% inside the
// theoretical exhaustion point.
const liquidationBuffer = 0.9

// Default leverage caps for instrument classes without a per-symbol
// configuration row.
const (
	DefaultMaxLeverageCrypto    = 50
	DefaultMaxLeverageCommodity = 100
)

// MarginPlan is the full margin/fee breakdown for a dual-position hedge at a
// given entry price and leverage.
type MarginPlan struct {
	Notional            float64
	Fee                 float64
	Leverage            int
	MarginPerPosition   float64
	TotalMarginRequired float64
	LongLiquidation     float64
	ShortLiquidation    float64
}

// EffectiveLeverage clamps the requested leverage to at least 1.
func EffectiveLeverage(requested int) int {
	if requested < 1 {
		return 1
	}
	return requested
}

// Notional is quantity times price.
func Notional(baseAmount, price float64) float64 {
	return baseAmount * price
}

// Fee applies the flat fee rate to a notional value.
func Fee(notional float64) float64 {
	return notional * FeeRate
}

// LiquidationPrices returns the symmetric long/short liquidation prices
// around an entry price for the given effective leverage.
func LiquidationPrices(entryPrice float64, leverage int) (long, short float64) {
	marginRatio := 1.0 / float64(leverage) * liquidationBuffer
	return entryPrice * (1.0 - marginRatio), entryPrice * (1.0 + marginRatio)
}

// HedgeMargin computes the margin plan for a dual-position hedge. The fee is
// split evenly across the pair; margin is charged per position and doubled
// because two positions open.
func HedgeMargin(baseAmount, executionPrice float64, requestedLeverage int) MarginPlan {
	leverage := EffectiveLeverage(requestedLeverage)
	notional := Notional(baseAmount, executionPrice)
	fee := Fee(notional)

	perPosition := notional/float64(leverage) + fee/2.0
	long, short := LiquidationPrices(executionPrice, leverage)

	return MarginPlan{
		Notional:            notional,
		Fee:                 fee,
		Leverage:            leverage,
		MarginPerPosition:   perPosition,
		TotalMarginRequired: perPosition * 2.0,
		LongLiquidation:     long,
		ShortLiquidation:    short,
	}
}
