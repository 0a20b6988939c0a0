package market

import "github.com/shopspring/decimal"

// CountDecimals returns the number of decimal places of an increment, e.g.
// 0.001 -> 3, 2 -> 0. Used to derive the publish precision from MarketRules.
func CountDecimals(v float64) int {
	d := decimal.NewFromFloat(v)
	if d.Exponent() >= 0 {
		return 0
	}
	return int(-d.Exponent())
}

// RoundTo rounds v to the given number of decimal places, half away from zero.
func RoundTo(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}

// RoundToIncrement rounds v to the decimal precision implied by increment.
// Formatting a value this way and parsing it back stays within one unit of
// the increment.
func RoundToIncrement(v, increment float64) float64 {
	return RoundTo(v, CountDecimals(increment))
}
