// Package money holds the whole-unit arithmetic used for order totals.
// Amounts are int64 counts of the smallest whole currency unit.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percentage returns round(amount * percent / 100), rounding halves away from zero.
func Percentage(amount int64, percent int) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(hundred).
		Round(0).
		IntPart()
}

// ToCents converts a whole-unit amount into the gateway's cent representation.
func ToCents(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(hundred).Round(0).IntPart()
}
