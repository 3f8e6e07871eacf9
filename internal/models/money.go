package models

import (
	"github.com/shopspring/decimal"
)

// Amounts are emitted as JSON numbers rather than quoted strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary value to two decimal places, half away from zero
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PercentOf returns amount * percent / 100 without rounding
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}
