// Package pricing computes jewellery line prices from weight, metal rate,
// wastage, making charge and GST.
package pricing

import (
	"github.com/shopspring/decimal"

	"jewellery-billing-api/internal/models"
)

// LineItemCalculation is the price breakdown of one bill line. Every amount
// is rounded to two decimals before it feeds the next stage.
type LineItemCalculation struct {
	Rate          decimal.Decimal `json:"rate"`
	MetalPrice    decimal.Decimal `json:"metal_price"`
	WastageAmount decimal.Decimal `json:"wastage_amount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	GSTAmount     decimal.Decimal `json:"gst_amount"`
	Total         decimal.Decimal `json:"total"`
}

// PriceLine prices quantity units of an item weighing weight at rate.
// makingCharge is per unit. Callers reject invalid inputs beforehand.
func PriceLine(weight, rate, wastagePercent, makingCharge, gstPercent decimal.Decimal, quantity int) LineItemCalculation {
	qty := decimal.NewFromInt(int64(quantity))

	metalPrice := models.Round2(weight.Mul(rate).Mul(qty))
	wastageAmount := models.Round2(models.PercentOf(metalPrice, wastagePercent))
	subtotal := models.Round2(metalPrice.Add(wastageAmount).Add(makingCharge.Mul(qty)))
	gstAmount := models.Round2(models.PercentOf(subtotal, gstPercent))
	total := models.Round2(subtotal.Add(gstAmount))

	return LineItemCalculation{
		Rate:          rate,
		MetalPrice:    metalPrice,
		WastageAmount: wastageAmount,
		Subtotal:      subtotal,
		GSTAmount:     gstAmount,
		Total:         total,
	}
}
