package service

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DemandQuantity = round(totalQty × usage × (1 + waste/100), 2)
func DemandQuantity(totalQty, usage, wastePercent float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(wastePercent).Div(hundred))
	d := decimal.NewFromFloat(totalQty).
		Mul(decimal.NewFromFloat(usage)).
		Mul(factor).
		Round(2)
	return d.InexactFloat64()
}

// PurchaseQuantity = max(demand − inventory, 0)
func PurchaseQuantity(demand, inventory float64) float64 {
	d := decimal.NewFromFloat(demand).Sub(decimal.NewFromFloat(inventory))
	if d.IsNegative() {
		return 0
	}
	return d.Round(2).InexactFloat64()
}

// LineAmount = round(quantity × price × (1 + tax/100), 2)
func LineAmount(quantity, unitPrice, taxRate float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(taxRate).Div(hundred))
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(unitPrice)).
		Mul(factor).
		Round(2).
		InexactFloat64()
}

func sumAmounts(amounts []float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}
