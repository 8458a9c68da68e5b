package invoice

import (
	"github.com/amoylab/cleanbill/internal/apiserver/database"

	"github.com/shopspring/decimal"
)

// LineTotal is quantity times unit price, rounded to cents
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

func Subtotal(items []database.InvoiceItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	return sum
}

// Total is subtotal - discount + tax. It may go negative unless clamp is set.
func Total(subtotal, discount, tax decimal.Decimal, clamp bool) decimal.Decimal {
	total := subtotal.Sub(discount).Add(tax)
	if clamp && total.IsNegative() {
		return decimal.Zero
	}
	return total
}
