// Package pricing computes sale totals. It is pure: the same lines always
// produce the same totals, and nothing here touches the store.
package pricing

import "github.com/shopspring/decimal"

// taxRate is the fixed 12% sales tax applied to every sale.
var taxRate = decimal.RequireFromString("0.12")

// Line is the minimal priced-quantity pair the engine needs. Cart lines and
// reservation-time item snapshots both map onto it.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int64
}

// Totals is derived, never cached: callers recompute it after every cart
// mutation so the displayed and persisted amounts cannot drift.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Compute sums the raw per-line amounts and rounds only at the end, half to
// even, two fractional digits. Per-line subtotals are not rounded before
// summation.
func Compute(lines []Line) Totals {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}

	subtotal := sum.RoundBank(2)
	tax := sum.Mul(taxRate).RoundBank(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// LineSubtotal is the amount persisted on a transaction item.
func LineSubtotal(unitPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}
