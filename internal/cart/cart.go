// Package cart holds the per-session, in-memory selection of products
// awaiting checkout. A cart belongs to exactly one session and is never
// persisted; it needs no internal locking.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/techstore/pos/internal/domain"
	"github.com/techstore/pos/internal/pricing"
)

// Line is one cart entry. UnitPrice is a snapshot of the catalog price at
// add time; the commit takes fresh snapshots before persisting.
type Line struct {
	ProductID int64
	Name      string
	Barcode   string
	UnitPrice decimal.Decimal
	Quantity  int64
}

// Cart keeps lines in insertion order, unique by product id.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add merges into an existing line for the same product or appends a new one
// with a price snapshot from the given catalog record. Non-positive
// quantities are ignored. Stock is not checked here; the commit enforces it.
func (c *Cart) Add(p domain.Product, qty int64) {
	if qty <= 0 {
		return
	}
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity += qty
			return
		}
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		Barcode:   p.Barcode,
		UnitPrice: p.UnitPrice,
		Quantity:  qty,
	})
}

// SetQuantity sets the line to qty, removing it when qty drops to zero or
// below. Unknown product ids are a no-op.
func (c *Cart) SetQuantity(productID, qty int64) {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity = qty
		}
		return
	}
}

// Increment adjusts the line quantity by delta, removing the line when the
// result is zero or below. Unknown product ids are a no-op.
func (c *Cart) Increment(productID, delta int64) {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		c.SetQuantity(productID, c.lines[i].Quantity+delta)
		return
	}
}

// Remove drops the line entirely.
func (c *Cart) Remove(productID int64) {
	c.SetQuantity(productID, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy for display; mutating it does not touch the cart.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// PricingLines maps the cart onto the pricing engine's input.
func (c *Cart) PricingLines() []pricing.Line {
	out := make([]pricing.Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

// Totals recomputes subtotal, tax and total from the current lines.
func (c *Cart) Totals() pricing.Totals {
	return pricing.Compute(c.PricingLines())
}
