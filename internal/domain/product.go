package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog row. Stock is never negative; the catalog enforces
// that with a conditional decrement, not with application-level checks.
type Product struct {
	ID        int64
	Barcode   string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	Stock     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
