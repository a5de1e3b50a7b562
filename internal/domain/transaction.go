package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a committed sale header. Rows are append-only: once the
// commit succeeds nothing updates them, only a future void design may cascade
// them away.
type Transaction struct {
	ID          int64
	Date        time.Time
	CashierID   int64
	CashierName string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	AmountPaid  decimal.Decimal
	Change      decimal.Decimal
	CreatedAt   time.Time
	Items       []TransactionItem
}

// TransactionItem carries catalog snapshots (name, barcode, price) captured
// at reservation time, so later catalog edits never touch historical records.
type TransactionItem struct {
	ID             int64
	TransactionID  int64
	ProductID      int64
	ProductName    string
	ProductBarcode string
	Quantity       int64
	UnitPrice      decimal.Decimal
	Subtotal       decimal.Decimal
}
