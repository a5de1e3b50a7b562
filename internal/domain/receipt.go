package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptItem mirrors a transaction item inside the stored receipt payload.
type ReceiptItem struct {
	Name      string          `json:"name"`
	Barcode   string          `json:"barcode,omitempty"`
	Quantity  int64           `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ReceiptData is the structured payload persisted 1:1 with a transaction.
// The transaction id is zero-padded to ten digits for display.
type ReceiptData struct {
	TransactionID string          `json:"transaction_id"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Cashier       string          `json:"cashier"`
	Items         []ReceiptItem   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Payment       decimal.Decimal `json:"payment"`
	Change        decimal.Decimal `json:"change"`
}

// Receipt is the immutable record created exactly once per committed
// transaction.
type Receipt struct {
	TransactionID int64
	Data          ReceiptData
	CreatedAt     time.Time
}
