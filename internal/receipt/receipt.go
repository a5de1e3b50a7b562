// Package receipt builds the immutable receipt payload from a committed
// transaction and renders it as the 48-column slip terminals print.
package receipt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/techstore/pos/internal/domain"
)

const lineWidth = 48

// FormatID zero-pads a transaction id to the ten digits printed on slips.
func FormatID(id int64) string {
	return fmt.Sprintf("%010d", id)
}

// Build derives the payload from a committed transaction and its items. Pure;
// the ledger stores the result exactly once per transaction.
func Build(t *domain.Transaction) domain.ReceiptData {
	items := make([]domain.ReceiptItem, len(t.Items))
	for i, it := range t.Items {
		items[i] = domain.ReceiptItem{
			Name:      it.ProductName,
			Barcode:   it.ProductBarcode,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		}
	}
	return domain.ReceiptData{
		TransactionID: FormatID(t.ID),
		Date:          t.Date.Format("2006-01-02"),
		Time:          t.Date.Format("15:04:05"),
		Cashier:       t.CashierName,
		Items:         items,
		Subtotal:      t.Subtotal,
		Tax:           t.Tax,
		Total:         t.Total,
		Payment:       t.AmountPaid,
		Change:        t.Change,
	}
}

// Marshal encodes the payload for storage.
func Marshal(d domain.ReceiptData) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt payload: %w", err)
	}
	return b, nil
}

// Parse decodes a stored payload.
func Parse(data []byte) (domain.ReceiptData, error) {
	var d domain.ReceiptData
	if err := json.Unmarshal(data, &d); err != nil {
		return domain.ReceiptData{}, fmt.Errorf("unmarshal receipt payload: %w", err)
	}
	return d, nil
}

// Render produces the printable slip.
func Render(d domain.ReceiptData) string {
	var b strings.Builder
	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("          TECHSTORE POS RECEIPT")
	line(rule)
	line("")
	line("Date: %s", d.Date)
	line("Time: %s", d.Time)
	line("Transaction ID: %s", d.TransactionID)
	line("Cashier: %s", d.Cashier)
	line("")
	line(thin)
	line("%-25s %-6s %10s", "ITEM", "QTY", "PRICE")
	line(thin)

	for _, it := range d.Items {
		name := it.Name
		if len(name) > 25 {
			name = name[:25]
		}
		line("%-25s %-6d %10s", name, it.Quantity, it.UnitPrice.StringFixed(2))
		line("%33s %10s", "", it.Subtotal.StringFixed(2))
	}

	line(thin)
	line("%-33s %10s", "Subtotal:", d.Subtotal.StringFixed(2))
	line("%-33s %10s", "Tax (12%):", d.Tax.StringFixed(2))
	line(rule)
	line("%-33s %10s", "TOTAL:", d.Total.StringFixed(2))
	line("%-33s %10s", "Payment:", d.Payment.StringFixed(2))
	line("%-33s %10s", "Change:", d.Change.StringFixed(2))
	line(rule)
	line("")
	line("     Thank you for shopping with us!")
	line("          Please come again!")
	line(rule)

	return b.String()
}
