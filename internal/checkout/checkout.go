// Package checkout orchestrates the commit protocol: validate the cart and
// payment, then — inside one atomic unit of work — reserve stock, persist the
// transaction with its item snapshots, store the receipt, and append the sale
// event. Any failure rolls the whole unit back and leaves the cart untouched.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techstore/pos/internal/cart"
	"github.com/techstore/pos/internal/catalog"
	"github.com/techstore/pos/internal/domain"
	"github.com/techstore/pos/internal/ledger"
	"github.com/techstore/pos/internal/pricing"
	"github.com/techstore/pos/internal/receipt"
	"github.com/techstore/pos/internal/store"
)

// TxRunner is the atomic unit of work: everything fn issues through the
// Querier commits or rolls back as one.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q store.Querier) error) error
}

// CatalogStore is the slice of the catalog the commit needs: reservation-time
// snapshots and the conditional decrement.
type CatalogStore interface {
	Snapshot(ctx context.Context, q store.Querier, id int64) (*domain.Product, error)
	DecrementStock(ctx context.Context, q store.Querier, id, qty int64) error
}

// LedgerStore persists the committed sale inside the same unit of work.
type LedgerStore interface {
	InsertTransaction(ctx context.Context, q store.Querier, t *domain.Transaction) (int64, error)
	InsertItems(ctx context.Context, q store.Querier, transactionID int64, items []domain.TransactionItem) error
	InsertReceipt(ctx context.Context, q store.Querier, transactionID int64, payload []byte) error
	AppendEvent(ctx context.Context, q store.Querier, aggregateID, eventType string, payload []byte) error
}

// Coordinator is stateless between commits; one instance serves a session for
// its whole lifetime.
type Coordinator struct {
	tx      TxRunner
	catalog CatalogStore
	ledger  LedgerStore
	now     func() time.Time
}

func NewCoordinator(tx TxRunner, cat CatalogStore, led LedgerStore) *Coordinator {
	return &Coordinator{
		tx:      tx,
		catalog: cat,
		ledger:  led,
		now:     time.Now,
	}
}

// Commit turns the cart into a persisted transaction and reserved stock.
//
// Validation happens first: an empty cart, an unparseable or negative payment
// amount, or a payment below the cart total fail before anything touches the
// store. The reserve-and-persist phase then runs inside one transaction: per
// cart line (in cart order) the stock is conditionally decremented and a
// fresh catalog snapshot is read; the persisted items and totals come from
// those reservation-time snapshots, and payment sufficiency is re-checked
// against the recomputed total. On success the cart is cleared and the
// receipt returned; on any failure the cart is left unchanged and the typed
// error says why. Nothing is retried automatically.
func (c *Coordinator) Commit(ctx context.Context, crt *cart.Cart, cashierID int64, cashierName, payment string) (*domain.Receipt, error) {
	lines := crt.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	paid, err := parsePayment(payment)
	if err != nil {
		return nil, err
	}

	// Pre-check against add-time snapshots so an obviously short payment
	// never opens a transaction.
	if paid.LessThan(pricing.Compute(crt.PricingLines()).Total) {
		return nil, ErrInsufficientPayment
	}

	var committed *domain.Receipt
	txErr := c.tx.WithinTx(ctx, func(q store.Querier) error {
		now := c.now().UTC()

		items := make([]domain.TransactionItem, 0, len(lines))
		pricedLines := make([]pricing.Line, 0, len(lines))
		for _, line := range lines {
			if err := c.catalog.DecrementStock(ctx, q, line.ProductID, line.Quantity); err != nil {
				return err
			}
			p, err := c.catalog.Snapshot(ctx, q, line.ProductID)
			if err != nil {
				return fmt.Errorf("snapshot product %d: %w", line.ProductID, err)
			}
			items = append(items, domain.TransactionItem{
				ProductID:      p.ID,
				ProductName:    p.Name,
				ProductBarcode: p.Barcode,
				Quantity:       line.Quantity,
				UnitPrice:      p.UnitPrice,
				Subtotal:       pricing.LineSubtotal(p.UnitPrice, line.Quantity),
			})
			pricedLines = append(pricedLines, pricing.Line{UnitPrice: p.UnitPrice, Quantity: line.Quantity})
		}

		// Totals are recomputed from reservation-time prices so the header
		// and items can never disagree. A price raised since add-to-cart can
		// still make the payment short here.
		totals := pricing.Compute(pricedLines)
		if paid.LessThan(totals.Total) {
			return ErrInsufficientPayment
		}

		t := &domain.Transaction{
			Date:        now,
			CashierID:   cashierID,
			CashierName: cashierName,
			Subtotal:    totals.Subtotal,
			Tax:         totals.Tax,
			Total:       totals.Total,
			AmountPaid:  paid,
			Change:      paid.Sub(totals.Total),
		}

		id, err := c.ledger.InsertTransaction(ctx, q, t)
		if err != nil {
			return err
		}
		t.ID = id
		for i := range items {
			items[i].TransactionID = id
		}
		t.Items = items

		if err := c.ledger.InsertItems(ctx, q, id, items); err != nil {
			return err
		}

		data := receipt.Build(t)
		payload, err := receipt.Marshal(data)
		if err != nil {
			return err
		}
		if err := c.ledger.InsertReceipt(ctx, q, id, payload); err != nil {
			return err
		}
		if err := c.ledger.AppendEvent(ctx, q, receipt.FormatID(id), ledger.EventSaleCompleted, payload); err != nil {
			return err
		}

		committed = &domain.Receipt{TransactionID: id, Data: data, CreatedAt: now}
		return nil
	})
	if txErr != nil {
		return nil, classify(txErr)
	}

	crt.Clear()
	return committed, nil
}

func parsePayment(payment string) (decimal.Decimal, error) {
	paid, err := decimal.NewFromString(strings.TrimSpace(payment))
	if err != nil || paid.IsNegative() {
		return decimal.Decimal{}, ErrInvalidPayment
	}
	return paid, nil
}

// classify keeps the commit taxonomy typed: domain failures pass through,
// everything else is a persistence failure from the store.
func classify(err error) error {
	var stockErr *catalog.InsufficientStockError
	switch {
	case errors.Is(err, ErrInsufficientPayment),
		errors.As(err, &stockErr):
		return err
	default:
		return &PersistenceError{Err: err}
	}
}
