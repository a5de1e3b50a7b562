// Package ledger owns persisted transactions, their item snapshots, receipts
// and the sales outbox. Writes happen only through the commit coordinator's
// atomic unit; everything is append-only afterwards.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/techstore/pos/internal/domain"
	"github.com/techstore/pos/internal/store"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReceiptNotFound     = errors.New("receipt not found")
)

// EventSaleCompleted is appended to the outbox for every committed sale.
const EventSaleCompleted = "sale.completed"

// OutboxEvent is one unpublished (or published) sale event row.
type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Period bounds a listing; zero values leave that side open.
type Period struct {
	From time.Time
	To   time.Time
}

type LedgerInterface interface {
	InsertTransaction(ctx context.Context, q store.Querier, t *domain.Transaction) (int64, error)
	InsertItems(ctx context.Context, q store.Querier, transactionID int64, items []domain.TransactionItem) error
	InsertReceipt(ctx context.Context, q store.Querier, transactionID int64, payload []byte) error
	AppendEvent(ctx context.Context, q store.Querier, aggregateID, eventType string, payload []byte) error
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	GetReceipt(ctx context.Context, transactionID int64) (int64, []byte, time.Time, error)
	List(ctx context.Context, p Period) ([]domain.Transaction, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Transaction, error)
	UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id string) error
}

type Ledger struct {
	db *sql.DB
}

func New(st *store.Store) *Ledger {
	return &Ledger{db: st.DB()}
}

// InsertTransaction persists the header and returns the assigned id. The
// caller has already validated amount_paid >= total.
func (l *Ledger) InsertTransaction(ctx context.Context, q store.Querier, t *domain.Transaction) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO transactions
		 (transaction_date, cashier_id, cashier_name, subtotal, tax, total_amount, amount_paid, change_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		t.Date, t.CashierID, t.CashierName,
		t.Subtotal.StringFixed(2), t.Tax.StringFixed(2), t.Total.StringFixed(2),
		t.AmountPaid.StringFixed(2), t.Change.StringFixed(2), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func (l *Ledger) InsertItems(ctx context.Context, q store.Querier, transactionID int64, items []domain.TransactionItem) error {
	for i := range items {
		it := &items[i]
		_, err := q.ExecContext(ctx,
			`INSERT INTO transaction_items
			 (transaction_id, product_id, product_name, product_barcode, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			transactionID, it.ProductID, it.ProductName, it.ProductBarcode,
			it.Quantity, it.UnitPrice.StringFixed(2), it.Subtotal.StringFixed(2),
		)
		if err != nil {
			return fmt.Errorf("insert transaction item (product %d): %w", it.ProductID, err)
		}
	}
	return nil
}

func (l *Ledger) InsertReceipt(ctx context.Context, q store.Querier, transactionID int64, payload []byte) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO receipts (transaction_id, receipt_data, created_at) VALUES ($1, $2, $3)`,
		transactionID, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// AppendEvent adds an outbox row inside the commit's transaction, so a sale
// and its event appear or disappear together.
func (l *Ledger) AppendEvent(ctx context.Context, q store.Querier, aggregateID, eventType string, payload []byte) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), aggregateID, eventType, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

const transactionColumns = `id, transaction_date, cashier_id, cashier_name, subtotal, tax, total_amount, amount_paid, change_amount, created_at`

// Get returns the header with its items, or ErrTransactionNotFound.
func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := l.itemsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return t, nil
}

func (l *Ledger) itemsFor(ctx context.Context, transactionID int64) ([]domain.TransactionItem, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, transaction_id, product_id, product_name, product_barcode, quantity, unit_price, subtotal
		 FROM transaction_items WHERE transaction_id = $1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("query transaction items: %w", err)
	}
	defer rows.Close()

	var items []domain.TransactionItem
	for rows.Next() {
		var (
			it                  domain.TransactionItem
			unitPrice, subtotal string
		)
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.ProductID, &it.ProductName,
			&it.ProductBarcode, &it.Quantity, &unitPrice, &subtotal); err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		if it.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("parse item unit price %q: %w", unitPrice, err)
		}
		if it.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, fmt.Errorf("parse item subtotal %q: %w", subtotal, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// GetReceipt returns the stored payload bytes for a transaction.
func (l *Ledger) GetReceipt(ctx context.Context, transactionID int64) (int64, []byte, time.Time, error) {
	var (
		txID      int64
		data      string
		createdAt time.Time
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT transaction_id, receipt_data, created_at FROM receipts WHERE transaction_id = $1`,
		transactionID,
	).Scan(&txID, &data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, time.Time{}, ErrReceiptNotFound
	}
	if err != nil {
		return 0, nil, time.Time{}, fmt.Errorf("query receipt: %w", err)
	}
	return txID, []byte(data), createdAt, nil
}

// List returns headers (without items) in the period, newest first.
func (l *Ledger) List(ctx context.Context, p Period) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var (
		conds string
		args  []any
	)
	if !p.From.IsZero() {
		args = append(args, p.From)
		conds = ` WHERE transaction_date >= $1`
	}
	if !p.To.IsZero() {
		args = append(args, p.To)
		if conds == "" {
			conds = fmt.Sprintf(` WHERE transaction_date < $%d`, len(args))
		} else {
			conds += fmt.Sprintf(` AND transaction_date < $%d`, len(args))
		}
	}
	query += conds + ` ORDER BY transaction_date DESC, id DESC`

	return l.queryTransactions(ctx, query, args...)
}

// ListRecent returns the latest n headers for dashboard views.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	return l.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY transaction_date DESC, id DESC LIMIT $1`,
		limit)
}

func (l *Ledger) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// UnprocessedEvents returns up to limit unpublished outbox rows, oldest
// first.
func (l *Ledger) UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed_at IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			ev      OutboxEvent
			payload string
		)
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		ev.Payload = []byte(payload)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (l *Ledger) MarkEventProcessed(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = $1 WHERE id = $2 AND processed_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox event rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("outbox event %s not found or already processed", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t                                  domain.Transaction
		subtotal, tax, total, paid, change string
	)
	err := row.Scan(&t.ID, &t.Date, &t.CashierID, &t.CashierName,
		&subtotal, &tax, &total, &paid, &change, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&t.Subtotal, subtotal},
		{&t.Tax, tax},
		{&t.Total, total},
		{&t.AmountPaid, paid},
		{&t.Change, change},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("parse transaction amount %q: %w", f.src, err)
		}
		*f.dst = d
	}
	return &t, nil
}
