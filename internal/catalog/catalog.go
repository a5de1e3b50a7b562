// Package catalog owns product records and the atomic stock decrement the
// commit protocol depends on.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techstore/pos/internal/domain"
	"github.com/techstore/pos/internal/store"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateBarcode  = errors.New("a product with this barcode already exists")
)

// InsufficientStockError names the product whose conditional decrement
// affected zero rows. errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Filter narrows Find results. Query substring-matches barcode, name and
// category; Category matches exactly. Both combine.
type Filter struct {
	Query    string
	Category string
}

type RepoInterface interface {
	Find(ctx context.Context, f Filter) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) (int64, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, q store.Querier, id int64) (*domain.Product, error)
	DecrementStock(ctx context.Context, q store.Querier, id, qty int64) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(st *store.Store) *Repository {
	return &Repository{db: st.DB()}
}

const productColumns = `id, barcode, name, category, price, stock, created_at, updated_at`

// Find returns matching products in catalog insertion order. Each call
// re-executes the query, so the sequence restarts from the store's current
// state.
func (r *Repository) Find(ctx context.Context, f Filter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var (
		conds []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(barcode LIKE $%d OR name LIKE $%d OR category LIKE $%d)", n, n, n))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return getProduct(ctx, r.db, id)
}

// Snapshot reads a product through the commit's transaction so the persisted
// name/barcode/price snapshots come from reservation time, not add-to-cart
// time.
func (r *Repository) Snapshot(ctx context.Context, q store.Querier, id int64) (*domain.Product, error) {
	return getProduct(ctx, q, id)
}

func getProduct(ctx context.Context, q store.Querier, id int64) (*domain.Product, error) {
	row := q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p *domain.Product) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (barcode, name, category, price, stock, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Barcode, p.Name, p.Category, p.UnitPrice.StringFixed(2), p.Stock, now, now,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateBarcode
		}
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

func (r *Repository) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET barcode = $1, name = $2, category = $3, price = $4, stock = $5, updated_at = $6
		 WHERE id = $7`,
		p.Barcode, p.Name, p.Category, p.UnitPrice.StringFixed(2), p.Stock, time.Now().UTC(), p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBarcode
		}
		return fmt.Errorf("update product: %w", err)
	}
	return checkFound(res)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return checkFound(res)
}

// Categories lists distinct categories for the terminal's filter dropdown.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

// DecrementStock is the reservation primitive: one conditional update, judged
// by affected rows. Two commits racing over marginal stock cannot both win;
// the row-level atomicity of the UPDATE is the enforcement mechanism. Zero
// affected rows means insufficient stock (or a vanished product) and the
// caller's transaction must roll back.
func (r *Repository) DecrementStock(ctx context.Context, q store.Querier, id, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE products SET stock = stock - $1, updated_at = $2 WHERE id = $3 AND stock >= $1`,
		qty, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock rows affected: %w", err)
	}
	if affected == 0 {
		return &InsufficientStockError{ProductID: id}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.Category, &price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse product price %q: %w", price, err)
	}
	return &p, nil
}

func checkFound(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// isUniqueViolation matches both engines without importing driver error
// types: lib/pq reports 23505, modernc/sqlite a "UNIQUE constraint failed"
// message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint failed")
}
