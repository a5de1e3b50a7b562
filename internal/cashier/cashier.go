// Package cashier stores the identities stamped onto transactions. Passwords
// are kept as SHA-256 hex digests; there is no session or token machinery
// here, callers only need "a cashier identity exists".
package cashier

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/techstore/pos/internal/domain"
	"github.com/techstore/pos/internal/store"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUsername  = errors.New("username already taken")
)

type RepoInterface interface {
	Create(ctx context.Context, username, password string, role domain.Role, fullName string) (*domain.Cashier, error)
	Get(ctx context.Context, id int64) (*domain.Cashier, error)
	Authenticate(ctx context.Context, username, password string) (*domain.Cashier, error)
	List(ctx context.Context) ([]domain.Cashier, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(st *store.Store) *Repository {
	return &Repository{db: st.DB()}
}

const userColumns = `id, username, role, full_name, created_at`

func (r *Repository) Create(ctx context.Context, username, password string, role domain.Role, fullName string) (*domain.Cashier, error) {
	if role != domain.RoleAdmin && role != domain.RoleCashier {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password, role, full_name, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		username, hashPassword(password), string(role), fullName, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Cashier, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanCashier(row)
}

// Authenticate compares the stored digest; it never reveals whether the
// username or the password was wrong.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (*domain.Cashier, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = $1 AND password = $2`,
		username, hashPassword(password),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) List(ctx context.Context) ([]domain.Cashier, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.Cashier
	for rows.Next() {
		c, err := scanCashierRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

func scanCashier(row *sql.Row) (*domain.Cashier, error) {
	var (
		c        domain.Cashier
		role     string
		fullName sql.NullString
	)
	err := row.Scan(&c.ID, &c.Username, &role, &fullName, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	c.Role = domain.Role(role)
	c.FullName = fullName.String
	return &c, nil
}

func scanCashierRow(rows *sql.Rows) (*domain.Cashier, error) {
	var (
		c        domain.Cashier
		role     string
		fullName sql.NullString
	)
	if err := rows.Scan(&c.ID, &c.Username, &role, &fullName, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	c.Role = domain.Role(role)
	c.FullName = fullName.String
	return &c, nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint failed")
}
