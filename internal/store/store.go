package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Components that must run inside the commit's atomic unit take a Querier
// instead of reaching for their own connection.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Config struct {
	Driver        string // "sqlite" or "postgres"
	DSN           string
	MigrationsDir string
}

// Store owns the shared database handle. A single terminal runs on SQLite;
// multiple terminals against one shared store run on Postgres.
type Store struct {
	db     *sql.DB
	driver string
}

func Open(cfg *Config) (*Store, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// One connection serializes writers; the sqlite driver otherwise
		// surfaces SQLITE_BUSY under concurrent commits.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}

	return &Store{db: db, driver: cfg.Driver}, nil
}

// sqliteDSN enforces foreign keys, a busy timeout, and a parseable time
// format on every connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) RunMigrations(migrationsDir string) error {
	var (
		m   *migrate.Migrate
		err error
	)
	switch s.driver {
	case DriverSQLite:
		d, e := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
		if e != nil {
			return fmt.Errorf("could not create migration driver: %w", e)
		}
		m, err = migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "sqlite", d)
	case DriverPostgres:
		d, e := migratepg.WithInstance(s.db, &migratepg.Config{})
		if e != nil {
			return fmt.Errorf("could not create migration driver: %w", e)
		}
		m, err = migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", d)
	}
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e := m.Up(); e != nil && !errors.Is(e, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e)
	}

	return nil
}

// WithinTx runs fn inside one database transaction: every statement issued
// through the passed Querier either commits as a unit or rolls back as a
// unit. fn returning an error triggers the rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Close() error {
	return s.db.Close()
}
