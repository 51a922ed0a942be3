package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/electrolyte/internal/querysql"
	"github.com/roach88/electrolyte/internal/schema"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config selects the database.
type Config struct {
	// Driver is DriverSQLite (default) or DriverPostgres.
	Driver string
	// DSN is a file path for SQLite or a connection string for Postgres.
	DSN string
}

// Store provides durable storage for experiment records.
type Store struct {
	db      *sql.DB
	reg     *schema.Registry
	dialect querysql.Dialect
	driver  string
}

// Open connects to the database, applies driver settings and migrates the
// tables described by the registry. Open is idempotent.
func Open(ctx context.Context, cfg Config, reg *schema.Registry) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	dialect, err := querysql.DialectForDriver(driver)
	if err != nil {
		return nil, &StorageError{Op: "open", Kind: Permanent, Err: err}
	}
	if cfg.DSN == "" {
		return nil, &StorageError{Op: "open", Kind: Permanent, Err: fmt.Errorf("empty data source name")}
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, wrap("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrap("connect", err)
	}

	if dialect == querysql.SQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db, reg: reg, dialect: dialect, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect of the connected database.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// Registry returns the schema registry the store was opened with.
func (s *Store) Registry() *schema.Registry {
	return s.reg
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return wrap("pragma", fmt.Errorf("%q: %w", pragma, err))
		}
	}
	return nil
}

// ph returns the n-th placeholder for the store's dialect.
func (s *Store) ph(n int) string {
	return s.dialect.Placeholder(n)
}

func q(ident string) string {
	return querysql.QuoteIdent(ident)
}
