package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("experiment not found")

// Kind classifies a storage failure.
type Kind int

const (
	// Permanent failures repeat on retry: schema mismatch, constraint
	// violation, bad configuration.
	Permanent Kind = iota
	// Transient failures may succeed on retry: busy or locked database,
	// lost connection, serialization failure.
	Transient
)

func (k Kind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

// StorageError wraps a database failure with the operation that hit it.
type StorageError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a storage failure worth retrying.
func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == Transient
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// wrap classifies err and wraps it. A nil err stays nil and an existing
// StorageError is returned unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Kind: classify(err), Err: err}
}

// Postgres SQLSTATE classes that indicate a retryable condition.
var transientPgClasses = []string{
	"08", // connection exception
	"40", // transaction rollback (serialization failure, deadlock)
	"53", // insufficient resources
	"57", // operator intervention (admin shutdown, cannot connect now)
}

func classify(err error) Kind {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return Transient
		default:
			return Permanent
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range transientPgClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return Transient
			}
		}
		return Permanent
	}

	switch {
	case pgconn.SafeToRetry(err), pgconn.Timeout(err):
		return Transient
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return Transient
	case errors.Is(err, context.DeadlineExceeded):
		return Transient
	}
	return Permanent
}
