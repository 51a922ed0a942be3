package querysql

import "fmt"

// Dialect selects placeholder syntax and type names.
type Dialect int

const (
	// SQLite uses ? placeholders.
	SQLite Dialect = iota
	// Postgres uses $1, $2, ... placeholders.
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// DialectForDriver maps a database/sql driver name to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("no SQL dialect for driver %q", driver)
	}
}

// Placeholder returns the n-th (1-based) parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// FloatType is the column type used for real-valued columns.
func (d Dialect) FloatType() string {
	if d == Postgres {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

// IntegerType is the column type used for integer columns.
func (d Dialect) IntegerType() string {
	if d == Postgres {
		return "BIGINT"
	}
	return "INTEGER"
}

// TextType is the column type used for text columns.
func (d Dialect) TextType() string {
	return "TEXT"
}
