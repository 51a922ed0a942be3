package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/electrolyte/internal/querysql"
	"github.com/roach88/electrolyte/internal/schema"
)

// Schema version tracking:
// 1 - header table, component tables, meta table
const currentSchemaVersion = 1

const metaTable = "electrolyte_meta"

// Migrate creates the tables the registry describes and adds header columns
// missing from an existing header table. Migrations are additive: columns are
// never dropped or retyped. Migrate runs at Open and is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("migrate", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := s.checkVersion(ctx, tx); err != nil {
		return err
	}

	for _, stmt := range s.createStatements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrap("migrate", fmt.Errorf("%s: %w", firstLine(stmt), err))
		}
	}

	if err := s.addMissingColumns(ctx, tx); err != nil {
		return err
	}

	if err := s.writeVersion(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrap("migrate", err)
	}
	return nil
}

func (s *Store) checkVersion(ctx context.Context, tx *sql.Tx) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, %s TEXT NOT NULL)`,
		q(metaTable), q("key"), q("value"))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return wrap("migrate", err)
	}

	var raw string
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = %s`, q("value"), q(metaTable), q("key"), s.ph(1)),
		"schema_version",
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return wrap("migrate", err)
	}

	version, err := strconv.Atoi(raw)
	if err != nil {
		return &StorageError{Op: "migrate", Kind: Permanent, Err: fmt.Errorf("corrupt schema_version %q", raw)}
	}
	if version > currentSchemaVersion {
		return &StorageError{Op: "migrate", Kind: Permanent, Err: fmt.Errorf(
			"database schema version %d is newer than supported version %d", version, currentSchemaVersion)}
	}
	return nil
}

func (s *Store) writeVersion(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE %s = %s`, q(metaTable), q("key"), s.ph(1)),
		"schema_version",
	); err != nil {
		return wrap("migrate", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES (%s, %s)`, q(metaTable), q("key"), q("value"), s.ph(1), s.ph(2)),
		"schema_version", strconv.Itoa(currentSchemaVersion),
	); err != nil {
		return wrap("migrate", err)
	}
	return nil
}

// createStatements renders CREATE TABLE / CREATE INDEX for the registry.
func (s *Store) createStatements() []string {
	header := s.reg.Header()

	cols := []string{q(header.ID) + " TEXT PRIMARY KEY"}
	for _, v := range s.reg.Variables() {
		cols = append(cols, q(v.Name())+" "+columnType(s.dialect, v.Column()))
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", q(header.Table), strings.Join(cols, ",\n\t")),
	}

	for _, c := range s.reg.Components() {
		stmts = append(stmts,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s TEXT NOT NULL REFERENCES %s (%s) ON DELETE CASCADE,\n\t%s TEXT NOT NULL,\n\t%s %s NOT NULL,\n\tPRIMARY KEY (%s, %s)\n)",
				q(c.Table),
				q(header.ID), q(header.Table), q(header.ID),
				q(c.NameColumn),
				q(c.ValueColumn), s.dialect.FloatType(),
				q(header.ID), q(c.NameColumn)),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s, %s)",
				q("idx_"+c.Table+"_"+c.NameColumn), q(c.Table), q(c.NameColumn), q(c.ValueColumn)),
		)
	}
	return stmts
}

func columnType(d querysql.Dialect, t schema.ColumnType) string {
	switch t {
	case schema.ColumnInteger:
		return d.IntegerType()
	case schema.ColumnText:
		return d.TextType()
	default:
		return d.FloatType()
	}
}

// addMissingColumns extends a header table created by an older registry.
func (s *Store) addMissingColumns(ctx context.Context, tx *sql.Tx) error {
	header := s.reg.Header()
	existing, err := s.tableColumns(ctx, tx, header.Table)
	if err != nil {
		return err
	}

	for _, v := range s.reg.Variables() {
		if existing[v.Name()] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			q(header.Table), q(v.Name()), columnType(s.dialect, v.Column()))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrap("migrate", fmt.Errorf("add column %q: %w", v.Name(), err))
		}
	}
	if !existing[header.ID] {
		return &StorageError{Op: "migrate", Kind: Permanent, Err: fmt.Errorf(
			"table %q exists without identity column %q", header.Table, header.ID)}
	}
	return nil
}

// tableColumns lists the column names of a table.
func (s *Store) tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	var query string
	var args []any
	switch s.dialect {
	case querysql.Postgres:
		query = `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`
		args = []any{table}
	default:
		query = fmt.Sprintf("SELECT name FROM pragma_table_info(%s)", s.ph(1))
		args = []any{table}
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("migrate", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap("migrate", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("migrate", err)
	}
	return cols, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
