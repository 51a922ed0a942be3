// Package store provides durable storage for experiment records.
//
// Each experiment occupies one row of the header table plus zero or more rows
// in each component table, all keyed by the experiment's content ID. Table
// and column names come from the schema registry; the store creates or
// extends them once at Open.
//
// # Write model
//
// Upsert is replace-by-identity: inside one transaction every existing row
// for the ID is deleted from every table, then the header row and component
// rows are inserted. A concurrent reader never observes a record with a
// header but without its components. UpsertBatch applies many records in a
// single transaction, all or nothing.
//
// # Drivers
//
//   - sqlite3 (github.com/mattn/go-sqlite3): WAL mode, busy_timeout=5000,
//     foreign_keys=ON, a single connection
//   - pgx (github.com/jackc/pgx/v5/stdlib): PostgreSQL
//
// # Errors
//
// Every database failure is returned as *StorageError. Kind tells a caller
// whether retrying can help (busy, locked, lost connection) or not (schema
// mismatch, constraint violation).
package store
