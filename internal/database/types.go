package database

import "database/sql"

// Database is the driver-level interface the store is built on.
// Implementations exist for SQLite (default) and PostgreSQL.
type Database interface {
	// Connection
	Open() error
	Close() error
	Ping() error
	GetDB() *sql.DB

	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
	Begin() (*sql.Tx, error)

	// Rebind converts ? placeholders to the driver's style
	// ($N for PostgreSQL, unchanged for SQLite).
	Rebind(query string) string

	// CreateTables creates the schema if it does not exist.
	CreateTables() error
}
