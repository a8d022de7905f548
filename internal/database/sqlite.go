package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDatabase implements the Database interface for SQLite
type SQLiteDatabase struct {
	connString string
	db         *sql.DB
}

// NewSQLiteDatabase creates a new SQLite database instance
func NewSQLiteDatabase(connString string) *SQLiteDatabase {
	return &SQLiteDatabase{
		connString: connString,
	}
}

// Open opens the database connection
func (s *SQLiteDatabase) Open() error {
	db, err := sql.Open("sqlite3", s.connString+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return err
	}
	// SQLite allows a single writer; serialize access through one
	// connection so concurrent transactions queue instead of failing
	// with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks that the connection is alive
func (s *SQLiteDatabase) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database not connected")
	}
	return s.db.Ping()
}

// GetDB returns the underlying *sql.DB instance
func (s *SQLiteDatabase) GetDB() *sql.DB {
	return s.db
}

// Query runs a SELECT query
func (s *SQLiteDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

// QueryRow runs a query that returns a single row
func (s *SQLiteDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

// Exec runs a query that returns no rows
func (s *SQLiteDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

// Begin starts a transaction
func (s *SQLiteDatabase) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// Rebind is a no-op for SQLite, which uses ? placeholders natively
func (s *SQLiteDatabase) Rebind(query string) string {
	return query
}

// CreateTables creates the wagering schema for SQLite
func (s *SQLiteDatabase) CreateTables() error {
	createUsersSQL := `CREATE TABLE IF NOT EXISTS users (
		"id" TEXT NOT NULL PRIMARY KEY,
		"balance" INTEGER NOT NULL DEFAULT 0,
		"last_grant" DATETIME
	);`
	if _, err := s.db.Exec(createUsersSQL); err != nil {
		return err
	}

	createBetsSQL := `CREATE TABLE IF NOT EXISTS bets (
		"id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"proposer_id" TEXT NOT NULL REFERENCES users(id),
		"acceptor_id" TEXT REFERENCES users(id),
		"stake" INTEGER NOT NULL,
		"resolve_time" DATETIME NOT NULL,
		"resolved" INTEGER NOT NULL DEFAULT 0,
		"checked" INTEGER NOT NULL DEFAULT 0,
		"kind" INTEGER NOT NULL,
		"message_id" TEXT NOT NULL
	);`
	if _, err := s.db.Exec(createBetsSQL); err != nil {
		return err
	}

	createStatBetsSQL := `CREATE TABLE IF NOT EXISTS stat_bets (
		"bet_id" INTEGER NOT NULL PRIMARY KEY REFERENCES bets(id) ON DELETE CASCADE,
		"category" TEXT NOT NULL,
		"name" TEXT NOT NULL,
		"threshold" INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(createStatBetsSQL); err != nil {
		return err
	}

	createTextBetsSQL := `CREATE TABLE IF NOT EXISTS text_bets (
		"bet_id" INTEGER NOT NULL PRIMARY KEY REFERENCES bets(id) ON DELETE CASCADE,
		"wager" TEXT NOT NULL,
		"proposer_outcome" INTEGER,
		"acceptor_outcome" INTEGER
	);`
	if _, err := s.db.Exec(createTextBetsSQL); err != nil {
		return err
	}

	createAPIKeysSQL := `CREATE TABLE IF NOT EXISTS api_keys (
		"key" TEXT NOT NULL PRIMARY KEY,
		"user_id" TEXT NOT NULL,
		"name" TEXT,
		"created_at" DATETIME
	);`
	if _, err := s.db.Exec(createAPIKeysSQL); err != nil {
		return err
	}

	createWebhooksSQL := `CREATE TABLE IF NOT EXISTS webhooks (
		"user_id" TEXT NOT NULL PRIMARY KEY,
		"url" TEXT NOT NULL
	);`
	if _, err := s.db.Exec(createWebhooksSQL); err != nil {
		return err
	}

	createDueIndexSQL := `CREATE INDEX IF NOT EXISTS idx_bets_due
		ON bets(resolve_time) WHERE checked = 0;`
	if _, err := s.db.Exec(createDueIndexSQL); err != nil {
		return err
	}

	return nil
}
