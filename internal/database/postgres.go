package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDatabase implements the Database interface for PostgreSQL
// using the pgx driver
type PostgresDatabase struct {
	connString string
	db         *sql.DB
}

// NewPostgresDatabase creates a new PostgreSQL database instance
func NewPostgresDatabase(connString string) *PostgresDatabase {
	return &PostgresDatabase{
		connString: connString,
	}
}

// Open opens the database connection
func (p *PostgresDatabase) Open() error {
	db, err := sql.Open("pgx", p.connString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	p.db = db
	return nil
}

// Close closes the database connection
func (p *PostgresDatabase) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Ping checks that the connection is alive
func (p *PostgresDatabase) Ping() error {
	if p.db == nil {
		return fmt.Errorf("database not connected")
	}
	return p.db.Ping()
}

// GetDB returns the underlying *sql.DB instance
func (p *PostgresDatabase) GetDB() *sql.DB {
	return p.db
}

// Query runs a SELECT query
func (p *PostgresDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return p.db.Query(query, args...)
}

// QueryRow runs a query that returns a single row
func (p *PostgresDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return p.db.QueryRow(query, args...)
}

// Exec runs a query that returns no rows
func (p *PostgresDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return p.db.Exec(query, args...)
}

// Begin starts a transaction
func (p *PostgresDatabase) Begin() (*sql.Tx, error) {
	return p.db.Begin()
}

// Rebind converts ? placeholders to $1, $2, ... for PostgreSQL
func (p *PostgresDatabase) Rebind(query string) string {
	result := ""
	placeholderIndex := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result += fmt.Sprintf("$%d", placeholderIndex)
			placeholderIndex++
		} else {
			result += string(query[i])
		}
	}
	return result
}

// CreateTables creates the wagering schema for PostgreSQL
func (p *PostgresDatabase) CreateTables() error {
	createUsersSQL := `CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		last_grant TIMESTAMP
	);`
	if _, err := p.db.Exec(createUsersSQL); err != nil {
		return err
	}

	createBetsSQL := `CREATE TABLE IF NOT EXISTS bets (
		id BIGSERIAL PRIMARY KEY,
		proposer_id TEXT NOT NULL REFERENCES users(id),
		acceptor_id TEXT REFERENCES users(id),
		stake INTEGER NOT NULL,
		resolve_time TIMESTAMP NOT NULL,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		checked BOOLEAN NOT NULL DEFAULT FALSE,
		kind INTEGER NOT NULL,
		message_id TEXT NOT NULL
	);`
	if _, err := p.db.Exec(createBetsSQL); err != nil {
		return err
	}

	createStatBetsSQL := `CREATE TABLE IF NOT EXISTS stat_bets (
		bet_id BIGINT NOT NULL PRIMARY KEY REFERENCES bets(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		threshold INTEGER NOT NULL
	);`
	if _, err := p.db.Exec(createStatBetsSQL); err != nil {
		return err
	}

	createTextBetsSQL := `CREATE TABLE IF NOT EXISTS text_bets (
		bet_id BIGINT NOT NULL PRIMARY KEY REFERENCES bets(id) ON DELETE CASCADE,
		wager TEXT NOT NULL,
		proposer_outcome BOOLEAN,
		acceptor_outcome BOOLEAN
	);`
	if _, err := p.db.Exec(createTextBetsSQL); err != nil {
		return err
	}

	createAPIKeysSQL := `CREATE TABLE IF NOT EXISTS api_keys (
		key TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT,
		created_at TIMESTAMP
	);`
	if _, err := p.db.Exec(createAPIKeysSQL); err != nil {
		return err
	}

	createWebhooksSQL := `CREATE TABLE IF NOT EXISTS webhooks (
		user_id TEXT NOT NULL PRIMARY KEY,
		url TEXT NOT NULL
	);`
	if _, err := p.db.Exec(createWebhooksSQL); err != nil {
		return err
	}

	createDueIndexSQL := `CREATE INDEX IF NOT EXISTS idx_bets_due
		ON bets(resolve_time) WHERE checked = FALSE;`
	if _, err := p.db.Exec(createDueIndexSQL); err != nil {
		return err
	}

	return nil
}
