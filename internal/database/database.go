package database

import "fmt"

// Initialize opens the database for the configured driver and creates
// the schema.
func Initialize(dbType, connString string) (Database, error) {
	var db Database

	switch dbType {
	case "postgres":
		db = NewPostgresDatabase(connString)
	case "sqlite":
		fallthrough
	default:
		db = NewSQLiteDatabase(connString)
	}

	if err := db.Open(); err != nil {
		return nil, fmt.Errorf("open %s database: %w", dbType, err)
	}
	if err := db.CreateTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
