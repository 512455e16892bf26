package database

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// NewSQLite opens the SQLite database at path, creating the file on first
// use. Use ":memory:" for an in-memory database (useful for testing).
func NewSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// The pure-Go driver serializes writers; one connection avoids
	// SQLITE_BUSY churn under concurrent snapshot saves.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
