package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// SQLiteSnapshots stores collection documents in a single snapshots table,
// one row per collection, upserted whole on each save.
type SQLiteSnapshots struct {
	db *sql.DB
}

// NewSQLiteSnapshots initialises the schema and returns the store.
func NewSQLiteSnapshots(db *sql.DB) (*SQLiteSnapshots, error) {
	s := &SQLiteSnapshots{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("create snapshots schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSnapshots) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the collection document.
func (s *SQLiteSnapshots) Load(ctx context.Context, collection string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM snapshots WHERE name = ?`, collection).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", collection, err)
	}
	return body, nil
}

// Save upserts the collection document.
func (s *SQLiteSnapshots) Save(ctx context.Context, collection string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		collection, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", collection, err)
	}
	return nil
}
