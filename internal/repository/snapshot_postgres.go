package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

// PostgresSnapshots stores collection documents as JSONB rows keyed by
// collection name.
type PostgresSnapshots struct {
	db *sqlx.DB
}

// NewPostgresSnapshots initialises the schema and returns the store.
func NewPostgresSnapshots(ctx context.Context, db *sqlx.DB) (*PostgresSnapshots, error) {
	s := &PostgresSnapshots{db: db}
	if err := s.createSchema(ctx); err != nil {
		return nil, fmt.Errorf("create snapshots schema: %w", err)
	}
	return s, nil
}

func (s *PostgresSnapshots) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		body JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load reads the collection document.
func (s *PostgresSnapshots) Load(ctx context.Context, collection string) ([]byte, error) {
	var body []byte
	err := s.db.GetContext(ctx, &body,
		`SELECT body FROM snapshots WHERE name = $1`, collection)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", collection, err)
	}
	return body, nil
}

// Save upserts the collection document.
func (s *PostgresSnapshots) Save(ctx context.Context, collection string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at`,
		collection, data)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", collection, err)
	}
	return nil
}
