package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"veriseal/pkg/platform/sentinel"
)

// PostgresStore keeps document blobs next to the records they belong to.
// Certificates are small single-page documents, so a bytea column beats
// operating a separate object store for them.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the backing table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS certificate_blobs (
			name         TEXT PRIMARY KEY,
			content      BYTEA NOT NULL,
			content_type TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate certificate blobs: %w", err)
	}
	return nil
}

// Put upserts a blob. Updates overwrite in place: a superseded certificate's
// document is replaced, not versioned.
func (s *PostgresStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("blob name is required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificate_blobs (name, content, content_type)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET content = EXCLUDED.content, content_type = EXCLUDED.content_type, created_at = now()`,
		name, data, contentType,
	)
	if err != nil {
		return "", fmt.Errorf("put blob: %w", err)
	}
	return "blob://" + name, nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) ([]byte, error) {
	var content []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM certificate_blobs WHERE name = $1`, name,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("blob %s: %w", name, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return content, nil
}
