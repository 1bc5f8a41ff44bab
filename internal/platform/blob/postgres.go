package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"amicable/pkg/platform/sentinel"
)

// PostgresStore keeps images in the image_blob table. It always uses the
// pool, never a caller's transaction, so a blob written before an accident
// transaction survives that transaction's retries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO image_blob (key, content_type, data, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data`,
		key, contentType, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, content_type FROM image_blob WHERE key = $1`, key).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", sentinel.ErrNotFound
		}
		return nil, "", fmt.Errorf("get blob: %w", err)
	}
	return data, contentType, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM image_blob WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
