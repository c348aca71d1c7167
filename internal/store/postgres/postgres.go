// Package postgres is the optional store.DocumentStore backend,
// backed by pgx/v5's connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kestrelcode/webdex/internal/document"
	"github.com/kestrelcode/webdex/internal/store"
)

var _ store.DocumentStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	url            TEXT PRIMARY KEY,
	body           TEXT,
	extracted_text BYTEA
);
`

// New opens a Postgres-backed document store at dsn.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) ReadBody(ctx context.Context, url string) (string, bool, error) {
	var body *string
	err := s.pool.QueryRow(ctx, `SELECT body FROM documents WHERE url = $1`, url).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: read body: %w", err)
	}
	if body == nil {
		return "", false, nil
	}
	return *body, true, nil
}

func (s *Store) SaveBody(ctx context.Context, url string, body string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (url, body) VALUES ($1, $2)
		ON CONFLICT (url) DO UPDATE SET body = excluded.body
	`, url, body)
	if err != nil {
		return fmt.Errorf("postgres: save body: %w", err)
	}
	return nil
}

func (s *Store) ReadTexts(ctx context.Context, url string) ([]document.NodeText, bool, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx, `SELECT extracted_text FROM documents WHERE url = $1`, url).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres: read texts: %w", err)
	}
	if blob == nil {
		return nil, false, nil
	}
	texts, err := store.DecodeTexts(blob)
	if err != nil {
		return nil, false, fmt.Errorf("postgres: decode texts: %w", err)
	}
	return texts, true, nil
}

func (s *Store) SaveTexts(ctx context.Context, url string, texts []document.NodeText) error {
	blob := store.EncodeTexts(texts)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (url, extracted_text) VALUES ($1, $2)
		ON CONFLICT (url) DO UPDATE SET extracted_text = excluded.extracted_text
	`, url, blob)
	if err != nil {
		return fmt.Errorf("postgres: save texts: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
