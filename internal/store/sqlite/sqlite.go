// Package sqlite is the default store.DocumentStore backend, backed
// by modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kestrelcode/webdex/internal/document"
	"github.com/kestrelcode/webdex/internal/store"
	_ "modernc.org/sqlite"
)

var _ store.DocumentStore = (*Store)(nil)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	url            TEXT PRIMARY KEY,
	body           TEXT,
	extracted_text BLOB
);
`

// New opens (creating if necessary) a SQLite-backed document store at dsn.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) ReadBody(ctx context.Context, url string) (string, bool, error) {
	var body sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE url = ?`, url).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: read body: %w", err)
	}
	if !body.Valid {
		return "", false, nil
	}
	return body.String, true, nil
}

func (s *Store) SaveBody(ctx context.Context, url string, body string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (url, body) VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET body = excluded.body
	`, url, body)
	if err != nil {
		return fmt.Errorf("sqlite: save body: %w", err)
	}
	return nil
}

func (s *Store) ReadTexts(ctx context.Context, url string) ([]document.NodeText, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT extracted_text FROM documents WHERE url = ?`, url).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: read texts: %w", err)
	}
	if blob == nil {
		return nil, false, nil
	}
	texts, err := store.DecodeTexts(blob)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: decode texts: %w", err)
	}
	return texts, true, nil
}

func (s *Store) SaveTexts(ctx context.Context, url string, texts []document.NodeText) error {
	blob := store.EncodeTexts(texts)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (url, extracted_text) VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET extracted_text = excluded.extracted_text
	`, url, blob)
	if err != nil {
		return fmt.Errorf("sqlite: save texts: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
