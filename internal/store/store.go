// Package store defines the durable key-value cache between the
// crawler and the index: canonical URL -> (raw body, extracted
// texts). Concrete backends live in sqlite and postgres subpackages.
package store

import (
	"context"

	"github.com/kestrelcode/webdex/internal/document"
)

// DocumentStore provides process-safe access to cached crawl state
// keyed by canonical URL. Any storage error is recoverable: callers
// treat it as if the row were absent rather than aborting the crawl.
type DocumentStore interface {
	// ReadBody returns the cached HTML body for url, if present.
	ReadBody(ctx context.Context, url string) (body string, ok bool, err error)

	// SaveBody upserts the body for url, leaving extracted_text
	// untouched.
	SaveBody(ctx context.Context, url string, body string) error

	// ReadTexts returns the cached extracted NodeText set for url,
	// if present.
	ReadTexts(ctx context.Context, url string) (texts []document.NodeText, ok bool, err error)

	// SaveTexts upserts the extracted-text blob for url using
	// EncodeTexts's deterministic serialization.
	SaveTexts(ctx context.Context, url string, texts []document.NodeText) error

	// Close releases any underlying connection pool.
	Close() error
}
