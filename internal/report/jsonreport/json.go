// Package jsonreport writes a crawl Summary to NDJSON: one line for
// the run totals, followed by one line per fetched document.
package jsonreport

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kestrelcode/webdex/internal/report"
)

type totalsLine struct {
	Kind             string `json:"kind"`
	DocumentsIndexed int    `json:"documents_indexed"`
	UnigramPostings  int    `json:"unigram_postings"`
	BigramPostings   int    `json:"bigram_postings"`
	FetchRetries     int    `json:"fetch_retries"`
	CacheHits        int    `json:"cache_hits"`
	CacheMisses      int    `json:"cache_misses"`
	BytesFetched     int64  `json:"bytes_fetched"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

type documentLine struct {
	Kind         string `json:"kind"`
	URL          string `json:"url"`
	CacheHit     bool   `json:"cache_hit"`
	NodeTexts    int    `json:"node_texts"`
	UnigramPosts int    `json:"unigram_postings"`
	BigramPosts  int    `json:"bigram_postings"`
	BodyBytes    int    `json:"body_bytes"`
}

// Write creates (or truncates) path and writes summary as NDJSON.
func Write(path string, summary report.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("jsonreport: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)

	totals := totalsLine{
		Kind:             "summary",
		DocumentsIndexed: summary.DocumentsIndexed,
		UnigramPostings:  summary.UnigramPostings,
		BigramPostings:   summary.BigramPostings,
		FetchRetries:     summary.FetchRetries,
		CacheHits:        summary.CacheHits,
		CacheMisses:      summary.CacheMisses,
		BytesFetched:     summary.BytesFetched,
		DurationSeconds:  summary.Duration.Seconds(),
	}
	if err := enc.Encode(totals); err != nil {
		return fmt.Errorf("jsonreport: write totals: %w", err)
	}

	for _, row := range summary.Documents {
		line := documentLine{
			Kind:         "document",
			URL:          row.URL,
			CacheHit:     row.CacheHit,
			NodeTexts:    row.NodeTexts,
			UnigramPosts: row.UnigramPosts,
			BigramPosts:  row.BigramPosts,
			BodyBytes:    row.BodyBytes,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("jsonreport: write row for %s: %w", row.URL, err)
		}
	}

	return nil
}
