// Package csvreport writes a crawl Summary's per-document rows to a
// CSV file, one row per fetched URL.
package csvreport

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/kestrelcode/webdex/internal/report"
)

var headers = []string{
	"url",
	"cache_hit",
	"node_texts",
	"unigram_postings",
	"bigram_postings",
	"body_bytes",
}

// Write creates (or truncates) path and writes summary's document
// rows as CSV, header row first.
func Write(path string, summary report.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvreport: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("csvreport: write header: %w", err)
	}

	for _, row := range summary.Documents {
		record := []string{
			row.URL,
			strconv.FormatBool(row.CacheHit),
			strconv.Itoa(row.NodeTexts),
			strconv.Itoa(row.UnigramPosts),
			strconv.Itoa(row.BigramPosts),
			strconv.Itoa(row.BodyBytes),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csvreport: write row for %s: %w", row.URL, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvreport: flush: %w", err)
	}
	return nil
}
