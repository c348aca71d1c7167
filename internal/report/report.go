// Package report summarizes a completed crawl/index run: documents
// indexed, posting counts, cache effectiveness, retries, and bytes
// fetched.
package report

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// DocumentRow is a single crawled document's contribution to the
// summary: one per URL that was fetched (cache hit or miss) and
// indexed during the run.
type DocumentRow struct {
	URL           string
	CacheHit      bool
	NodeTexts     int
	UnigramPosts  int
	BigramPosts   int
	BodyBytes     int
}

// Summary aggregates a crawl/index run for the REPL banner and the
// CSV/NDJSON exporters.
type Summary struct {
	DocumentsIndexed int
	UnigramPostings  int
	BigramPostings   int
	FetchRetries     int
	CacheHits        int
	CacheMisses      int
	BytesFetched     int64
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	Documents        []DocumentRow
}

// GenerateSummary aggregates per-document rows and ambient counters
// (retries already tallied by the fetcher) into a Summary.
func GenerateSummary(rows []DocumentRow, fetchRetries int, start, end time.Time) Summary {
	s := Summary{
		FetchRetries: fetchRetries,
		StartTime:    start,
		EndTime:      end,
		Duration:     end.Sub(start),
		Documents:    rows,
	}

	for _, r := range rows {
		s.DocumentsIndexed++
		s.UnigramPostings += r.UnigramPosts
		s.BigramPostings += r.BigramPosts
		s.BytesFetched += int64(r.BodyBytes)
		if r.CacheHit {
			s.CacheHits++
		} else {
			s.CacheMisses++
		}
	}

	return s
}

// WriteText writes a human-readable text summary to w.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Crawl summary
-------------
Time:              {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:          {{.Duration}}
Documents indexed: {{.DocumentsIndexed}}
Unigram postings:  {{.UnigramPostings}}
Bigram postings:   {{.BigramPostings}}
Fetch retries:     {{.FetchRetries}}
Cache hits/misses: {{.CacheHits}}/{{.CacheMisses}}
Bytes fetched:     {{.BytesHuman}}
`
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	data := struct {
		Summary
		BytesHuman string
	}{summary, humanize.Bytes(uint64(summary.BytesFetched))}

	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("report: render text summary: %w", err)
	}
	return nil
}
