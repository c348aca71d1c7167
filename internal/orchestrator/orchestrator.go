// Package orchestrator wires configuration, the document store, the
// crawler, the index, and the REPL together and drives a single run
// from cold start to summary report.
package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelcode/webdex/internal/config"
	"github.com/kestrelcode/webdex/internal/fingerprint"
	"github.com/kestrelcode/webdex/internal/index"
	"github.com/kestrelcode/webdex/internal/metrics"
	"github.com/kestrelcode/webdex/internal/query"
	"github.com/kestrelcode/webdex/internal/report"
	"github.com/kestrelcode/webdex/internal/report/csvreport"
	"github.com/kestrelcode/webdex/internal/report/jsonreport"
	"github.com/kestrelcode/webdex/internal/scraper"
	"github.com/kestrelcode/webdex/internal/store"
	"github.com/kestrelcode/webdex/internal/store/postgres"
	"github.com/kestrelcode/webdex/internal/store/sqlite"
	"github.com/kestrelcode/webdex/pkg/proxy"
	"github.com/kestrelcode/webdex/pkg/useragent"
)

// Orchestrator owns every long-lived collaborator for one run: the
// document store, the index, the crawler, and the optional metrics
// server. Run is safe to call exactly once.
type Orchestrator struct {
	cfg     *config.Config
	store   store.DocumentStore
	index   *index.Index
	crawler *scraper.Crawler
	metrics *metrics.Server
	logger  *slog.Logger
	runID   string
}

// New builds an Orchestrator from a loaded Config: opens the
// configured DocumentStore, builds the Index, and wires a Fetcher and
// Crawler around them. It does not start crawling.
func New(ctx context.Context, cfg *config.Config) (*Orchestrator, error) {
	runID := uuid.NewString()
	logger := slog.Default().With("run_id", runID)

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open store: %w", err)
	}

	idx := index.New()

	var proxyPool *proxy.Pool
	if len(cfg.Proxy.URLs) > 0 {
		proxyPool = proxy.NewPool(proxy.Config{
			MaxFailures: cfg.Proxy.MaxFailures,
			Cooldown:    time.Duration(cfg.Proxy.CooldownSeconds) * time.Second,
		})
		if err := proxyPool.Add(cfg.Proxy.URLs...); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("orchestrator: load proxy pool: %w", err)
		}
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		UAPool:      useragent.NewPool([]string{useragent.DefaultUA}),
		Fingerprint: fingerprint.Profile(cfg.Crawler.Fingerprint),
		ProxyPool:   proxyPool,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("orchestrator: build fetcher: %w", err)
	}

	crawler := scraper.NewCrawler(fetcher, st, idx, cfg.Crawler.Concurrency, logger)

	return &Orchestrator{
		cfg:     cfg,
		store:   st,
		index:   idx,
		crawler: crawler,
		metrics: metrics.Start(cfg.Metrics.Port),
		logger:  logger,
		runID:   runID,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.DocumentStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run drives one full crawl of the configured seeds, writes the
// configured report files, and then serves the interactive query REPL
// against stdin/stdout until EOF or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	defer o.Close()

	seeds := make([]scraper.Seed, len(o.cfg.Websites))
	for i, w := range o.cfg.Websites {
		seeds[i] = scraper.Seed{URL: w.URL, Recursive: w.Recursive()}
	}

	o.logger.Info("crawl starting", "seeds", len(seeds))
	start := time.Now()
	if err := o.crawler.Run(ctx, seeds); err != nil {
		return fmt.Errorf("orchestrator: crawl: %w", err)
	}
	end := time.Now()
	o.logger.Info("crawl finished", "duration", end.Sub(start))

	summary := report.GenerateSummary(o.crawler.Rows(), o.crawler.TotalRetries(), start, end)
	if err := report.WriteText(stdout, summary); err != nil {
		o.logger.Warn("failed to write text summary", "err", err)
	}
	o.writeReports(summary)

	return o.repl(ctx, stdin, stdout)
}

func (o *Orchestrator) writeReports(summary report.Summary) {
	if path := o.cfg.Report.CSVPath; path != "" {
		if err := csvreport.Write(path, summary); err != nil {
			o.logger.Warn("failed to write csv report", "path", path, "err", err)
		}
	}
	if path := o.cfg.Report.JSONPath; path != "" {
		if err := jsonreport.Write(path, summary); err != nil {
			o.logger.Warn("failed to write json report", "path", path, "err", err)
		}
	}
}

// repl reads one query per line from stdin until EOF or ctx is done,
// printing the matching URL set. A line of the form "explain <query>"
// additionally prints, under each matching URL, every cached NodeText
// of that URL that contains a query term.
func (o *Orchestrator) repl(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		explain := false
		if rest, ok := strings.CutPrefix(line, "explain "); ok {
			explain = true
			line = rest
		}

		q := query.Parse(line)
		urls, ok := query.Evaluate(q, o.index)
		if !ok {
			fmt.Fprintln(stdout, "(empty query)")
			continue
		}

		sorted := make([]string, 0, len(urls))
		for u := range urls {
			sorted = append(sorted, u)
		}
		sort.Strings(sorted)

		for _, u := range sorted {
			fmt.Fprintln(stdout, u)
			if explain {
				terms := append(append([]string{}, q.Unigrams...), q.Exact...)
				for _, s := range query.Snippet(ctx, o.index, o.store, u, terms) {
					fmt.Fprintf(stdout, "  %s\n", s)
				}
			}
		}
	}
	return scanner.Err()
}

// Close releases the store's connection pool and stops the metrics
// server, if one was started.
func (o *Orchestrator) Close() error {
	if o.metrics != nil {
		_ = o.metrics.Stop(context.Background())
	}
	return o.store.Close()
}
