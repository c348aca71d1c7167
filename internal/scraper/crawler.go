package scraper

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kestrelcode/webdex/internal/document"
	"github.com/kestrelcode/webdex/internal/index"
	"github.com/kestrelcode/webdex/internal/metrics"
	"github.com/kestrelcode/webdex/internal/report"
	"github.com/kestrelcode/webdex/internal/store"
	"github.com/kestrelcode/webdex/internal/urlnorm"
	"github.com/kestrelcode/webdex/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

// politenessInterval is the minimum spacing between cache-miss
// fetches: 1/0.064s = 15.625 requests per second.
const politenessInterval = 64 * time.Millisecond

// Seed is one configured crawl root.
type Seed struct {
	URL       string
	Recursive bool
}

// visitedScope is the per-seed "have we processed this URL yet" set.
// A URL is inserted at most once per scope; Insert reports whether
// this call was the first.
type visitedScope struct {
	mu      sync.Mutex
	visited map[string]struct{}
}

func newVisitedScope() *visitedScope {
	return &visitedScope{visited: make(map[string]struct{})}
}

func (v *visitedScope) Insert(canon string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, seen := v.visited[canon]; seen {
		return false
	}
	v.visited[canon] = struct{}{}
	return true
}

type frontierEntry struct {
	URL       string
	Recursive bool
	Scope     *visitedScope
}

// frontier is the shared LIFO work stack plus in-flight task count
// that lets pop() block a caller until either a new entry arrives or
// the crawl is provably finished (nothing queued, nothing running).
type frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []frontierEntry
	inFlight int
}

func newFrontier() *frontier {
	f := &frontier{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *frontier) push(e frontierEntry) {
	f.mu.Lock()
	f.items = append(f.items, e)
	f.cond.Signal()
	f.mu.Unlock()
}

// pop blocks until an entry is available. It returns ok=false once the
// frontier is empty and no task is in flight to produce more work.
func (f *frontier) pop() (frontierEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if n := len(f.items); n > 0 {
			e := f.items[n-1]
			f.items = f.items[:n-1]
			f.inFlight++
			return e, true
		}
		if f.inFlight == 0 {
			return frontierEntry{}, false
		}
		f.cond.Wait()
	}
}

// done marks one previously popped entry as fully processed.
func (f *frontier) done() {
	f.mu.Lock()
	f.inFlight--
	f.cond.Broadcast()
	f.mu.Unlock()
}

// Crawler drives the frontier: it pops entries, fetches and extracts
// each page, and pushes newly discovered same-origin links back onto
// the frontier, bounded to a fixed number of concurrent tasks.
type Crawler struct {
	fetcher     *Fetcher
	store       store.DocumentStore
	index       *index.Index
	limiter     *ratelimit.Limiter
	concurrency int
	logger      *slog.Logger

	rowsMu sync.Mutex
	rows   []report.DocumentRow

	retriesMu    sync.Mutex
	totalRetries int
}

// NewCrawler builds a Crawler around an already-constructed Fetcher,
// DocumentStore, and Index.
func NewCrawler(fetcher *Fetcher, st store.DocumentStore, idx *index.Index, concurrency int, logger *slog.Logger) *Crawler {
	if concurrency <= 0 {
		concurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		fetcher:     fetcher,
		store:       st,
		index:       idx,
		limiter:     ratelimit.NewLimiter(float64(time.Second) / float64(politenessInterval)),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run drains the frontier seeded from seeds, one per-seed visited
// scope each, bounded to c.concurrency concurrent in-flight tasks.
func (c *Crawler) Run(ctx context.Context, seeds []Seed) error {
	fr := newFrontier()
	for _, seed := range seeds {
		fr.push(frontierEntry{URL: seed.URL, Recursive: seed.Recursive, Scope: newVisitedScope()})
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for {
		entry, ok := fr.pop()
		if !ok {
			break
		}
		entry := entry
		g.Go(func() error {
			defer fr.done()
			c.processEntry(gCtx, entry, fr)
			return nil
		})
	}

	return g.Wait()
}

// Rows returns the per-document rows accumulated so far, for
// report.GenerateSummary: one row per URL, the first recorded for it.
// A page processed again as a frontier entry (after being fetched as a
// link, or re-pushed by its own scope) is not counted twice.
func (c *Crawler) Rows() []report.DocumentRow {
	c.rowsMu.Lock()
	defer c.rowsMu.Unlock()
	seen := make(map[string]struct{}, len(c.rows))
	out := make([]report.DocumentRow, 0, len(c.rows))
	for _, row := range c.rows {
		if _, dup := seen[row.URL]; dup {
			continue
		}
		seen[row.URL] = struct{}{}
		out = append(out, row)
	}
	return out
}

func (c *Crawler) addRow(row report.DocumentRow) {
	c.rowsMu.Lock()
	c.rows = append(c.rows, row)
	c.rowsMu.Unlock()
}

// TotalRetries returns the number of fetch retries spent so far on
// fetches that eventually returned a document, for
// report.GenerateSummary. Retries of fetches that failed on every
// attempt are not counted.
func (c *Crawler) TotalRetries() int {
	c.retriesMu.Lock()
	defer c.retriesMu.Unlock()
	return c.totalRetries
}

func (c *Crawler) addRetries(n int) {
	if n == 0 {
		return
	}
	c.retriesMu.Lock()
	c.totalRetries += n
	c.retriesMu.Unlock()
}

type crawlPair struct {
	URL   string
	Texts []document.NodeText
}

// processEntry fetches rootURL, extracts its texts and same-origin
// links, then for each link either serves cached texts or performs a
// fresh fetch+extract. Every (url, texts) pair discovered is run
// through the scope's visited gate before being saved/indexed/pushed.
func (c *Crawler) processEntry(ctx context.Context, entry frontierEntry, fr *frontier) {
	for _, pair := range c.crawlOne(ctx, entry.URL) {
		canon, err := urlnorm.Canonicalize(pair.URL)
		if err != nil {
			c.logger.Warn("skipping unparseable url", "url", pair.URL, "err", err)
			continue
		}

		if !entry.Scope.Insert(canon) {
			continue
		}

		if pair.Texts == nil {
			continue
		}

		if err := c.store.SaveTexts(ctx, canon, pair.Texts); err != nil {
			c.logger.Warn("failed to save extracted texts", "url", canon, "err", err)
		}

		sameOrigin := urlnorm.SameOrigin(canon, entry.URL)
		if sameOrigin {
			c.index.IndexTexts(canon, pair.Texts)
		}

		if sameOrigin && entry.Recursive {
			fr.push(frontierEntry{URL: canon, Recursive: true, Scope: entry.Scope})
		}
	}
}

// crawlOne fetches rootURL (cache-or-network), extracts its NodeTexts
// and same-origin outbound links, and resolves each link to its own
// NodeTexts (cached, or a fresh politeness-throttled fetch+extract).
func (c *Crawler) crawlOne(ctx context.Context, rootURL string) []crawlPair {
	rootTexts, links := c.fetchRoot(ctx, rootURL)
	pairs := []crawlPair{{URL: rootURL, Texts: rootTexts}}
	if rootTexts == nil {
		return pairs
	}

	for _, link := range links {
		if !urlnorm.SameOrigin(rootURL, link) {
			continue
		}
		pairs = append(pairs, crawlPair{URL: link, Texts: c.resolveLinkTexts(ctx, link)})
	}
	return pairs
}

func (c *Crawler) fetchRoot(ctx context.Context, rawURL string) ([]document.NodeText, []string) {
	body, cacheHit, ok := c.readOrFetchBody(ctx, rawURL)
	if !ok {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(body)))
	if err != nil {
		c.logger.Warn("failed to parse document", "url", rawURL, "err", err)
		return nil, nil
	}

	base, err := docBaseURL(rawURL)
	if err != nil {
		return nil, nil
	}

	texts := document.ExtractTexts(doc)
	links := document.ExtractLinks(base, doc)

	c.addRow(report.DocumentRow{
		URL:          rawURL,
		CacheHit:     cacheHit,
		NodeTexts:    len(texts),
		UnigramPosts: countUnigramTokens(texts),
		BigramPosts:  countBigramTokens(texts),
		BodyBytes:    len(body),
	})

	return texts, links
}

// resolveLinkTexts returns the NodeTexts for link, preferring a
// cached extraction (no network, no politeness sleep) over a fresh
// fetch+extract.
func (c *Crawler) resolveLinkTexts(ctx context.Context, link string) []document.NodeText {
	if texts, ok, err := c.store.ReadTexts(ctx, link); err == nil && ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return texts
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	body, _, ok := c.readOrFetchBody(ctx, link)
	if !ok {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(body)))
	if err != nil {
		c.logger.Warn("failed to parse document", "url", link, "err", err)
		return nil
	}

	texts := document.ExtractTexts(doc)
	c.addRow(report.DocumentRow{
		URL:          link,
		CacheHit:     false,
		NodeTexts:    len(texts),
		UnigramPosts: countUnigramTokens(texts),
		BigramPosts:  countBigramTokens(texts),
		BodyBytes:    len(body),
	})
	return texts
}

// readOrFetchBody serves rawURL's body from the cache if present;
// otherwise it applies the politeness throttle and performs a network
// fetch, persisting the body on success.
func (c *Crawler) readOrFetchBody(ctx context.Context, rawURL string) (body string, cacheHit bool, ok bool) {
	if cached, hit, err := c.store.ReadBody(ctx, rawURL); err == nil && hit {
		return cached, true, true
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, false
	}

	result, fetched, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		c.logger.Warn("fetch failed", "url", rawURL, "err", err)
		return "", false, false
	}
	if !fetched {
		return "", false, false
	}
	c.addRetries(result.Retries)

	if err := c.store.SaveBody(ctx, rawURL, result.Body); err != nil {
		c.logger.Warn("failed to save body", "url", rawURL, "err", err)
	}
	return result.Body, false, true
}

func docBaseURL(rawURL string) (*url.URL, error) {
	return url.Parse(rawURL)
}

func countUnigramTokens(texts []document.NodeText) int {
	n := 0
	for _, seq := range texts {
		n += len(seq)
	}
	return n
}

func countBigramTokens(texts []document.NodeText) int {
	n := 0
	for _, seq := range texts {
		if len(seq) > 1 {
			n += len(seq) - 1
		}
	}
	return n
}
