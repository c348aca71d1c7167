package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrelcode/webdex/internal/document"
	"github.com/kestrelcode/webdex/internal/fingerprint"
	"github.com/kestrelcode/webdex/internal/index"
)

type mapStore struct {
	mu    sync.Mutex
	body  map[string]string
	texts map[string][]document.NodeText
}

func newMapStore() *mapStore {
	return &mapStore{body: map[string]string{}, texts: map[string][]document.NodeText{}}
}

func (s *mapStore) ReadBody(ctx context.Context, url string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.body[url]
	return b, ok, nil
}

func (s *mapStore) SaveBody(ctx context.Context, url string, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body[url] = body
	return nil
}

func (s *mapStore) ReadTexts(ctx context.Context, url string) ([]document.NodeText, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.texts[url]
	return t, ok, nil
}

func (s *mapStore) SaveTexts(ctx context.Context, url string, texts []document.NodeText) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[url] = texts
	return nil
}

func (s *mapStore) Close() error { return nil }

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
	})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return fetcher
}

func TestCrawler_SameOriginRecursive(t *testing.T) {
	var hits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>hello world</p><a href="/page2">Page 2</a></body></html>`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>second page</p><a href="/page3">Page 3</a></body></html>`))
	})
	mux.HandleFunc("/page3", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>third page</p></body></html>`))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := newMapStore()
	idx := index.New()
	crawler := NewCrawler(newTestFetcher(t), st, idx, 2, slog.Default())

	err := crawler.Run(context.Background(), []Seed{{URL: ts.URL + "/", Recursive: true}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	set, ok := idx.UnigramMatch("hello")
	if !ok || len(set) != 1 {
		t.Errorf("expected root page indexed, got set=%v ok=%v", set, ok)
	}
	set, ok = idx.UnigramMatch("third")
	if !ok || len(set) != 1 {
		t.Errorf("expected recursively-discovered page3 indexed, got set=%v ok=%v", set, ok)
	}

	if rows := crawler.Rows(); len(rows) != 3 {
		t.Errorf("expected 3 document rows, got %d", len(rows))
	}
}

func TestCrawler_NonRecursiveStillIndexesDirectLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>root page</p><a href="/page2">Page 2</a></body></html>`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>leaf page</p><a href="/page3">Page 3</a></body></html>`))
	})
	mux.HandleFunc("/page3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>should not be reached</p></body></html>`))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := newMapStore()
	idx := index.New()
	crawler := NewCrawler(newTestFetcher(t), st, idx, 2, slog.Default())

	err := crawler.Run(context.Background(), []Seed{{URL: ts.URL + "/", Recursive: false}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := idx.UnigramMatch("leaf"); !ok {
		t.Error("expected the direct same-origin link to be indexed even for a non-recursive seed")
	}
	if _, ok := idx.UnigramMatch("reached"); ok {
		t.Error("page3 should not be reached: it is two hops from a non-recursive seed")
	}
}

func TestCrawler_ExternalOriginNotIndexed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="http://external.example/page">External</a></body></html>`))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := newMapStore()
	idx := index.New()
	crawler := NewCrawler(newTestFetcher(t), st, idx, 1, slog.Default())

	err := crawler.Run(context.Background(), []Seed{{URL: ts.URL + "/", Recursive: true}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok, _ := st.ReadTexts(context.Background(), "http://external.example/page"); ok {
		t.Error("external-origin link should never be fetched or cached")
	}
	if _, ok := idx.UnigramMatch("external"); ok {
		t.Error("external-origin link should never be indexed")
	}
}

func TestCrawler_CacheAvoidsRefetch(t *testing.T) {
	var hits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>cached content</p></body></html>`))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	st := newMapStore()
	idx := index.New()
	crawler := NewCrawler(newTestFetcher(t), st, idx, 1, slog.Default())

	seeds := []Seed{{URL: ts.URL + "/", Recursive: false}}
	if err := crawler.Run(context.Background(), seeds); err != nil {
		t.Fatalf("first run: %v", err)
	}

	crawler2 := NewCrawler(newTestFetcher(t), st, idx, 1, slog.Default())
	if err := crawler2.Run(context.Background(), seeds); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if atomic.LoadInt64(&hits) != 1 {
		t.Errorf("expected exactly 1 network fetch across both runs, got %d", hits)
	}
}
