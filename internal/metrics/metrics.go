// Package metrics exposes Prometheus instrumentation for the crawl and
// index pipeline. Metrics are purely observational: nothing here
// participates in the index's or crawler's correctness contract.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdex_fetches_total",
			Help: "Total number of fetch attempts, by outcome.",
		},
		[]string{"outcome"}, // ok, error, challenge
	)

	FetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdex_fetch_retries_total",
			Help: "Total number of fetch retry attempts after a transport error.",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdex_cache_lookups_total",
			Help: "Total number of cached extracted-text lookups for discovered links, by result.",
		},
		[]string{"result"}, // hit, miss
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webdex_fetch_duration_seconds",
			Help:    "Duration of HTTP fetches in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 64},
		},
	)

	indexDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webdex_index_documents",
			Help: "Number of documents currently assigned a DocCode.",
		},
	)

	indexWords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webdex_index_words",
			Help: "Number of distinct words currently assigned a WordCode.",
		},
	)

	postingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdex_index_postings_total",
			Help: "Total number of posting insertions, by kind.",
		},
		[]string{"kind"}, // unigram, ngram
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdex_proxy_failures_total",
			Help: "Total number of failed requests through a given proxy, by proxy URL.",
		},
		[]string{"proxy"},
	)
)

// SetIndexDocuments records the current number of indexed documents.
func SetIndexDocuments(n int) { indexDocuments.Set(float64(n)) }

// SetIndexWords records the current number of distinct indexed words.
func SetIndexWords(n int) { indexWords.Set(float64(n)) }

// IncPostings records one posting insertion of the given kind.
func IncPostings(kind string) { postingsTotal.WithLabelValues(kind).Inc() }

// Server encapsulates the optional /metrics HTTP endpoint.
type Server struct {
	srv *http.Server
}

// Start begins listening on 127.0.0.1:port and exposes /metrics. The
// server runs in a background goroutine; call Stop to release it. A
// port of 0 is a no-op that returns a nil *Server.
func Start(port int) *Server {
	if port == 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server, if one was started.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
