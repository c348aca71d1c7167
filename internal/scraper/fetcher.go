package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kestrelcode/webdex/internal/bypass"
	"github.com/kestrelcode/webdex/internal/fingerprint"
	"github.com/kestrelcode/webdex/internal/metrics"
	"github.com/kestrelcode/webdex/pkg/httpclient"
	"github.com/kestrelcode/webdex/pkg/proxy"
	"github.com/kestrelcode/webdex/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

const (
	maxFetchRetries = 3
	retryBackoffUnit = 512 * time.Millisecond
	defaultTimeout   = 64 * time.Second
)

// FetchConfig configures the Fetcher's transport. Politeness spacing is
// the Crawler's responsibility, applied once per URL before Fetch is
// ever called, so FetchConfig carries no rate limiter of its own.
type FetchConfig struct {
	Timeout     time.Duration
	ProxyPool   *proxy.Pool
	UAPool      *useragent.Pool
	Fingerprint fingerprint.Profile
}

// FetchResult is a successfully retrieved document body. A suppressed
// challenge page yields no FetchResult (Fetch returns nil).
type FetchResult struct {
	Body       string
	StatusCode int
	Retries    int
}

// Fetcher performs single-URL GETs with fixed UA, disabled redirects,
// uTLS fingerprinting, retry/backoff, and bot-challenge suppression.
// Callers are expected to consult a store.DocumentStore before calling
// Fetch; the Fetcher itself never looks at the cache.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher builds a Fetcher. A single Fetcher should be reused
// across a crawl so the underlying transport's connections are pooled.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return nil, nil
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("fetcher: set up transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: -1, // no redirects followed
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher: create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// Fetch performs one GET against targetURL, retrying up to
// maxFetchRetries times on transport errors with a linear n*512ms
// backoff between attempts. A challenge page detected by internal/bypass
// is treated the same as a missing document: (nil, false, nil).
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*FetchResult, bool, error) {
	var lastErr error
	retries := 0

	for attempt := 0; attempt <= maxFetchRetries; attempt++ {
		if attempt > 0 {
			retries++
			metrics.FetchRetriesTotal.Inc()
			wait := time.Duration(attempt) * retryBackoffUnit
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}

		result, ok, err := f.attempt(ctx, targetURL)
		if err == nil {
			if result != nil {
				result.Retries = retries
			}
			if ok {
				metrics.FetchesTotal.WithLabelValues("ok").Inc()
			} else {
				metrics.FetchesTotal.WithLabelValues("challenge").Inc()
			}
			return result, ok, nil
		}
		lastErr = err
	}

	metrics.FetchesTotal.WithLabelValues("error").Inc()
	return nil, false, fmt.Errorf("fetcher: all attempts failed for %s: %w", targetURL, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, targetURL string) (*FetchResult, bool, error) {
	start := time.Now()

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	req.Header.Set("User-Agent", f.config.UAPool.GetSequential())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}

	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if detected, _ := bypass.Analyze(&bypass.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, bypass.DefaultDetectors()); detected {
		return nil, false, nil
	}

	return &FetchResult{Body: string(body), StatusCode: resp.StatusCode}, true, nil
}
