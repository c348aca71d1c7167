// Package config loads the webdex configuration file: a declarative
// list of seed websites plus a handful of optional tuning tables.
// Flag parsing and config-file schema validation beyond this shape
// remain out of scope, per the system design.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Website is one configured crawl seed.
type Website struct {
	URL               string `toml:"url"`
	RecursivelyCrawl  bool   `toml:"recursively_crawl"`
	recursiveExplicit bool
}

// Recursive reports whether this seed should be crawled recursively.
// Defaults to true when the field is omitted from the config file.
func (w Website) Recursive() bool {
	if !w.recursiveExplicit {
		return true
	}
	return w.RecursivelyCrawl
}

// StoreConfig configures the DocumentStore backend.
type StoreConfig struct {
	Driver string `toml:"driver"` // "sqlite" (default) or "postgres"
	DSN    string `toml:"dsn"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Port int `toml:"port"` // 0 disables the server
}

// ReportConfig configures the optional post-crawl export files.
type ReportConfig struct {
	CSVPath  string `toml:"csv_path"`
	JSONPath string `toml:"json_path"`
}

// CrawlerConfig tunes the crawl's concurrency and fetch behavior.
type CrawlerConfig struct {
	Concurrency int    `toml:"concurrency"`
	Fingerprint string `toml:"fingerprint"` // "chrome" (default), "firefox", "safari", "go", or "random"
}

// ProxyConfig configures optional outbound proxy rotation for
// fetches. An empty URLs list disables proxying entirely, matching
// spec.md's un-proxied default.
type ProxyConfig struct {
	URLs            []string `toml:"urls"`
	MaxFailures     int      `toml:"max_failures"`
	CooldownSeconds int      `toml:"cooldown_seconds"`
}

// Config is the top-level shape of config.toml.
type Config struct {
	Websites []Website     `toml:"websites"`
	Store    StoreConfig   `toml:"store"`
	Metrics  MetricsConfig `toml:"metrics"`
	Report   ReportConfig  `toml:"report"`
	Crawler  CrawlerConfig `toml:"crawler"`
	Proxy    ProxyConfig   `toml:"proxy"`
}

// rawConfig decodes websites as plain maps so Load can distinguish an omitted recursively_crawl key from
// an explicit "false", since go-toml/v2 zero-values booleans it never saw.
type rawConfig struct {
	Websites []map[string]any `toml:"websites"`
	Store    StoreConfig      `toml:"store"`
	Metrics  MetricsConfig    `toml:"metrics"`
	Report   ReportConfig     `toml:"report"`
	Crawler  CrawlerConfig    `toml:"crawler"`
	Proxy    ProxyConfig      `toml:"proxy"`
}

// Load reads and decodes the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := &Config{
		Store:   raw.Store,
		Metrics: raw.Metrics,
		Report:  raw.Report,
		Crawler: raw.Crawler,
		Proxy:   raw.Proxy,
	}

	for _, m := range raw.Websites {
		url, _ := m["url"].(string)
		if url == "" {
			return nil, fmt.Errorf("parse config %s: website entry missing url", path)
		}
		w := Website{URL: url}
		if v, ok := m["recursively_crawl"]; ok {
			w.recursiveExplicit = true
			if b, ok := v.(bool); ok {
				w.RecursivelyCrawl = b
			}
		}
		cfg.Websites = append(cfg.Websites, w)
	}

	if len(cfg.Websites) == 0 {
		return nil, fmt.Errorf("parse config %s: no websites configured", path)
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = "webdex-cache.db"
	}
	if cfg.Crawler.Concurrency <= 0 {
		cfg.Crawler.Concurrency = 8
	}
	if cfg.Crawler.Fingerprint == "" {
		cfg.Crawler.Fingerprint = "chrome"
	}

	return cfg, nil
}
