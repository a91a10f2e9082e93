package web

import (
	"time"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

const (
	// DefaultMaxDepth is the default link depth from the seed.
	DefaultMaxDepth = 2

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRequestsPerSecond is the default politeness rate.
	DefaultRequestsPerSecond = 5.0

	// DefaultMaxPages caps the number of pages fetched in one crawl.
	DefaultMaxPages = 1000

	// DefaultConcurrency is the number of in-flight requests per depth level.
	DefaultConcurrency = 4

	// DefaultUserAgent identifies the crawler to web servers.
	DefaultUserAgent = "sitesage-crawler/1.0"

	// MaxBodyBytes bounds how much of a response body is read.
	MaxBodyBytes = 10 << 20
)

// Config holds crawler options.
type Config struct {
	// MaxDepth is the maximum link distance from the seed. Zero fetches the seed only.
	MaxDepth int

	// Exclude lists URL or path prefixes that are never fetched.
	Exclude []string

	// Timeout bounds each request.
	Timeout time.Duration

	// RequestsPerSecond is the politeness rate. Zero or less disables throttling.
	RequestsPerSecond float64

	// MaxPages caps the number of pages fetched.
	MaxPages int

	// Concurrency is the number of in-flight requests.
	Concurrency int

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns the crawler defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:          DefaultMaxDepth,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		MaxPages:          DefaultMaxPages,
		Concurrency:       DefaultConcurrency,
		UserAgent:         DefaultUserAgent,
	}
}

// ConfigFromSettings builds a crawler config from corpus settings.
func ConfigFromSettings(s domain.CorpusSettings) Config {
	cfg := DefaultConfig()
	cfg.MaxDepth = s.MaxDepth
	cfg.Exclude = append([]string(nil), s.Exclude...)
	if s.Timeout > 0 {
		cfg.Timeout = s.Timeout
	}
	cfg.RequestsPerSecond = s.RequestsPerSecond
	return cfg
}

func (c Config) withDefaults() Config {
	if c.MaxDepth < 0 {
		c.MaxDepth = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}
