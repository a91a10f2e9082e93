package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// Ensure Crawler implements the interface.
var _ driven.Crawler = (*Crawler)(nil)

// ErrNotHTML indicates a response that is not an HTML page.
var ErrNotHTML = errors.New("not an html page")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Crawler fetches the pages reachable from a seed URL.
type Crawler struct {
	cfg     Config
	client  *http.Client
	limiter *RateLimiter
}

// Option configures the crawler.
type Option func(*Crawler)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cr *Crawler) {
		if c != nil {
			cr.client = c
		}
	}
}

// New creates a crawler.
func New(cfg Config, opts ...Option) *Crawler {
	cfg = cfg.withDefaults()
	c := &Crawler{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: NewRateLimiter(cfg.RequestsPerSecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// page is one fetched page with its outgoing links.
type page struct {
	doc   domain.RawDocument
	links []*url.URL
}

// Crawl fetches the seed and follows in-scope links breadth first.
// Pages that fail are logged and skipped. A failure to fetch the seed is
// returned as an error.
func (c *Crawler) Crawl(ctx context.Context, seed string) ([]domain.RawDocument, error) {
	seedURL, err := ParseSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	sc := newScope(seedURL, c.cfg.Exclude)

	first, err := c.fetch(ctx, seedURL, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch seed: %w", err)
	}

	visited := map[string]bool{seedURL.String(): true, first.doc.URL: true}
	fetched := map[string]bool{first.doc.URL: true}
	docs := []domain.RawDocument{first.doc}
	frontier := c.enqueue(first.links, sc, visited)

	for depth := 1; depth <= c.cfg.MaxDepth && len(frontier) > 0; depth++ {
		if remaining := c.cfg.MaxPages - len(docs); len(frontier) > remaining {
			logger.Warn("page limit %d reached, skipping %d urls", c.cfg.MaxPages, len(frontier)-remaining)
			frontier = frontier[:remaining]
		}

		pages, err := c.fetchLevel(ctx, frontier, depth, sc)
		if err != nil {
			return nil, err
		}

		var next []*url.URL
		for _, p := range pages {
			// Redirects can land two frontier URLs on the same page.
			if p == nil || fetched[p.doc.URL] {
				continue
			}
			fetched[p.doc.URL] = true
			visited[p.doc.URL] = true
			docs = append(docs, p.doc)
			if depth < c.cfg.MaxDepth {
				next = append(next, c.enqueue(p.links, sc, visited)...)
			}
		}
		frontier = next
	}

	logger.Debug("crawled %d pages from %s", len(docs), seedURL)
	return docs, nil
}

// enqueue marks in-scope unseen links as visited and returns them.
func (c *Crawler) enqueue(links []*url.URL, sc scope, visited map[string]bool) []*url.URL {
	var out []*url.URL
	for _, u := range links {
		key := u.String()
		if visited[key] || !sc.allows(u) {
			continue
		}
		visited[key] = true
		out = append(out, u)
	}
	return out
}

// fetchLevel fetches one depth level concurrently. Results keep frontier order.
func (c *Crawler) fetchLevel(ctx context.Context, frontier []*url.URL, depth int, sc scope) ([]*page, error) {
	pages := make([]*page, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	var mu sync.Mutex
	skipped := 0

	for i, u := range frontier {
		g.Go(func() error {
			p, err := c.fetch(gctx, u, depth)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("skipping %s: %v", u, err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			if final, perr := url.Parse(p.doc.URL); perr == nil && !sc.allows(final) {
				logger.Debug("skipping %s: redirected out of scope to %s", u, p.doc.URL)
				return nil
			}
			pages[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Info("depth %d: %d of %d pages skipped", depth, skipped, len(frontier))
	}
	return pages, nil
}

// fetch downloads one page and extracts its title and links.
func (c *Crawler) fetch(ctx context.Context, u *url.URL, depth int) (*page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.limiter.Observe(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%s: %w", u, ErrNotHTML)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = normalise(resp.Request.URL)
	}

	title, links, err := parsePage(final, string(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", final, err)
	}

	logger.Debug("fetched %s (depth %d, %d links, %s)", final, depth, len(links), time.Since(start))
	return &page{
		doc: domain.RawDocument{
			URL:     final.String(),
			Content: string(body),
			Title:   title,
			Depth:   depth,
		},
		links: links,
	}, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
