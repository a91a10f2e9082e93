package driven

import (
	"context"

	"github.com/custodia-labs/sitesage/internal/core/domain"
)

// Crawler fetches the pages of a website.
type Crawler interface {
	// Crawl walks same-origin links from seed and returns every page fetched.
	// A failed page is skipped; only a failed seed is an error.
	Crawl(ctx context.Context, seed string) ([]domain.RawDocument, error)
}
