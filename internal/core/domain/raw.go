package domain

// RawDocument represents a page fetched by the crawler.
// It is the crawler's output before cleaning.
type RawDocument struct {
	// URL is the page location. Unique within one crawl.
	URL string

	// Content is the raw markup.
	Content string

	// Title is the page title as seen by the crawler. May be empty.
	Title string

	// Depth is the link distance from the seed URL.
	Depth int
}
