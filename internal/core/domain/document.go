package domain

// Default metadata values used when a page or a stored row lacks them.
const (
	DefaultTitle  = "Untitled"
	DefaultSource = "Unknown"
)

// Document is a cleaned page.
// It is consumed immediately by the chunker and never persisted.
type Document struct {
	// URL is the origin of the page and becomes the passage source.
	URL string

	// Title is the human-readable title.
	Title string

	// Content is the cleaned text: trimmed, non-empty lines joined by "\n".
	Content string
}

// Passage is a chunk of cleaned text ready for embedding.
type Passage struct {
	// Text is the chunk content, truncated to MaxTextLength once fingerprinted.
	Text string

	// Title is inherited from the parent document.
	Title string

	// Source is the parent document URL.
	Source string

	// Position is the ordinal position within the parent document.
	Position int

	// Fingerprint is set by the fingerprint processor.
	Fingerprint string
}
