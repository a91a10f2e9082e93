package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrEmptyCrawl indicates the crawl produced no passages while the index
	// still holds entries. Applying it would delete the whole collection.
	ErrEmptyCrawl = errors.New("crawl returned no passages")

	// ErrDuplicateFingerprint indicates an insert would repeat a primary key.
	ErrDuplicateFingerprint = errors.New("duplicate fingerprint")

	// ErrDimensionMismatch indicates a vector does not match the collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates an upstream API answered 429.
	ErrRateLimited = errors.New("rate limited")
)

// UpstreamError wraps a failed call to an external provider.
type UpstreamError struct {
	// Provider names the service, e.g. "openai".
	Provider string

	// StatusCode is the HTTP status, 0 when the request never completed.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches ErrRateLimited for 429 responses.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// NewUpstreamError builds an UpstreamError.
func NewUpstreamError(provider string, status int, err error) error {
	return &UpstreamError{Provider: provider, StatusCode: status, Err: err}
}
