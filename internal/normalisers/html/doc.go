// Package html provides a Normaliser implementation for HTML pages.
// It parses markup with golang.org/x/net/html, drops page chrome and
// non-content elements, and emits the remaining text one block per line.
package html
