// Package connectors holds the crawlers that fetch raw pages for the
// synchronizer. Each subpackage implements driven.Crawler for one kind of
// source; web is the only one today.
package connectors
