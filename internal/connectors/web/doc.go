// Package web provides a breadth-first website crawler.
//
// The crawler starts at a seed URL and follows links that stay on the seed's
// scheme and host and under the seed's path, up to a maximum link depth.
// Only HTML responses are kept. Requests are throttled with a token bucket
// and honour Retry-After on 429 responses.
package web
