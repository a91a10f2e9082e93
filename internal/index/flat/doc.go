// Package flat implements an exact in-memory vector index.
//
// Every query compares against every stored vector. Results are ordered by
// distance ascending for L2 and by similarity descending for inner product,
// with ties broken by id so that equal inputs give equal outputs.
package flat
