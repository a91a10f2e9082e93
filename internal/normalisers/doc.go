// Package normalisers holds implementations of driven.Normaliser, which turn
// raw fetched markup into clean documents ready for chunking.
package normalisers
