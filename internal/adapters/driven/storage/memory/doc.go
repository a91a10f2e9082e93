// Package memory provides process-local implementations of the driven ports.
// Nothing survives the process. They back ephemeral runs and tests.
package memory
