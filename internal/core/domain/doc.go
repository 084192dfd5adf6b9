// Package domain contains the core business entities of the Piolet
// retrieval engine: chunks, source documents, search options and results.
// It has no dependencies on adapters or infrastructure.
package domain
