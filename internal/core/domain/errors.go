package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates a source document is missing or
	// unreadable. The ingestion batch skips the document and continues.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNoExtractableText indicates extraction produced no usable text.
	// The document contributes zero chunks; this is a warning, not a hard
	// failure.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrBatchTooLarge indicates an embedding batch exceeds the service's
	// configured maximum. Callers must split their work into smaller
	// batches.
	ErrBatchTooLarge = errors.New("embedding batch too large")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Neither ingestion nor retrieval can run without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the generation service is not configured.
	// Retrieval still works; answer generation is disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrStoreUnavailable indicates the chunk store is not configured.
	ErrStoreUnavailable = errors.New("chunk store unavailable")

	// ErrUnsupportedFormat indicates no extractor handles the source format.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
