package driven

import "context"

// EmbeddingService maps text to fixed-dimension vectors. It is a pure
// capability shared by ingestion (fragment vectors) and retrieval (query
// vectors); it holds no retrieval logic.
//
// Batch semantics: EmbedBatch is order-preserving and all-or-nothing. Any
// service error fails the whole batch; there are no partial results.
// Callers own the batching and must keep batches within MaxBatchSize.
type EmbeddingService interface {
	// Embed generates a vector embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one embedding per input text, in input order.
	// Returns domain.ErrBatchTooLarge when len(texts) > MaxBatchSize.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. All vectors produced
	// by one configuration share it; it must match the chunk store schema.
	Dimensions() int

	// MaxBatchSize returns the largest batch EmbedBatch accepts.
	MaxBatchSize() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
