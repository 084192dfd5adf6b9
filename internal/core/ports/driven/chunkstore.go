package driven

import (
	"context"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

// ChunkFilter narrows a chunk store query.
type ChunkFilter struct {
	// Locale restricts matches to a language tag. Empty means any.
	Locale string

	// DocTypes restricts matches to the given document types. Empty means
	// any.
	DocTypes []string
}

// ChunkStore persists chunks and serves both halves of the hybrid search:
// nearest-neighbour vector search and lexical (trigram) similarity search
// over the same rows.
//
// Backed by Postgres (pgvector + pg_trgm) in production and by an in-memory
// implementation for tests and local runs.
type ChunkStore interface {
	// UpsertChunks writes chunks keyed by id, inserting new rows and
	// overwriting existing ones. All chunks must carry an embedding.
	// Implementations apply the whole slice atomically.
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// SearchVector returns up to k chunks ranked by ascending vector
	// distance to the query embedding, restricted by filter.
	SearchVector(ctx context.Context, embedding []float32, filter ChunkFilter, k int) ([]domain.ScoredChunk, error)

	// SearchLexical returns up to k chunks ranked by trigram similarity to
	// the raw query string, restricted by filter.
	SearchLexical(ctx context.Context, query string, filter ChunkFilter, k int) ([]domain.ScoredChunk, error)

	// DeleteDocument removes every chunk belonging to a document.
	DeleteDocument(ctx context.Context, docID string) error

	// DeleteChunksFrom removes the chunks of a document whose index is
	// >= fromIndex. Used to drop trailing orphans when a re-ingested
	// document shrinks.
	DeleteChunksFrom(ctx context.Context, docID string, fromIndex int) error

	// CountChunks reports the number of stored chunks for a document.
	// An empty docID counts the whole corpus.
	CountChunks(ctx context.Context, docID string) (int, error)

	// Close releases resources.
	Close() error
}
