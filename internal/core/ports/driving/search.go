package driving

import (
	"context"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

// Searcher provides retrieval over the chunk corpus.
type Searcher interface {
	// Search runs the full hybrid algorithm: vector plus lexical search,
	// vector-first dedup by (doc_id, chunk_index), re-ranked by similarity
	// and truncated to TopK.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.ScoredChunk, error)

	// Retrieve is the simplified single-path variant: the k nearest chunks
	// by vector distance alone, with no locale or type filter. Appropriate
	// only when the corpus locale is homogeneous.
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// Answerer produces grounded answers from retrieved context.
type Answerer interface {
	// Answer retrieves the k nearest chunks for the question through the
	// simplified vector-only path and generates a reply with provenance.
	// An empty retrieval yields an honest "insufficient information" reply
	// without calling the model.
	Answer(ctx context.Context, question string, k int) (*domain.Answer, error)
}
