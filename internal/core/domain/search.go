package domain

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of chunks to return. Defaults to 5 when
	// zero or negative.
	TopK int

	// Locale restricts results to chunks with a matching locale. Empty
	// means no locale filter.
	Locale string

	// DocTypes restricts results to the given document types. Empty means
	// no type filter.
	DocTypes []string
}

// ScoredChunk is a retrieval hit: a chunk with its similarity score.
// For vector hits the score is cosine similarity (1 - distance); for
// lexical hits it is the trigram similarity. Both are in [0, 1] with
// higher meaning more relevant.
type ScoredChunk struct {
	Chunk Chunk

	// Similarity is the relevance score used for the final ranking.
	Similarity float64

	// Source records which sub-search produced the hit: "vector" or
	// "lexical". Informational only; the merge rule does not depend on it.
	Source string
}

// Answer is the generation output paired with provenance for citation.
type Answer struct {
	// Reply is the generated answer text.
	Reply string

	// Sources lists the doc ids of the context chunks in rank order.
	Sources []string
}
