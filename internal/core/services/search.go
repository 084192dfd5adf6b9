package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driving"
	"github.com/piolet-labs/piolet-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

// defaultTopK is the result count when the caller does not set one.
const defaultTopK = 5

// SearchService runs the hybrid retrieval algorithm over the chunk store.
type SearchService struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService

	// degradeGracefully turns a failing sub-search into an empty
	// sub-result instead of failing the query. Queries can then still be
	// served by the surviving half.
	degradeGracefully bool
}

// SearchOption configures the search service.
type SearchOption func(*SearchService)

// WithGracefulDegradation makes sub-search store failures non-fatal.
func WithGracefulDegradation(enabled bool) SearchOption {
	return func(s *SearchService) { s.degradeGracefully = enabled }
}

// NewSearchService creates a search service.
func NewSearchService(store driven.ChunkStore, embedder driven.EmbeddingService, opts ...SearchOption) *SearchService {
	s := &SearchService{
		store:    store,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs vector and lexical retrieval and merges the results:
// vector hits win dedup conflicts, the merged set is re-ranked by
// similarity and truncated to TopK.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.ScoredChunk, error) {
	logger.Section("Search")

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ScoredChunk{}, nil
	}

	k := opts.TopK
	if k <= 0 {
		k = defaultTopK
	}
	filter := driven.ChunkFilter{Locale: opts.Locale, DocTypes: opts.DocTypes}
	logger.Debug("query %q, k=%d, locale=%q, types=%v", query, k, opts.Locale, opts.DocTypes)

	// The query embedding is mandatory: without it the hybrid contract
	// cannot be met, so a failure here aborts the search.
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	vectorHits, err := s.store.SearchVector(ctx, embedding, filter, k)
	if err != nil {
		if !s.degradeGracefully {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		logger.Warn("vector search failed, continuing with lexical only: %v", err)
		vectorHits = nil
	}

	lexicalHits, err := s.store.SearchLexical(ctx, query, filter, k)
	if err != nil {
		if !s.degradeGracefully {
			return nil, fmt.Errorf("lexical search: %w", err)
		}
		logger.Warn("lexical search failed, continuing with vector only: %v", err)
		lexicalHits = nil
	}

	merged := mergeHits(vectorHits, lexicalHits, k)
	logger.Debug("%d vector + %d lexical hits, %d after merge",
		len(vectorHits), len(lexicalHits), len(merged))
	return merged, nil
}

// Retrieve is the single-path variant: vector search only, no filters.
func (s *SearchService) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ScoredChunk{}, nil
	}
	if k <= 0 {
		k = defaultTopK
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.store.SearchVector(ctx, embedding, driven.ChunkFilter{}, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

// mergeHits combines the two sub-results. Vector hits are taken first, so
// when both halves return the same chunk the vector score survives. The
// union is re-sorted by similarity and cut to k.
func mergeHits(vectorHits, lexicalHits []domain.ScoredChunk, k int) []domain.ScoredChunk {
	seen := make(map[string]struct{}, len(vectorHits)+len(lexicalHits))
	merged := make([]domain.ScoredChunk, 0, len(vectorHits)+len(lexicalHits))

	for _, hit := range vectorHits {
		key := hit.Chunk.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, hit)
	}
	for _, hit := range lexicalHits {
		key := hit.Chunk.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, hit)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}
