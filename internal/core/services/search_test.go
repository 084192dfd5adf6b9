package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

func hit(docID string, index int, similarity float64, source string) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ID:         domain.ChunkID(docID, index),
			DocID:      docID,
			ChunkIndex: index,
			Text:       docID,
		},
		Similarity: similarity,
		Source:     source,
	}
}

func TestSearchMergesBothSubSearches(t *testing.T) {
	store := newMockChunkStore()
	store.vectorHits = []domain.ScoredChunk{
		hit("a", 0, 0.9, "vector"),
		hit("b", 0, 0.7, "vector"),
	}
	store.lexicalHits = []domain.ScoredChunk{
		hit("c", 0, 0.8, "lexical"),
	}

	svc := NewSearchService(store, &mockEmbedder{})
	results, err := svc.Search(context.Background(), "envíos a Paris", domain.SearchOptions{TopK: 5})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Chunk.DocID)
	assert.Equal(t, "c", results[1].Chunk.DocID)
	assert.Equal(t, "b", results[2].Chunk.DocID)
}

func TestSearchVectorWinsDedup(t *testing.T) {
	store := newMockChunkStore()
	store.vectorHits = []domain.ScoredChunk{hit("a", 0, 0.6, "vector")}
	store.lexicalHits = []domain.ScoredChunk{hit("a", 0, 0.9, "lexical")}

	svc := NewSearchService(store, &mockEmbedder{})
	results, err := svc.Search(context.Background(), "pregunta", domain.SearchOptions{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "vector", results[0].Source)
	assert.Equal(t, 0.6, results[0].Similarity)
}

func TestSearchTruncatesToTopK(t *testing.T) {
	store := newMockChunkStore()
	for i := 0; i < 4; i++ {
		store.vectorHits = append(store.vectorHits, hit("doc", i, 0.9-float64(i)*0.1, "vector"))
	}
	store.lexicalHits = []domain.ScoredChunk{
		hit("other", 0, 0.85, "lexical"),
	}

	svc := NewSearchService(store, &mockEmbedder{})
	results, err := svc.Search(context.Background(), "pregunta", domain.SearchOptions{TopK: 3})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, 0.9, results[0].Similarity)
	assert.Equal(t, 0.85, results[1].Similarity)
	assert.Equal(t, 0.8, results[2].Similarity)
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	svc := NewSearchService(newMockChunkStore(), &mockEmbedder{})
	results, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmbeddingFailureAborts(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("quota exhausted")}
	svc := NewSearchService(newMockChunkStore(), embedder, WithGracefulDegradation(true))

	_, err := svc.Search(context.Background(), "pregunta", domain.SearchOptions{})
	assert.ErrorContains(t, err, "quota exhausted")
}

func TestSearchSubSearchFailurePropagatesByDefault(t *testing.T) {
	store := newMockChunkStore()
	store.vectorErr = errors.New("index corrupted")

	svc := NewSearchService(store, &mockEmbedder{})
	_, err := svc.Search(context.Background(), "pregunta", domain.SearchOptions{})
	assert.ErrorContains(t, err, "index corrupted")
}

func TestSearchDegradesGracefully(t *testing.T) {
	store := newMockChunkStore()
	store.vectorErr = errors.New("ivfflat index missing")
	store.lexicalHits = []domain.ScoredChunk{hit("a", 0, 0.5, "lexical")}

	svc := NewSearchService(store, &mockEmbedder{}, WithGracefulDegradation(true))
	results, err := svc.Search(context.Background(), "pregunta", domain.SearchOptions{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "lexical", results[0].Source)
}

func TestSearchEmptyStoreReturnsEmptyNoError(t *testing.T) {
	svc := NewSearchService(newMockChunkStore(), &mockEmbedder{})
	results, err := svc.Search(context.Background(), "pregunta", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveUsesVectorOnly(t *testing.T) {
	store := newMockChunkStore()
	store.vectorHits = []domain.ScoredChunk{hit("a", 0, 0.9, "vector")}
	store.lexicalHits = []domain.ScoredChunk{hit("b", 0, 0.95, "lexical")}

	svc := NewSearchService(store, &mockEmbedder{})
	results, err := svc.Retrieve(context.Background(), "pregunta", 5)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.DocID)
}

func TestRetrieveEmbeddingFailureAborts(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("timeout")}
	svc := NewSearchService(newMockChunkStore(), embedder)

	_, err := svc.Retrieve(context.Background(), "pregunta", 5)
	assert.Error(t, err)
}
