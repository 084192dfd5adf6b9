// Package memory implements the chunk store in process memory. It mirrors
// the Postgres adapter's ranking semantics (cosine similarity for vector
// search, trigram similarity for lexical search) so the retrieval services
// behave the same against either backend.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
)

var _ driven.ChunkStore = (*Store)(nil)

// Store holds chunks keyed by id behind a mutex. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{chunks: make(map[string]domain.Chunk)}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// UpsertChunks inserts or overwrites chunks by id.
func (s *Store) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return domain.ErrInvalidInput
		}
	}
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

// SearchVector ranks the stored chunks by cosine similarity to the query
// embedding.
func (s *Store) SearchVector(ctx context.Context, embedding []float32, filter driven.ChunkFilter, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.ScoredChunk
	for _, c := range s.chunks {
		if !matches(c, filter) {
			continue
		}
		results = append(results, domain.ScoredChunk{
			Chunk:      c,
			Similarity: cosineSimilarity(embedding, c.Embedding),
			Source:     "vector",
		})
	}
	return rank(results, k), nil
}

// SearchLexical ranks the stored chunks by trigram similarity to the query.
func (s *Store) SearchLexical(ctx context.Context, query string, filter driven.ChunkFilter, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryGrams := trigrams(query)

	var results []domain.ScoredChunk
	for _, c := range s.chunks {
		if !matches(c, filter) {
			continue
		}
		sim := trigramSimilarity(queryGrams, trigrams(c.Text))
		if sim == 0 {
			continue
		}
		results = append(results, domain.ScoredChunk{
			Chunk:      c,
			Similarity: sim,
			Source:     "lexical",
		})
	}
	return rank(results, k), nil
}

// DeleteDocument removes every chunk of a document.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.chunks {
		if c.DocID == docID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// DeleteChunksFrom removes a document's chunks with index >= fromIndex.
func (s *Store) DeleteChunksFrom(ctx context.Context, docID string, fromIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.chunks {
		if c.DocID == docID && c.ChunkIndex >= fromIndex {
			delete(s.chunks, id)
		}
	}
	return nil
}

// CountChunks reports how many chunks a document has, or the total when
// docID is empty.
func (s *Store) CountChunks(ctx context.Context, docID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if docID == "" {
		return len(s.chunks), nil
	}
	count := 0
	for _, c := range s.chunks {
		if c.DocID == docID {
			count++
		}
	}
	return count, nil
}

func matches(c domain.Chunk, filter driven.ChunkFilter) bool {
	if filter.Locale != "" && c.Locale != filter.Locale {
		return false
	}
	if len(filter.DocTypes) > 0 {
		found := false
		for _, dt := range filter.DocTypes {
			if c.DocType == dt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// rank sorts by similarity descending, with id as a tie break so results
// are deterministic, and truncates to k.
func rank(results []domain.ScoredChunk, k int) []domain.ScoredChunk {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// trigrams extracts the pg_trgm-style trigram set of a string: lowercased,
// non-alphanumeric runs treated as word breaks, each word padded with two
// leading and one trailing space.
func trigrams(text string) map[string]struct{} {
	grams := make(map[string]struct{})
	for _, word := range splitWords(strings.ToLower(text)) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			grams[string(runes[i:i+3])] = struct{}{}
		}
	}
	return grams
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// trigramSimilarity is the Jaccard-style ratio pg_trgm uses: shared grams
// over the size of the union.
func trigramSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for g := range a {
		if _, ok := b[g]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
