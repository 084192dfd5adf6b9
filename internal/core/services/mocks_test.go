package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService. Embeddings are derived
// from the text length so tests get deterministic, distinct vectors.
type mockEmbedder struct {
	mu           sync.Mutex
	embedErr     error
	batchErr     error
	failBatches  int // fail the first N EmbedBatch calls
	maxBatchSize int
	batchCalls   int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	if m.failBatches > 0 {
		m.failBatches--
		return nil, fmt.Errorf("embedding backend overloaded")
	}
	if size := m.MaxBatchSize(); len(texts) > size {
		return nil, domain.ErrBatchTooLarge
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 2 }

func (m *mockEmbedder) MaxBatchSize() int {
	if m.maxBatchSize > 0 {
		return m.maxBatchSize
	}
	return 80
}

func (m *mockEmbedder) ModelName() string            { return "mock-embedder" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockChunkStore implements driven.ChunkStore with injectable failures and
// call recording.
type mockChunkStore struct {
	mu sync.Mutex

	chunks map[string]domain.Chunk

	upsertErr     error
	vectorErr     error
	lexicalErr    error
	deleteFromErr error

	vectorHits  []domain.ScoredChunk
	lexicalHits []domain.ScoredChunk

	// upsertOKCalls lets upsertErr kick in only after N successful calls.
	upsertOKCalls int
	upsertCalls   int
	lexicalCalls  int

	deleteFromCalls []string // "docID:fromIndex"
}

func newMockChunkStore() *mockChunkStore {
	return &mockChunkStore{chunks: make(map[string]domain.Chunk)}
}

func (m *mockChunkStore) UpsertChunks(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.upsertCalls
	m.upsertCalls++
	if m.upsertErr != nil && call >= m.upsertOKCalls {
		return m.upsertErr
	}
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *mockChunkStore) SearchVector(_ context.Context, _ []float32, _ driven.ChunkFilter, k int) ([]domain.ScoredChunk, error) {
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	if k < len(m.vectorHits) {
		return m.vectorHits[:k], nil
	}
	return m.vectorHits, nil
}

func (m *mockChunkStore) SearchLexical(_ context.Context, _ string, _ driven.ChunkFilter, k int) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	m.lexicalCalls++
	m.mu.Unlock()
	if m.lexicalErr != nil {
		return nil, m.lexicalErr
	}
	if k < len(m.lexicalHits) {
		return m.lexicalHits[:k], nil
	}
	return m.lexicalHits, nil
}

func (m *mockChunkStore) DeleteDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chunks {
		if c.DocID == docID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *mockChunkStore) DeleteChunksFrom(_ context.Context, docID string, fromIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteFromErr != nil {
		return m.deleteFromErr
	}
	m.deleteFromCalls = append(m.deleteFromCalls, fmt.Sprintf("%s:%d", docID, fromIndex))
	for id, c := range m.chunks {
		if c.DocID == docID && c.ChunkIndex >= fromIndex {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *mockChunkStore) CountChunks(_ context.Context, docID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if docID == "" {
		return len(m.chunks), nil
	}
	count := 0
	for _, c := range m.chunks {
		if c.DocID == docID {
			count++
		}
	}
	return count, nil
}

func (m *mockChunkStore) Close() error { return nil }

func (m *mockChunkStore) chunksFor(docID string) []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, c := range m.chunks {
		if c.DocID == docID {
			out = append(out, c)
		}
	}
	return out
}

// mockStateStore implements driven.IngestStateStore in memory.
type mockStateStore struct {
	mu     sync.Mutex
	states map[string]driven.IngestState
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{states: make(map[string]driven.IngestState)}
}

func (m *mockStateStore) Get(_ context.Context, docID string) (*driven.IngestState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

func (m *mockStateStore) Save(_ context.Context, state driven.IngestState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.DocID] = state
	return nil
}

func (m *mockStateStore) Delete(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, docID)
	return nil
}

func (m *mockStateStore) Close() error { return nil }

// mockLLM implements driven.LLMService, recording the last conversation.
type mockLLM struct {
	reply    string
	chatErr  error
	messages []driven.ChatMessage
	calls    int
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// wordChunker splits text into fragments of at most n words.
type wordChunker struct {
	n int
}

func (c wordChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	n := c.n
	if n <= 0 {
		n = 3
	}
	var out []string
	for start := 0; start < len(words); start += n {
		end := start + n
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}

// sliceSource implements driven.DocumentSource over fixed slices.
type sliceSource struct {
	docs []domain.SourceDocument
	errs []error
}

func (s sliceSource) Documents(_ context.Context) (<-chan domain.SourceDocument, <-chan error) {
	docs := make(chan domain.SourceDocument)
	errs := make(chan error)
	go func() {
		defer close(docs)
		for _, d := range s.docs {
			docs <- d
		}
	}()
	go func() {
		defer close(errs)
		for _, e := range s.errs {
			errs <- e
		}
	}()
	return docs, errs
}
