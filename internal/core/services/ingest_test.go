package services

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/postprocessors"
)

func singlePageDoc(docID, text string) domain.SourceDocument {
	return domain.SourceDocument{
		DocType: "kb",
		DocID:   docID,
		Title:   "Guía de envíos",
		Locale:  "es",
		Pages:   []domain.Page{{Number: 1, Text: text, HasText: true}},
	}
}

func TestIngestDocumentWritesChunks(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2})

	written, err := svc.IngestDocument(ctx, singlePageDoc("guide", "uno dos tres cuatro"))
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	chunks := store.chunksFor("guide")
	require.Len(t, chunks, 2)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })

	assert.Equal(t, "uno dos", chunks[0].Text)
	assert.Equal(t, "tres cuatro", chunks[1].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, "kb", chunks[0].DocType)
	assert.Equal(t, "es", chunks[0].Locale)
	assert.NotEmpty(t, chunks[0].Embedding)
}

func TestIngestDocumentIDsAreDeterministic(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2})

	_, err := svc.IngestDocument(ctx, singlePageDoc("guide", "uno dos tres cuatro"))
	require.NoError(t, err)

	chunks := store.chunksFor("guide")
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, domain.ChunkID("guide", c.ChunkIndex), c.ID)
	}

	// Re-ingesting changed content overwrites in place.
	_, err = svc.IngestDocument(ctx, singlePageDoc("guide", "cinco seis siete ocho"))
	require.NoError(t, err)
	assert.Len(t, store.chunksFor("guide"), 2)
}

func TestIngestDocumentChunkIndexSpansPages(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2})

	doc := domain.SourceDocument{
		DocType: "pdf",
		DocID:   "manual.pdf",
		Title:   "Manual",
		Locale:  "es",
		Paged:   true,
		BaseURL: "https://example.com/manual.pdf",
		Pages: []domain.Page{
			{Number: 1, Text: "uno dos tres cuatro", HasText: true},
			{Number: 2, Text: "", HasText: false},
			{Number: 3, Text: "cinco seis", HasText: true},
		},
	}

	written, err := svc.IngestDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	chunks := store.chunksFor("manual.pdf")
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	require.Len(t, chunks, 3)

	assert.Equal(t, []int{0, 1, 2}, []int{chunks[0].ChunkIndex, chunks[1].ChunkIndex, chunks[2].ChunkIndex})
	assert.Equal(t, "Manual — p.1", chunks[0].Title)
	assert.Equal(t, "Manual — p.3", chunks[2].Title)
	require.NotNil(t, chunks[0].URL)
	assert.Equal(t, "https://example.com/manual.pdf#p=1", *chunks[0].URL)
	require.NotNil(t, chunks[2].URL)
	assert.Equal(t, "https://example.com/manual.pdf#p=3", *chunks[2].URL)
}

func TestIngestDocumentEmptyYieldsZeroChunks(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2})

	doc := domain.SourceDocument{
		DocType: "pdf",
		DocID:   "scan.pdf",
		Title:   "Scan",
		Pages:   []domain.Page{{Number: 1, Text: "", HasText: false}},
	}

	written, err := svc.IngestDocument(ctx, doc)
	require.NoError(t, err)
	assert.Zero(t, written)

	count, err := store.CountChunks(ctx, "scan.pdf")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestDocumentRejectsMissingID(t *testing.T) {
	svc := NewIngestService(newMockChunkStore(), &mockEmbedder{}, wordChunker{n: 2})
	_, err := svc.IngestDocument(context.Background(), singlePageDoc("", "texto"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestDocumentAppliesProcessors(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 10},
		WithProcessors(postprocessors.NewCleaner()))

	_, err := svc.IngestDocument(ctx, singlePageDoc("guide", "hola\x00\x01  mundo"))
	require.NoError(t, err)

	chunks := store.chunksFor("guide")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hola mundo", chunks[0].Text)
}

func TestIngestDocumentSkipsUnchangedChecksum(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	state := newMockStateStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2}, WithStateStore(state))

	doc := singlePageDoc("guide", "uno dos tres cuatro")

	written, err := svc.IngestDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	written, err = svc.IngestDocument(ctx, doc)
	require.NoError(t, err)
	assert.Zero(t, written, "unchanged document must be skipped")
}

func TestIngestDocumentTrimsOrphansOnShrink(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	state := newMockStateStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2}, WithStateStore(state))

	_, err := svc.IngestDocument(ctx, singlePageDoc("guide", "uno dos tres cuatro cinco seis"))
	require.NoError(t, err)
	assert.Len(t, store.chunksFor("guide"), 3)

	_, err = svc.IngestDocument(ctx, singlePageDoc("guide", "siete ocho"))
	require.NoError(t, err)

	assert.Len(t, store.chunksFor("guide"), 1)
	assert.Contains(t, store.deleteFromCalls, "guide:1")
}

func TestIngestDocumentSkipsFailedEmbeddingBatch(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	state := newMockStateStore()
	embedder := &mockEmbedder{maxBatchSize: 2, failBatches: 1}
	svc := NewIngestService(store, embedder, wordChunker{n: 1}, WithStateStore(state))

	// Four fragments in batches of two: the first batch fails, the second
	// lands.
	written, err := svc.IngestDocument(ctx, singlePageDoc("guide", "uno dos tres cuatro"))
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Len(t, store.chunksFor("guide"), 2)

	// No chunk was stored without its embedding.
	for _, c := range store.chunksFor("guide") {
		assert.NotEmpty(t, c.Embedding)
	}

	// No state recorded: the next run retries the whole document.
	_, err = state.Get(ctx, "guide")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestDocumentStorageFailurePropagates(t *testing.T) {
	store := newMockChunkStore()
	store.upsertErr = errors.New("connection reset")
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2})

	_, err := svc.IngestDocument(context.Background(), singlePageDoc("guide", "uno dos"))
	assert.ErrorContains(t, err, "connection reset")
}

func TestIngestSourceIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2}, WithWorkers(2))

	source := sliceSource{
		docs: []domain.SourceDocument{
			singlePageDoc("good-1", "uno dos"),
			singlePageDoc("", "sin id"), // fails validation
			singlePageDoc("good-2", "tres cuatro"),
		},
		errs: []error{errors.New("unreadable file")},
	}

	report, err := svc.IngestSource(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, 2, report.DocumentsProcessed)
	assert.Equal(t, 2, report.ChunksWritten)
	assert.Equal(t, 2, report.ErrorCount)
}

func TestIngestSourceCountsPartiallyWrittenChunks(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	store.upsertErr = errors.New("disk full")
	store.upsertOKCalls = 1
	embedder := &mockEmbedder{maxBatchSize: 1}
	svc := NewIngestService(store, embedder, wordChunker{n: 1})

	// Two fragments, batch size one: the first batch commits, the second
	// hits the storage failure.
	doc := singlePageDoc("guide", "uno dos")
	report, err := svc.IngestSource(ctx, sliceSource{docs: []domain.SourceDocument{doc}})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ErrorCount)
	assert.Zero(t, report.DocumentsProcessed)
	assert.Equal(t, 1, report.ChunksWritten, "the committed batch stays counted")
	assert.Len(t, store.chunksFor("guide"), 1)
}

func TestIngestSourceCountsSkipped(t *testing.T) {
	ctx := context.Background()
	store := newMockChunkStore()
	state := newMockStateStore()
	svc := NewIngestService(store, &mockEmbedder{}, wordChunker{n: 2}, WithStateStore(state))

	doc := singlePageDoc("guide", "uno dos")
	_, err := svc.IngestDocument(ctx, doc)
	require.NoError(t, err)

	report, err := svc.IngestSource(ctx, sliceSource{docs: []domain.SourceDocument{doc}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsSkipped)
	assert.Zero(t, report.ChunksWritten)
}
