package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driving"
	"github.com/piolet-labs/piolet-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// defaultIngestWorkers bounds concurrent document ingestion.
const defaultIngestWorkers = 4

// IngestService runs the pipeline: clean, chunk, embed, store. Documents
// are independent units of work; one failing never aborts the run.
type IngestService struct {
	store      driven.ChunkStore
	embedder   driven.EmbeddingService
	chunker    driven.Chunker
	state      driven.IngestStateStore
	processors []driven.TextProcessor
	workers    int
}

// IngestOption configures the ingest service.
type IngestOption func(*IngestService)

// WithStateStore enables checksum-based skip of unchanged documents and
// trailing orphan cleanup on shrink.
func WithStateStore(state driven.IngestStateStore) IngestOption {
	return func(s *IngestService) { s.state = state }
}

// WithProcessors sets the text processors applied to each page before
// chunking, in order.
func WithProcessors(processors ...driven.TextProcessor) IngestOption {
	return func(s *IngestService) { s.processors = processors }
}

// WithWorkers bounds concurrent document ingestion.
func WithWorkers(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewIngestService creates an ingest service.
func NewIngestService(
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		workers:  defaultIngestWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fragment is a chunk-to-be: text plus the metadata its page contributes.
type fragment struct {
	text  string
	title string
	url   *string
}

// IngestDocument processes one document end to end and returns the number
// of chunks written. A document whose checksum matches the recorded state
// is skipped with zero chunks and no error.
func (s *IngestService) IngestDocument(ctx context.Context, doc domain.SourceDocument) (int, error) {
	if doc.DocID == "" {
		return 0, fmt.Errorf("%w: document has no id", domain.ErrInvalidInput)
	}

	fragments, err := s.fragment(ctx, doc)
	if err != nil {
		return 0, err
	}
	if len(fragments) == 0 {
		logger.Warn("document %s produced no chunks", doc.DocID)
		return 0, nil
	}

	checksum := checksumFragments(fragments)
	if prev := s.previousState(ctx, doc.DocID); prev != nil {
		if prev.Checksum == checksum {
			logger.Debug("document %s unchanged, skipping", doc.DocID)
			return 0, nil
		}
		// The document shrank: drop the trailing chunks the new version
		// no longer produces.
		if prev.ChunkCount > len(fragments) {
			if err := s.store.DeleteChunksFrom(ctx, doc.DocID, len(fragments)); err != nil {
				return 0, fmt.Errorf("trimming stale chunks of %s: %w", doc.DocID, err)
			}
		}
	}

	written, skippedBatches, err := s.embedAndStore(ctx, doc, fragments)
	if err != nil {
		return written, err
	}

	s.recordState(ctx, doc.DocID, checksum, len(fragments), skippedBatches)

	logger.Info("ingested %s: %d chunks", doc.DocID, written)
	return written, nil
}

// IngestSource drains a document source with bounded parallelism. Failed
// documents are counted and logged; the run always completes.
func (s *IngestService) IngestSource(ctx context.Context, source driven.DocumentSource) (*driving.IngestReport, error) {
	logger.Section("Ingestion")

	docs, srcErrs := source.Documents(ctx)

	var mu sync.Mutex
	report := &driving.IngestReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	// Source errors are per-document by contract; count them without
	// stopping the drain.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for err := range srcErrs {
			logger.Warn("source: %v", err)
			mu.Lock()
			report.ErrorCount++
			mu.Unlock()
		}
	}()

	for doc := range docs {
		doc := doc
		g.Go(func() error {
			written, err := s.IngestDocument(gctx, doc)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logger.Warn("ingesting %s: %v", doc.DocID, err)
				report.ErrorCount++
				// Batches committed before the failure stay in the store
				// and stay counted.
				report.ChunksWritten += written
			case written == 0:
				report.DocumentsSkipped++
			default:
				report.DocumentsProcessed++
				report.ChunksWritten += written
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	<-done

	logger.Info("ingestion done: %d documents, %d chunks, %d skipped, %d errors",
		report.DocumentsProcessed, report.ChunksWritten,
		report.DocumentsSkipped, report.ErrorCount)
	return report, nil
}

// fragment cleans and chunks every page, carrying page-level titles and
// URLs onto the fragments of paged documents. Chunk order follows reading
// order across pages.
func (s *IngestService) fragment(ctx context.Context, doc domain.SourceDocument) ([]fragment, error) {
	var fragments []fragment

	for _, page := range doc.Pages {
		if !page.HasText {
			continue
		}

		text := page.Text
		for _, p := range s.processors {
			processed, err := p.Process(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("processor %s on %s: %w", p.Name(), doc.DocID, err)
			}
			text = processed
		}

		title := doc.Title
		var url *string
		if doc.Paged {
			title = fmt.Sprintf("%s — p.%d", doc.Title, page.Number)
			if doc.BaseURL != "" {
				u := fmt.Sprintf("%s#p=%d", doc.BaseURL, page.Number)
				url = &u
			}
		} else if doc.BaseURL != "" {
			u := doc.BaseURL
			url = &u
		}

		for _, piece := range s.chunker.Chunk(text) {
			fragments = append(fragments, fragment{text: piece, title: title, url: url})
		}
	}

	return fragments, nil
}

// embedAndStore embeds fragments in batches and upserts each embedded batch.
// A failed embedding batch drops its fragments with a warning; storage
// failures abort the document.
func (s *IngestService) embedAndStore(ctx context.Context, doc domain.SourceDocument, fragments []fragment) (written, skippedBatches int, err error) {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(fragments)
	}

	now := time.Now().UTC()

	for start := 0; start < len(fragments); start += batchSize {
		end := start + batchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		batch := fragments[start:end]

		texts := make([]string, len(batch))
		for i, f := range batch {
			texts[i] = f.text
		}

		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			logger.Warn("embedding batch %d..%d of %s failed, skipping: %v",
				start, end-1, doc.DocID, err)
			skippedBatches++
			continue
		}

		chunks := make([]domain.Chunk, len(batch))
		for i, f := range batch {
			index := start + i
			chunks[i] = domain.Chunk{
				ID:         domain.ChunkID(doc.DocID, index),
				DocType:    doc.DocType,
				DocID:      doc.DocID,
				Title:      f.title,
				URL:        f.url,
				Locale:     doc.Locale,
				ChunkIndex: index,
				Text:       f.text,
				Embedding:  embeddings[i],
				UpdatedAt:  now,
			}
		}

		if err := s.store.UpsertChunks(ctx, chunks); err != nil {
			return written, skippedBatches, fmt.Errorf("storing chunks of %s: %w", doc.DocID, err)
		}
		written += len(chunks)
	}

	return written, skippedBatches, nil
}

// previousState fetches the recorded ingest state, or nil.
func (s *IngestService) previousState(ctx context.Context, docID string) *driven.IngestState {
	if s.state == nil {
		return nil
	}
	prev, err := s.state.Get(ctx, docID)
	if err != nil {
		return nil
	}
	return prev
}

// recordState persists the ingest state. A document with skipped batches
// gets no state so the next run retries it in full.
func (s *IngestService) recordState(ctx context.Context, docID, checksum string, chunkCount, skippedBatches int) {
	if s.state == nil {
		return
	}
	if skippedBatches > 0 {
		if err := s.state.Delete(ctx, docID); err != nil {
			logger.Warn("clearing ingest state for %s: %v", docID, err)
		}
		return
	}
	err := s.state.Save(ctx, driven.IngestState{
		DocID:      docID,
		Checksum:   checksum,
		ChunkCount: chunkCount,
		LastIngest: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("saving ingest state for %s: %v", docID, err)
	}
}

// checksumFragments hashes the fragment texts in order. The checksum
// changes whenever the chunked content changes, including chunking
// parameter changes.
func checksumFragments(fragments []fragment) string {
	h := sha256.New()
	for _, f := range fragments {
		h.Write([]byte(f.text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
