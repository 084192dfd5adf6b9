package driving

import (
	"context"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
)

// Ingestor runs the ingestion pipeline over source documents.
type Ingestor interface {
	// IngestDocument processes one extracted document end to end and
	// returns the number of chunks written. Partial failures (skipped
	// embedding batches) reduce the count and are logged, not returned.
	IngestDocument(ctx context.Context, doc domain.SourceDocument) (int, error)

	// IngestSource drains a document source, isolating per-document
	// failures, and returns the total chunks written plus a summary.
	IngestSource(ctx context.Context, source driven.DocumentSource) (*IngestReport, error)
}

// IngestReport summarises an ingestion run.
type IngestReport struct {
	// DocumentsProcessed is the count of documents that produced chunks.
	DocumentsProcessed int

	// DocumentsSkipped counts documents skipped as unchanged or empty.
	DocumentsSkipped int

	// ChunksWritten is the total number of chunks embedded and stored,
	// including batches committed before a document later failed.
	ChunksWritten int

	// ErrorCount is the number of per-document failures.
	ErrorCount int
}
