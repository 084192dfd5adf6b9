package driven

import (
	"context"
	"time"
)

// IngestState records what the pipeline last wrote for a document.
type IngestState struct {
	// DocID identifies the document.
	DocID string

	// Checksum is the SHA-256 of the document's extracted text.
	Checksum string

	// ChunkCount is the number of chunks written on the last ingest.
	ChunkCount int

	// LastIngest is when the document was last processed.
	LastIngest time.Time
}

// IngestStateStore persists per-document ingest state. The pipeline uses it
// to skip unchanged documents and to delete trailing orphan chunks when a
// re-ingested document produces fewer chunks than before.
type IngestStateStore interface {
	// Get retrieves the state for a document, or domain.ErrNotFound.
	Get(ctx context.Context, docID string) (*IngestState, error)

	// Save stores or updates the state for a document.
	Save(ctx context.Context, state IngestState) error

	// Delete removes the state for a document.
	Delete(ctx context.Context, docID string) error

	// Close releases resources.
	Close() error
}
