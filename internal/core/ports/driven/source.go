package driven

import (
	"context"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

// DocumentSource yields extracted source documents for ingestion. The
// filesystem connector is the built-in implementation; scrapers for remote
// systems only need to emit the same uniform record.
//
// Documents arrives on the first channel; per-document failures on the
// second. Both channels close when the source is exhausted. A failed
// document never aborts the stream.
type DocumentSource interface {
	// Documents streams the source's documents.
	Documents(ctx context.Context) (<-chan domain.SourceDocument, <-chan error)
}
