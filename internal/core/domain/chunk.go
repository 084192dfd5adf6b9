package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// chunkNamespace is the UUID namespace for deterministic chunk identifiers.
// Chunk ids are UUIDv5 hashes of "doc_id:chunk_index", so re-ingesting the
// same document produces the same ids and the storage upsert overwrites the
// previous rows instead of accumulating duplicates.
var chunkNamespace = uuid.MustParse("8f9a6b2c-1d4e-4f7a-9c3b-5e8d7a6f4b21")

// Chunk is the unit of storage and retrieval: a bounded span of a source
// document's text together with its embedding and provenance metadata.
type Chunk struct {
	// ID is the deterministic primary key, derived from DocID and ChunkIndex.
	ID string

	// DocType categorises the owning document ("kb", "guide", "pdf",
	// "page", "policy", "product").
	DocType string

	// DocID identifies the owning source document. Stable across
	// re-ingestion of the same document.
	DocID string

	// Title is a human-readable label. Multi-page sources encode the page
	// number, e.g. "Guide — p.3".
	Title string

	// URL is an optional locator back to the original source.
	URL *string

	// Locale is the language tag used as a retrieval filter.
	Locale string

	// ChunkIndex is the zero-based position within the source document.
	// (DocID, ChunkIndex) is unique per document.
	ChunkIndex int

	// Text is the normalised fragment content. Never empty.
	Text string

	// Embedding is the fixed-dimension vector for this fragment. The
	// ingestion pipeline never persists a chunk without it.
	Embedding []float32

	// UpdatedAt is the time of the last write.
	UpdatedAt time.Time
}

// ChunkID derives the deterministic id for a chunk of the given document.
func ChunkID(docID string, chunkIndex int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", docID, chunkIndex))).String()
}

// Key returns the composite dedup key used by the hybrid merge.
func (c *Chunk) Key() string {
	return fmt.Sprintf("%s_%d", c.DocID, c.ChunkIndex)
}
