package driven

import (
	"context"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

// Extractor turns a raw source file into page-segmented text. Each page is
// tagged with whether extraction yielded usable text.
type Extractor interface {
	// SupportedExtensions returns the lower-case file extensions this
	// extractor handles (including the dot, e.g. ".pdf").
	SupportedExtensions() []string

	// Extract reads the file at path and returns its pages in reading
	// order. Single-body formats return exactly one page.
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}

// OCREngine recovers text from pages where plain extraction found none.
// It is an opaque external capability (rendering and recognition included);
// the pdf extractor consults it as a fallback when configured.
type OCREngine interface {
	// ExtractPage runs OCR over one page of the source file and returns
	// the recognised text.
	ExtractPage(ctx context.Context, path string, page int) (string, error)
}

// ExtractorRegistry selects an extractor for a source file.
type ExtractorRegistry interface {
	// ForPath returns the extractor registered for the file's extension,
	// or domain.ErrUnsupportedFormat.
	ForPath(path string) (Extractor, error)
}
