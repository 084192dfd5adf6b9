// Package pdf extracts page-level text from PDF documents.
package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
	"github.com/piolet-labs/piolet-cli/internal/logger"
	"github.com/piolet-labs/piolet-cli/internal/postprocessors"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles .pdf sources, one page per extraction unit. Pages whose
// plain extraction yields no text are handed to the OCR engine when one is
// configured; otherwise they are tagged HasText=false and contribute no
// chunks.
type Extractor struct {
	ocr driven.OCREngine
}

// Option configures the pdf extractor.
type Option func(*Extractor)

// WithOCR sets the OCR fallback engine for scanned pages.
func WithOCR(engine driven.OCREngine) Option {
	return func(e *Extractor) {
		e.ocr = engine
	}
}

// New creates a new PDF extractor with the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Extract returns the document's pages in order. Page text is cleaned
// before the HasText decision so whitespace-only extractions count as
// empty.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, path)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]domain.Page, 0, total)

	for pageNo := 1; pageNo <= total; pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := extractPageText(reader, pageNo)
		text = postprocessors.Clean(text)

		if text == "" && e.ocr != nil {
			recovered, ocrErr := e.ocr.ExtractPage(ctx, path, pageNo)
			if ocrErr != nil {
				logger.Warn("OCR failed for %s page %d: %v", path, pageNo, ocrErr)
			} else {
				text = postprocessors.Clean(recovered)
			}
		}

		pages = append(pages, domain.Page{
			Number:  pageNo,
			Text:    text,
			HasText: text != "",
		})
	}

	return pages, nil
}

// extractPageText pulls plain text from a single page. Extraction errors on
// one page degrade to an empty page rather than failing the document.
func extractPageText(reader *pdf.Reader, pageNo int) string {
	page := reader.Page(pageNo)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		logger.Debug("page %d text extraction failed: %v", pageNo, err)
		return ""
	}
	return strings.TrimSpace(text)
}
