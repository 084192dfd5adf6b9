// Package plaintext extracts text from plain text and Markdown files.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles .txt and .md sources. The whole file is a single page.
type Extractor struct{}

// New creates a new plaintext extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt", ".md"}
}

// Extract reads the file and returns it as one page.
func (e *Extractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	return []domain.Page{{
		Number:  1,
		Text:    text,
		HasText: text != "",
	}}, nil
}
