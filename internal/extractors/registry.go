// Package extractors provides format-specific text extraction and the
// registry that selects an extractor for a source file.
package extractors

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
)

// Registry selects extractors by file extension.
// It implements the ExtractorRegistry interface.
type Registry struct {
	byExtension map[string]driven.Extractor
}

// NewRegistry creates a registry over the given extractors. Later
// registrations win when extensions collide.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{
		byExtension: make(map[string]driven.Extractor),
	}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor for all its supported extensions.
func (r *Registry) Register(e driven.Extractor) {
	for _, ext := range e.SupportedExtensions() {
		r.byExtension[strings.ToLower(ext)] = e
	}
}

// ForPath returns the extractor registered for the file's extension.
func (r *Registry) ForPath(path string) (driven.Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExtension[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}
	return e, nil
}

// Extensions returns every registered extension.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	return exts
}
