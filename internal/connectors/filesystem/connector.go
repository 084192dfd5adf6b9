// Package filesystem walks a directory tree and turns every supported file
// into a source document ready for ingestion. Metadata comes from an
// optional TOML manifest; files the manifest does not mention get defaults
// derived from their path. A watch mode re-emits documents as files change.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
	"github.com/piolet-labs/piolet-cli/internal/extractors/html"
	"github.com/piolet-labs/piolet-cli/internal/logger"
)

var _ driven.DocumentSource = (*Connector)(nil)

// Connector is a DocumentSource over a local directory.
type Connector struct {
	rootPath      string
	registry      driven.ExtractorRegistry
	manifest      Manifest
	defaultLocale string
}

// Option configures the connector.
type Option func(*Connector)

// WithManifest supplies per-file ingestion metadata.
func WithManifest(m Manifest) Option {
	return func(c *Connector) { c.manifest = m }
}

// WithDefaultLocale sets the locale stamped on documents whose manifest
// entry does not declare one.
func WithDefaultLocale(locale string) Option {
	return func(c *Connector) { c.defaultLocale = locale }
}

// New creates a connector rooted at rootPath, extracting files through the
// given registry.
func New(rootPath string, registry driven.ExtractorRegistry, opts ...Option) *Connector {
	c := &Connector{
		rootPath:      rootPath,
		registry:      registry,
		defaultLocale: "es",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Documents walks the root and streams one source document per supported
// file. Unsupported files are skipped silently; extraction failures go to
// the error channel and the walk continues.
func (c *Connector) Documents(ctx context.Context) (<-chan domain.SourceDocument, <-chan error) {
	docs := make(chan domain.SourceDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		walkErr := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != c.rootPath {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				return nil
			}

			doc, err := c.load(ctx, path)
			if err != nil {
				if errors.Is(err, domain.ErrUnsupportedFormat) {
					return nil
				}
				select {
				case errs <- fmt.Errorf("loading %s: %w", path, err):
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			}

			select {
			case docs <- doc:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
			select {
			case errs <- fmt.Errorf("walking %s: %w", c.rootPath, walkErr):
			default:
			}
		}
	}()

	return docs, errs
}

// load extracts one file and assembles its source document.
func (c *Connector) load(ctx context.Context, path string) (domain.SourceDocument, error) {
	extractor, err := c.registry.ForPath(path)
	if err != nil {
		return domain.SourceDocument{}, err
	}

	pages, err := extractor.Extract(ctx, path)
	if err != nil {
		return domain.SourceDocument{}, err
	}

	relPath, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		relPath = filepath.Base(path)
	}
	relPath = filepath.ToSlash(relPath)

	doc := domain.SourceDocument{
		DocID:   relPath,
		Title:   c.deriveTitle(path, relPath),
		DocType: docTypeForExtension(filepath.Ext(path)),
		Locale:  c.defaultLocale,
		Paged:   strings.EqualFold(filepath.Ext(path), ".pdf"),
		Pages:   pages,
	}

	if entry, ok := c.manifest.Lookup(relPath); ok {
		if entry.Title != "" {
			doc.Title = entry.Title
		}
		if entry.DocType != "" {
			doc.DocType = entry.DocType
		}
		if entry.Locale != "" {
			doc.Locale = entry.Locale
		}
		doc.BaseURL = entry.BaseURL
	} else {
		logger.Debug("no manifest entry for %s, using derived metadata", relPath)
	}

	return doc, nil
}

// deriveTitle prefers the <title> tag for HTML pages and falls back to a
// title derived from the filename.
func (c *Connector) deriveTitle(path, relPath string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		if data, err := os.ReadFile(path); err == nil {
			if title := html.ExtractTitle(string(data)); title != "" {
				return title
			}
		}
	}
	return titleFromPath(relPath)
}

// titleFromPath derives a title from the filename: extension stripped,
// separators replaced with spaces.
func titleFromPath(relPath string) string {
	base := filepath.Base(relPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}

// docTypeForExtension maps a file extension to a default document type.
func docTypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "pdf"
	case ".html", ".htm":
		return "page"
	default:
		return "kb"
	}
}
