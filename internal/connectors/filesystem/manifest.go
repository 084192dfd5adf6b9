package filesystem

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ManifestEntry carries the ingestion metadata for one file, keyed by its
// path relative to the connector root.
type ManifestEntry struct {
	// Title overrides the filename-derived title.
	Title string `toml:"title"`

	// DocType overrides the extension-derived document type.
	DocType string `toml:"doc_type"`

	// Locale overrides the connector's default locale.
	Locale string `toml:"locale"`

	// BaseURL is the public URL the document's chunks should point at.
	BaseURL string `toml:"base_url"`
}

// Manifest maps relative file paths to their ingestion metadata. Files
// absent from the manifest fall back to derived defaults.
type Manifest struct {
	Docs map[string]ManifestEntry `toml:"docs"`
}

// LoadManifest reads a TOML manifest. A missing file yields an empty
// manifest, not an error.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Lookup returns the entry for a relative path.
func (m Manifest) Lookup(relPath string) (ManifestEntry, bool) {
	entry, ok := m.Docs[relPath]
	return entry, ok
}
