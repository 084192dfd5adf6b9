package domain

// Page is one extraction unit of a source document. For PDFs this is a
// physical page; for single-body formats the whole text is one page.
type Page struct {
	// Number is the 1-based page number within the source.
	Number int

	// Text is the cleaned page text.
	Text string

	// HasText reports whether extraction yielded usable text for this page.
	// Pages without text contribute no chunks (an OCR engine may fill them
	// in before ingestion).
	HasText bool
}

// SourceDocument is the ingestion input: extracted text plus the metadata
// every chunk of the document inherits.
type SourceDocument struct {
	// DocType categorises the document ("kb", "guide", "pdf", "page",
	// "policy", "product").
	DocType string

	// DocID is the stable identifier for the document across re-ingestions.
	DocID string

	// Title is the human-readable document title.
	Title string

	// Locale is the document's language tag.
	Locale string

	// BaseURL, when set, is used to build per-page chunk URLs
	// ("{base_url}#p={page}").
	BaseURL string

	// Paged reports whether the document has meaningful page boundaries.
	// Paged documents get per-page titles and URLs on their chunks.
	Paged bool

	// Pages holds the extraction units in reading order.
	Pages []Page
}

// Text concatenates the usable text of all pages in reading order.
func (d *SourceDocument) Text() string {
	var out string
	for _, p := range d.Pages {
		if !p.HasText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}
