// Package chunker provides the sliding-window text chunking processor.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultMaxChars is the default fragment size in characters.
const DefaultMaxChars = 1200

// DefaultOverlap is the default number of overlapping characters between
// consecutive fragments.
const DefaultOverlap = 150

// Processor splits normalised text into bounded, overlapping fragments.
// It implements the Chunker interface.
type Processor struct {
	maxChars int
	overlap  int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the fragment size in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// WithOverlap sets the overlap between fragments in characters.
func WithOverlap(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlap = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits text into fragments using the processor's configuration.
func (p *Processor) Chunk(text string) []string {
	return Split(text, p.maxChars, p.overlap)
}

// Split slides a window of maxChars characters across text, trimming each
// window back to the last whitespace boundary so fragments never cut a word
// in half. The window start advances by max(1, window-overlap), so
// consecutive fragments overlap by roughly overlap characters and progress
// is guaranteed even when overlap >= the window length.
//
// Text at most maxChars long yields a single fragment (none if blank).
// Fragment order follows reading order and defines chunk_index.
func Split(text string, maxChars, overlap int) []string {
	// Collapse runs of whitespace so window arithmetic sees single spaces.
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= maxChars {
		return []string{string(runes)}
	}

	var fragments []string

	i := 0
	for i < len(runes) {
		end := i + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		piece := runes[i:end]

		// Windows that do not reach the end of the text are trimmed back
		// to the last whitespace inside the window. A window with no
		// whitespace at all keeps the raw fixed-length cut.
		if end < len(runes) {
			if j := lastSpace(piece); j > 0 {
				piece = piece[:j]
			}
		}

		if frag := strings.TrimSpace(string(piece)); frag != "" {
			fragments = append(fragments, frag)
		}

		advance := len(piece) - overlap
		if advance < 1 {
			advance = 1
		}
		i += advance
	}

	return fragments
}

// lastSpace returns the index of the last whitespace rune, or -1.
func lastSpace(runes []rune) int {
	for j := len(runes) - 1; j >= 0; j-- {
		if unicode.IsSpace(runes[j]) {
			return j
		}
	}
	return -1
}
