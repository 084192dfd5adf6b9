// Package postprocessors provides text processing stages that run between
// extraction and chunking.
package postprocessors

import (
	"context"
	"strings"
	"unicode"
)

// Cleaner normalises extracted text: control and symbol noise from PDF
// extraction is replaced by spaces and whitespace runs are collapsed.
// It implements the TextProcessor interface.
type Cleaner struct{}

// NewCleaner creates a new text cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Name returns the processor name.
func (c *Cleaner) Name() string {
	return "cleaner"
}

// Process returns the cleaned text.
func (c *Cleaner) Process(_ context.Context, text string) (string, error) {
	return Clean(text), nil
}

// Clean strips characters that carry no retrieval value (control runes,
// stray symbols from PDF extraction) and collapses whitespace. Letters,
// digits and common punctuation survive.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if keepRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func keepRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', ',', ';', ':', '!', '?', '-', '(', ')', '[', ']', '¿', '¡', '\'', '"', '/', '%', '€', '$':
		return true
	}
	return false
}
