package extractors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/extractors/html"
	"github.com/piolet-labs/piolet-cli/internal/extractors/pdf"
	"github.com/piolet-labs/piolet-cli/internal/extractors/plaintext"
)

func TestRegistry_ForPath(t *testing.T) {
	r := NewRegistry(plaintext.New(), html.New(), pdf.New())

	t.Run("selects by extension", func(t *testing.T) {
		e, err := r.ForPath("data/guia.pdf")
		require.NoError(t, err)
		assert.Contains(t, e.SupportedExtensions(), ".pdf")
	})

	t.Run("case insensitive", func(t *testing.T) {
		e, err := r.ForPath("data/KB.TXT")
		require.NoError(t, err)
		assert.Contains(t, e.SupportedExtensions(), ".txt")
	})

	t.Run("markdown routed to plaintext", func(t *testing.T) {
		e, err := r.ForPath("notas.md")
		require.NoError(t, err)
		assert.Contains(t, e.SupportedExtensions(), ".md")
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := r.ForPath("imagen.png")
		assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
	})
}

func TestRegistry_Extensions(t *testing.T) {
	r := NewRegistry(plaintext.New())
	assert.ElementsMatch(t, []string{".txt", ".md"}, r.Extensions())
}
