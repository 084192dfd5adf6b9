package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type upperProcessor struct{}

func (upperProcessor) Name() string { return "upper" }
func (upperProcessor) Process(_ context.Context, text string) (string, error) {
	return strings.ToUpper(text), nil
}

type failingProcessor struct{}

func (failingProcessor) Name() string { return "failing" }
func (failingProcessor) Process(_ context.Context, _ string) (string, error) {
	return "", errors.New("boom")
}

func TestPipeline_Process(t *testing.T) {
	t.Run("runs processors in order", func(t *testing.T) {
		p := NewPipeline(NewCleaner(), upperProcessor{})

		got, err := p.Process(context.Background(), "hola \x00 mundo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "HOLA MUNDO" {
			t.Errorf("expected 'HOLA MUNDO', got %q", got)
		}
	})

	t.Run("empty pipeline is identity", func(t *testing.T) {
		p := NewPipeline()
		got, err := p.Process(context.Background(), "texto")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "texto" {
			t.Errorf("expected unchanged text, got %q", got)
		}
	})

	t.Run("error names the processor", func(t *testing.T) {
		p := NewPipeline(failingProcessor{})
		_, err := p.Process(context.Background(), "texto")
		if err == nil || !strings.Contains(err.Error(), "failing") {
			t.Errorf("expected error naming processor, got %v", err)
		}
	})
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	if p.Len() != 0 {
		t.Errorf("expected empty pipeline, got %d", p.Len())
	}
	p.Add(NewCleaner())
	if p.Len() != 1 {
		t.Errorf("expected 1 processor, got %d", p.Len())
	}
}

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "hola   \n\t mundo", "hola mundo"},
		{"strips control runes", "pol\x00ítica\x07 de devoluciones", "pol ítica de devoluciones"},
		{"keeps punctuation", "¿Cuál es su política? (ver guía)", "¿Cuál es su política? (ver guía)"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
