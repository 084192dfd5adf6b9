package driven

import "context"

// TextProcessor transforms document text before chunking (cleaning,
// whitespace normalisation). Processors are chained in a pipeline.
type TextProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process returns the transformed text.
	Process(ctx context.Context, text string) (string, error)
}

// Chunker splits normalised text into bounded, overlapping fragments in
// reading order. Fragment order defines chunk_index.
type Chunker interface {
	// Chunk splits text into fragments. A blank text yields no fragments;
	// text within the size bound yields exactly one.
	Chunk(text string) []string
}
