package ai

import "context"

// TextGenerator is the text-generation oracle. Implementations compose a
// reply from a fully assembled prompt; they never see retrieval internals.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder maps a text to its embedding vector. Used both when building the
// passage index and when embedding an incoming question.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
