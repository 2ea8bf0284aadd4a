package embedder

import "context"

// Task-specific instruction prefixes understood by instruction-tuned
// embedding models such as nomic-embed-text. Queries and documents live in
// different regions of the embedding space; the prefix tells the model which
// side of the asymmetry this text is on.
const (
	QueryPrefix    = "search_query: "
	DocumentPrefix = "search_document: "
)

// InstructedEmbedder decorates an Embedder with a fixed instruction prefix
// applied to every input. Construct one with DocumentPrefix for the ingestion
// path and one with QueryPrefix for the retrieval path, both sharing the same
// underlying backend.
type InstructedEmbedder struct {
	inner  Embedder
	prefix string
}

// NewInstructedEmbedder wraps inner so every text is embedded with prefix
// prepended. An empty prefix makes the wrapper a no-op passthrough.
func NewInstructedEmbedder(inner Embedder, prefix string) *InstructedEmbedder {
	return &InstructedEmbedder{inner: inner, prefix: prefix}
}

// Embed prepends the configured prefix to each text and delegates to the
// underlying embedder.
func (e *InstructedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.prefix == "" {
		return e.inner.Embed(ctx, texts)
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.prefix + t
	}
	return e.inner.Embed(ctx, prefixed)
}
