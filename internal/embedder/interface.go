package embedder

import "context"

// Embedder converts text into dense vector embeddings.
// Implementations must be idempotent, order-preserving (the returned slice is
// parallel to the input), and safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEmbedder converts raw image bytes into dense vector embeddings.
// Implementations must be order-preserving and safe for concurrent use.
type ImageEmbedder interface {
	// EmbedImages converts a batch of images into their corresponding
	// embeddings. The returned slice is parallel to the input.
	EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error)
}
