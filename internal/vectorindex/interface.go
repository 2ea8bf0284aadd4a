// Package vectorindex stores chunk embeddings and serves similarity search
// over them. Chunks are partitioned by modality into separate collections so
// text, image, and table vectors never compete inside one index, and
// cross-collection queries merge results by score.
package vectorindex

import (
	"context"

	"github.com/54b3r/docrag-go/internal/document"
)

// Collection names per chunk modality. Composite chunks carry fused
// image+text vectors and live alongside plain image chunks.
const (
	CollectionText   = "text_chunks"
	CollectionImages = "image_chunks"
	CollectionTables = "table_chunks"
)

// CollectionFor maps a chunk type to the collection it is stored in.
func CollectionFor(t document.ChunkType) string {
	switch t {
	case document.ChunkImage, document.ChunkComposite:
		return CollectionImages
	case document.ChunkTable:
		return CollectionTables
	default:
		return CollectionText
	}
}

// Collections lists every collection the index manages, in query fan-out order.
func Collections() []string {
	return []string{CollectionText, CollectionImages, CollectionTables}
}

// Entry is a chunk plus its embedding, ready for indexing.
type Entry struct {
	// Chunk is the indexed chunk. Its ID becomes the point ID.
	Chunk document.Chunk

	// Vector is the pre-computed embedding for the chunk.
	Vector []float32
}

// Hit is a single similarity-search result.
type Hit struct {
	// Chunk is the matched chunk, reconstructed from the stored payload.
	Chunk document.Chunk

	// Score is the cosine similarity against the query vector.
	Score float32

	// Collection names the collection the hit came from.
	Collection string
}

// Filter narrows a search to a subset of the index.
type Filter struct {
	// DocumentIDs restricts hits to chunks from these documents. Empty
	// means no restriction.
	DocumentIDs []string
}

// Index is the vector storage backend. Implementations must be safe for
// concurrent use.
type Index interface {
	// Upsert stores or replaces entries in the collection matching each
	// chunk's type. Re-upserting an existing chunk ID overwrites it.
	Upsert(ctx context.Context, entries []Entry) error

	// Search returns the top-k nearest entries to the query vector from the
	// named collections, merged and sorted by descending score.
	Search(ctx context.Context, vector []float32, collections []string, topK int, filter *Filter) ([]Hit, error)

	// DeleteDocument removes every chunk belonging to the document from all
	// collections. Deleting an unknown document is not an error.
	DeleteDocument(ctx context.Context, documentID string) error

	// Close releases the backend connection.
	Close() error
}
