package engine

import (
	"context"
	"fmt"

	"github.com/54b3r/docrag-go/internal/embedder"
	"github.com/54b3r/docrag-go/internal/rerank"
	"github.com/54b3r/docrag-go/internal/vectorindex"
)

// DefaultTopK is the candidate count fetched from the index before
// reranking. Wider than the final answer needs, since the reranker prunes.
const DefaultTopK = 20

// Retriever embeds the query and fans the search out across every modality
// collection, returning merged candidates for reranking.
type Retriever struct {
	// embedder converts query text to a dense vector. Wrap it with the
	// query instruction prefix so asymmetric models match document vectors.
	embedder embedder.Embedder

	// index performs the vector similarity search.
	index vectorindex.Index

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a Retriever from the given embedder and index.
// defaultTopK sets the fallback result count when Retrieve is called with
// topK=0.
func NewRetriever(emb embedder.Embedder, index vectorindex.Index, defaultTopK int) (*Retriever, error) {
	if emb == nil {
		return nil, fmt.Errorf("engine: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("engine: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{
		embedder:    emb,
		index:       index,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns the top-k most similar chunks across
// all collections, in descending similarity order. A non-nil filter narrows
// the search to the named documents.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filter *vectorindex.Filter) ([]rerank.Candidate, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("engine: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("engine: embedder returned empty result for query")
	}

	hits, err := r.index.Search(ctx, embeddings[0], nil, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("engine: vector search failed: %w", err)
	}

	candidates := make([]rerank.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = rerank.Candidate{Chunk: h.Chunk, Score: float64(h.Score)}
	}
	return candidates, nil
}
