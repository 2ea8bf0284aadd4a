package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// VectorCache is the subset of cache behavior CachedEmbedder needs. The
// concrete implementation lives in internal/cache; the interface keeps this
// package testable with a plain map.
type VectorCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// CachedEmbedder decorates an Embedder with an embedding cache keyed by
// content hash. Re-ingesting an unchanged document, or embedding the same
// query twice, then skips the backend call entirely. Only the texts missing
// from the cache are forwarded, in their original order.
type CachedEmbedder struct {
	inner Embedder
	cache VectorCache
	// namespace distinguishes cache entries across models so switching
	// EMBEDDING_MODEL never serves stale vectors.
	namespace string
}

// NewCachedEmbedder wraps inner with the given cache. The namespace should
// identify the backend and model (e.g. "ollama/nomic-embed-text").
func NewCachedEmbedder(inner Embedder, cache VectorCache, namespace string) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, namespace: namespace}
}

// Embed returns embeddings for texts, serving cached vectors where available
// and batching the remaining misses into a single backend call. The returned
// slice is parallel to the input slice.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if v, ok := e.cache.Get(e.key(t)); ok {
			if vec, ok := v.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := e.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, i := range missIdx {
		out[i] = fresh[j]
		e.cache.Set(e.key(texts[i]), fresh[j])
	}
	return out, nil
}

// key derives the cache key for a text from its namespace and content hash.
func (e *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(e.namespace + "\x00" + text))
	return "embed:" + hex.EncodeToString(h[:])
}
