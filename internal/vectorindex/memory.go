package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index used in tests and single-node setups
// where running Qdrant is not worth it. Vectors are compared by cosine
// similarity. Safe for concurrent use.
type MemoryIndex struct {
	mu sync.RWMutex
	// collections maps collection name -> chunk ID -> entry.
	collections map[string]map[string]memEntry
	// nextSeq numbers writes so equal-score search ties keep insertion order.
	nextSeq uint64
}

// memEntry pairs a stored entry with its write sequence number.
type memEntry struct {
	entry Entry
	seq   uint64
}

// NewMemoryIndex returns an empty MemoryIndex with all modality collections
// initialized.
func NewMemoryIndex() *MemoryIndex {
	m := &MemoryIndex{collections: make(map[string]map[string]memEntry)}
	for _, name := range Collections() {
		m.collections[name] = make(map[string]memEntry)
	}
	return m
}

// Upsert stores or replaces entries in the collection matching each chunk's
// type. Replacing an entry keeps its original sequence number so re-ingestion
// does not reshuffle tie ordering.
func (m *MemoryIndex) Upsert(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		name := CollectionFor(e.Chunk.Type)
		if m.collections[name] == nil {
			m.collections[name] = make(map[string]memEntry)
		}
		seq := m.nextSeq
		if prev, ok := m.collections[name][e.Chunk.ID]; ok {
			seq = prev.seq
		} else {
			m.nextSeq++
		}
		m.collections[name][e.Chunk.ID] = memEntry{entry: e, seq: seq}
	}
	return nil
}

// Search scans the named collections and returns the top-k entries by cosine
// similarity, in descending score order. Equal scores keep insertion order.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, collections []string, topK int, filter *Filter) ([]Hit, error) {
	if len(collections) == 0 {
		collections = Collections()
	}

	allowed := map[string]bool{}
	if filter != nil {
		for _, id := range filter.DocumentIDs {
			allowed[id] = true
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		hit Hit
		seq uint64
	}
	var hits []scored
	for _, name := range collections {
		for _, e := range m.collections[name] {
			if len(allowed) > 0 && !allowed[e.entry.Chunk.DocumentID] {
				continue
			}
			hits = append(hits, scored{
				hit: Hit{
					Chunk:      e.entry.Chunk,
					Score:      cosine(vector, e.entry.Vector),
					Collection: name,
				},
				seq: e.seq,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].hit.Score != hits[j].hit.Score {
			return hits[i].hit.Score > hits[j].hit.Score
		}
		return hits[i].seq < hits[j].seq
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = h.hit
	}
	return out, nil
}

// DeleteDocument removes every entry belonging to the document from all
// collections.
func (m *MemoryIndex) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, coll := range m.collections {
		for id, e := range coll {
			if e.entry.Chunk.DocumentID == documentID {
				delete(coll, id)
			}
		}
	}
	return nil
}

// Close is a no-op for the in-memory index.
func (m *MemoryIndex) Close() error { return nil }

// Count returns the number of entries in the named collection.
func (m *MemoryIndex) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// cosine returns the cosine similarity of a and b. Mismatched lengths are
// compared over the shorter prefix; a zero vector scores 0.
func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
