package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/docrag-go/internal/document"
)

// QdrantConfig holds connection parameters for a Qdrant vector index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// VectorSize is the dimensionality of the embeddings stored in every
	// collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements Index backed by a Qdrant instance, with one
// collection per chunk modality.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig
}

// NewQdrantIndex creates a new QdrantIndex, ensuring every modality
// collection exists (creating missing ones), and returns a ready-to-use Index.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg}
	for _, name := range Collections() {
		if err := idx.ensureCollection(ctx, name); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

// Client exposes the underlying Qdrant client, used for readiness probes.
func (s *QdrantIndex) Client() *qdrant.Client { return s.client }

// ensureCollection creates the named Qdrant collection if it does not
// already exist.
func (s *QdrantIndex) ensureCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}

	return nil
}

// Upsert stores or updates a batch of entries, routing each to the
// collection matching its chunk type. Entries must have vectors pre-computed.
func (s *QdrantIndex) Upsert(ctx context.Context, entries []Entry) error {
	byCollection := make(map[string][]*qdrant.PointStruct)
	for _, e := range entries {
		c := e.Chunk
		payload := map[string]any{
			"content":     c.Content,
			"document_id": c.DocumentID,
			"chunk_type":  string(c.Type),
			"page":        int64(c.Page),
			"token_count": int64(c.TokenCount),
		}
		for k, v := range c.Metadata {
			payload[k] = v
		}

		name := CollectionFor(c.Type)
		byCollection[name] = append(byCollection[name], &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	for name, points := range byCollection {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("qdrant: upsert to %q failed: %w", name, err)
		}
	}

	return nil
}

// Search performs a cosine similarity search across the named collections and
// returns the merged top-k results in descending score order.
func (s *QdrantIndex) Search(ctx context.Context, vector []float32, collections []string, topK int, filter *Filter) ([]Hit, error) {
	if len(collections) == 0 {
		collections = Collections()
	}

	var qf *qdrant.Filter
	if filter != nil && len(filter.DocumentIDs) > 0 {
		qf = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchKeywords("document_id", filter.DocumentIDs...),
			},
		}
	}

	limit := uint64(topK)
	var hits []Hit
	for _, name := range collections {
		results, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: name,
			Query:          qdrant.NewQuery(vector...),
			Limit:          &limit,
			Filter:         qf,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: search in %q failed: %w", name, err)
		}

		for _, r := range results {
			hits = append(hits, Hit{
				Chunk:      chunkFromPayload(r.Id.GetUuid(), r.Payload),
				Score:      r.Score,
				Collection: name,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteDocument removes every point whose payload carries the given
// document_id, across all collections.
func (s *QdrantIndex) DeleteDocument(ctx context.Context, documentID string) error {
	selector := qdrant.NewPointsSelectorFilter(&qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("document_id", documentID),
		},
	})

	for _, name := range Collections() {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: name,
			Points:         selector,
		})
		if err != nil {
			return fmt.Errorf("qdrant: delete from %q failed: %w", name, err)
		}
	}

	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

// chunkFromPayload reconstructs a chunk from a stored point payload. Known
// fields map to struct fields; everything else lands in Metadata.
func chunkFromPayload(id string, payload map[string]*qdrant.Value) document.Chunk {
	c := document.Chunk{
		ID:       id,
		Metadata: make(map[string]string),
	}
	for k, v := range payload {
		switch k {
		case "content":
			c.Content = v.GetStringValue()
		case "document_id":
			c.DocumentID = v.GetStringValue()
		case "chunk_type":
			c.Type = document.ChunkType(v.GetStringValue())
		case "page":
			c.Page = int(v.GetIntegerValue())
		case "token_count":
			c.TokenCount = int(v.GetIntegerValue())
		default:
			c.Metadata[k] = payloadString(v)
		}
	}
	return c
}

// payloadString renders a payload value as a string, covering the scalar
// kinds metadata values may take.
func payloadString(v *qdrant.Value) string {
	switch v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return v.GetStringValue()
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(v.GetIntegerValue(), 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(v.GetDoubleValue(), 'f', -1, 64)
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(v.GetBoolValue())
	default:
		return ""
	}
}
