package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/54b3r/docrag-go/internal/cache"
	"github.com/54b3r/docrag-go/internal/chunker"
	"github.com/54b3r/docrag-go/internal/embedder"
	"github.com/54b3r/docrag-go/internal/engine"
	"github.com/54b3r/docrag-go/internal/pipeline"
	"github.com/54b3r/docrag-go/internal/provider"
	"github.com/54b3r/docrag-go/internal/rerank"
	"github.com/54b3r/docrag-go/internal/store"
	"github.com/54b3r/docrag-go/internal/vectorindex"
	"github.com/54b3r/docrag-go/internal/vision"
)

// envOrDefault returns the environment variable value or a default.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt returns the environment variable parsed as int, or a default.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envFloat returns the environment variable parsed as float64, or a default.
func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// embedNamespace derives the embedding-cache namespace for one side of the
// pipeline ("document" or "query") from the resolved backend and model, so
// switching EMBEDDING_MODEL never serves stale vectors.
func embedNamespace(kind string) string {
	backend := envOrDefault("EMBEDDING_PROVIDER", envOrDefault("MODEL_PROVIDER", "ollama"))
	return kind + "/" + backend + "/" + os.Getenv("EMBEDDING_MODEL")
}

// buildIndex connects to Qdrant using QDRANT_* env vars and ensures the
// per-modality collections exist.
func buildIndex(ctx context.Context) (*vectorindex.QdrantIndex, error) {
	embBackend := envOrDefault("EMBEDDING_PROVIDER", envOrDefault("MODEL_PROVIDER", "ollama"))
	vectorSize := uint64(embedder.DefaultDimensions(embBackend)) //nolint:gosec // dimensions are bounded

	host := envOrDefault("QDRANT_HOST", "localhost")
	port := envInt("QDRANT_PORT", 6334)

	idx, err := vectorindex.NewQdrantIndex(ctx, &vectorindex.QdrantConfig{
		Host:       host,
		Port:       port,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return idx, nil
}

// buildJobStore opens the SQLite job store. DOCRAG_JOBS_DB overrides the
// default path (~/.docrag/jobs.db).
func buildJobStore() (store.JobStore, string, error) {
	path := os.Getenv("DOCRAG_JOBS_DB")
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, "", fmt.Errorf("could not resolve job store path: %w", err)
		}
	}
	js, err := store.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open job store: %w", err)
	}
	return js, path, nil
}

// buildDescriber constructs the vision describer chain used for image
// regions. VISION_HOST falls back to OLLAMA_HOST so a single local Ollama
// serves both chat and vision models.
func buildDescriber() vision.Describer {
	host := envOrDefault("VISION_HOST", envOrDefault("OLLAMA_HOST", "http://localhost:11434"))
	model := envOrDefault("VISION_MODEL", "llava")
	return vision.NewChain(vision.NewOllamaDescriber(&vision.OllamaConfig{
		Host:  host,
		Model: model,
	}))
}

// buildReranker constructs the candidate reranker. Without RERANK_ENDPOINT
// the reranker keeps vector-similarity order and only applies the relevance
// floor and result cap.
func buildReranker(log *slog.Logger) *rerank.Reranker {
	var scorer rerank.Scorer
	if endpoint := os.Getenv("RERANK_ENDPOINT"); endpoint != "" {
		scorer = rerank.NewHTTPScorer(&rerank.HTTPConfig{
			Endpoint: endpoint,
			Model:    os.Getenv("RERANK_MODEL"),
			APIKey:   os.Getenv("RERANK_API_KEY"),
		})
	}

	var opts []rerank.Option
	if s := envFloat("RERANK_MIN_SCORE", 0); s > 0 {
		opts = append(opts, rerank.WithMinScore(s))
	}
	if n := envInt("RERANK_TOP_N", 0); n > 0 {
		opts = append(opts, rerank.WithTopN(n))
	}

	return rerank.New(scorer, log, opts...)
}

// buildPipelineConfig assembles the ingestion pipeline tunables from env.
func buildPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Chunker: chunker.Config{
			WindowSize: envInt("CHUNK_WINDOW_TOKENS", 0),
			Overlap:    envInt("CHUNK_OVERLAP_TOKENS", 0),
			MaxTokens:  envInt("CHUNK_MAX_TOKENS", 0),
		},
		TextWeight: envFloat("HYBRID_TEXT_WEIGHT", 0),
		MaxRetries: envInt("PIPELINE_MAX_RETRIES", 0),
	}
}

// buildEngine wires the read path: query embedding (instructed and cached),
// retrieval, reranking, generation, and the answer cache.
func buildEngine(ctx context.Context, index vectorindex.Index, base embedder.Embedder, vectors *cache.TTL, log *slog.Logger) (*engine.Engine, error) {
	queryEmb := embedder.NewInstructedEmbedder(base, embedder.QueryPrefix)

	var emb embedder.Embedder = queryEmb
	if vectors != nil {
		emb = embedder.NewCachedEmbedder(queryEmb, vectors, embedNamespace("query"))
	}

	retriever, err := engine.NewRetriever(emb, index, envInt("QUERY_TOP_K", 0))
	if err != nil {
		return nil, fmt.Errorf("failed to build retriever: %w", err)
	}

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	generator, err := engine.NewGenerator(chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator: %w", err)
	}

	responses := cache.NewTTL(answerCacheTTL())
	responses.StartJanitor(ctx, 0)

	return engine.New(retriever, buildReranker(log), generator, responses, envInt("CONTEXT_TOKENS", 0), log)
}

// answerCacheTTL resolves the answer cache lifetime from CACHE_TTL.
func answerCacheTTL() time.Duration {
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return cache.DefaultTTL
}
