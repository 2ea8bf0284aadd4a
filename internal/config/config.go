// Package config provides YAML-based configuration for docrag.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. DOCRAG_CONFIG environment variable
//  3. ~/.docrag/config.yaml
//  4. ./docrag.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Model configures the LLM generation provider.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the text and image embedding backends.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Vision configures the image description backend.
	Vision VisionConfig `yaml:"vision"`

	// Rerank configures the cross-encoder rerank service.
	Rerank RerankConfig `yaml:"rerank"`

	// Qdrant configures the Qdrant vector index connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Pipeline configures ingestion workers and chunking.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Engine configures the query read path.
	Engine EngineConfig `yaml:"engine"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Jobs configures processing-job persistence.
	Jobs JobsConfig `yaml:"jobs"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds LLM generation settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, gemini.
	Provider string `yaml:"provider"`

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`

	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`

	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure"`

	// Gemini holds Google Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the Ollama model name.
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the OpenAI model name.
	Model string `yaml:"model"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the Azure OpenAI resource endpoint.
	Endpoint string `yaml:"endpoint"`
	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the Gemini model name.
	Model string `yaml:"model"`
}

// EmbeddingConfig holds text and image embedding settings.
type EmbeddingConfig struct {
	// Provider selects the text embedding backend (ollama, openai, azure).
	Provider string `yaml:"provider"`
	// Model is the text embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
	// ImageEndpoint is the CLIP-style visual embedding service URL.
	// Empty disables visual embedding.
	ImageEndpoint string `yaml:"image_endpoint"`
	// ImageModel is the visual embedding model name.
	ImageModel string `yaml:"image_model"`
	// ImageAPIKey is the visual embedding Bearer token.
	ImageAPIKey string `yaml:"image_api_key"`
	// HybridTextWeight is the text share when fusing description and
	// visual embeddings (0–1).
	HybridTextWeight float64 `yaml:"hybrid_text_weight"`
}

// VisionConfig holds image description settings.
type VisionConfig struct {
	// Host is the multimodal Ollama endpoint used for image description.
	Host string `yaml:"host"`
	// Model is the multimodal model name (e.g. "llava").
	Model string `yaml:"model"`
}

// RerankConfig holds cross-encoder rerank service settings.
type RerankConfig struct {
	// Endpoint is the rerank service base URL. Empty disables reranking.
	Endpoint string `yaml:"endpoint"`
	// Model is the cross-encoder model name.
	Model string `yaml:"model"`
	// APIKey is the rerank API key. Prefer env var RERANK_API_KEY.
	APIKey string `yaml:"api_key"`
	// MinScore is the relevance floor for reranked candidates (0–1).
	MinScore float64 `yaml:"min_score"`
	// TopN caps how many candidates survive reranking.
	TopN int `yaml:"top_n"`
}

// QdrantConfig holds Qdrant vector index settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// PipelineConfig holds ingestion settings.
type PipelineConfig struct {
	// Workers is the ingestion worker pool size.
	Workers int `yaml:"workers"`
	// ChunkWindowTokens is the sentence-window chunk size in tokens.
	ChunkWindowTokens int `yaml:"chunk_window_tokens"`
	// ChunkOverlapTokens is the overlap between consecutive chunks.
	ChunkOverlapTokens int `yaml:"chunk_overlap_tokens"`
	// ChunkMaxTokens is the hard per-chunk token cap.
	ChunkMaxTokens int `yaml:"chunk_max_tokens"`
	// MaxRetries bounds embedding and indexing retry attempts.
	MaxRetries int `yaml:"max_retries"`
}

// EngineConfig holds query read-path settings.
type EngineConfig struct {
	// TopK is the retrieval candidate count before reranking.
	TopK int `yaml:"top_k"`
	// ContextTokens is the context assembly budget.
	ContextTokens int `yaml:"context_tokens"`
	// CacheTTL is the response cache lifetime (Go duration, e.g. "1h").
	CacheTTL string `yaml:"cache_ttl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var DOCRAG_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// JobsConfig holds processing-job persistence settings.
type JobsConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"IMAGE_EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.ImageEndpoint }},
	{"IMAGE_EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.ImageModel }},
	{"IMAGE_EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.ImageAPIKey }},
	{"HYBRID_TEXT_WEIGHT", func(c *Config) string { return floatStr(c.Embedding.HybridTextWeight) }},
	{"VISION_HOST", func(c *Config) string { return c.Vision.Host }},
	{"VISION_MODEL", func(c *Config) string { return c.Vision.Model }},
	{"RERANK_ENDPOINT", func(c *Config) string { return c.Rerank.Endpoint }},
	{"RERANK_MODEL", func(c *Config) string { return c.Rerank.Model }},
	{"RERANK_API_KEY", func(c *Config) string { return c.Rerank.APIKey }},
	{"RERANK_MIN_SCORE", func(c *Config) string { return floatStr(c.Rerank.MinScore) }},
	{"RERANK_TOP_N", func(c *Config) string { return intStr(c.Rerank.TopN) }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"PIPELINE_WORKERS", func(c *Config) string { return intStr(c.Pipeline.Workers) }},
	{"CHUNK_WINDOW_TOKENS", func(c *Config) string { return intStr(c.Pipeline.ChunkWindowTokens) }},
	{"CHUNK_OVERLAP_TOKENS", func(c *Config) string { return intStr(c.Pipeline.ChunkOverlapTokens) }},
	{"CHUNK_MAX_TOKENS", func(c *Config) string { return intStr(c.Pipeline.ChunkMaxTokens) }},
	{"PIPELINE_MAX_RETRIES", func(c *Config) string { return intStr(c.Pipeline.MaxRetries) }},
	{"QUERY_TOP_K", func(c *Config) string { return intStr(c.Engine.TopK) }},
	{"CONTEXT_TOKENS", func(c *Config) string { return intStr(c.Engine.ContextTokens) }},
	{"CACHE_TTL", func(c *Config) string { return c.Engine.CacheTTL }},
	{"DOCRAG_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"DOCRAG_JOBS_DB", func(c *Config) string { return c.Jobs.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("DOCRAG_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".docrag", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("docrag.yaml"); err == nil {
		return "docrag.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
