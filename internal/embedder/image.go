package embedder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ClipEmbedder implements ImageEmbedder against a CLIP-style HTTP embedding
// service (e.g. a TEI or Infinity deployment serving clip-vit-base-patch32).
// It is safe for concurrent use.
type ClipEmbedder struct {
	// endpoint is the service base URL (e.g. "http://localhost:7997").
	endpoint string
	// model is the visual embedding model name.
	model string
	// apiKey is an optional Bearer token.
	apiKey string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// ClipConfig holds the settings for constructing a ClipEmbedder.
type ClipConfig struct {
	// Endpoint is the service base URL (e.g. "http://localhost:7997").
	Endpoint string
	// Model is the visual embedding model name.
	Model string
	// APIKey is an optional Bearer token.
	APIKey string
}

// NewClipEmbedder constructs a ClipEmbedder from the given config.
func NewClipEmbedder(cfg *ClipConfig) *ClipEmbedder {
	return &ClipEmbedder{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// clipEmbedRequest is the JSON body sent to the /embeddings endpoint. Images
// travel as base64-encoded strings, the convention used by Infinity-style
// multimodal embedding servers.
type clipEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	// Modality tells the server the inputs are images, not text.
	Modality string `json:"modality"`
}

// clipEmbedResponse is the JSON body returned from the /embeddings endpoint.
type clipEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// EmbedImages converts a batch of raw image bytes into their corresponding
// visual embeddings. The returned slice is parallel to the input slice.
func (e *ClipEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error) {
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	body := clipEmbedRequest{
		Model:    e.model,
		Input:    encoded,
		Modality: "image",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("clip embedder: marshal request: %w", err)
	}

	url := e.endpoint + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("clip embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clip embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result clipEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("clip embedder: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return nil, fmt.Errorf("clip embedder: %s", msg)
	}

	if len(result.Data) != len(images) {
		return nil, fmt.Errorf("clip embedder: expected %d embeddings, got %d", len(images), len(result.Data))
	}

	// The API may return items out of order — reassemble by index.
	out := make([][]float32, len(images))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("clip embedder: embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
