package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPScorer calls a cross-encoder served over HTTP with the /rerank
// endpoint convention used by text-embeddings-inference style servers.
// Safe for concurrent use.
type HTTPScorer struct {
	// endpoint is the service base URL (e.g. "http://localhost:8080").
	endpoint string
	// model is the cross-encoder model name sent with each request.
	model string
	// apiKey is an optional Bearer token.
	apiKey string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// HTTPConfig holds the settings for constructing an HTTPScorer.
type HTTPConfig struct {
	// Endpoint is the service base URL (e.g. "http://localhost:8080").
	Endpoint string
	// Model is the cross-encoder model name.
	Model string
	// APIKey is an optional Bearer token.
	APIKey string
}

// NewHTTPScorer constructs an HTTPScorer from the given config.
func NewHTTPScorer(cfg *HTTPConfig) *HTTPScorer {
	return &HTTPScorer{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// rerankRequest is the JSON body sent to the /rerank endpoint.
type rerankRequest struct {
	Model string   `json:"model,omitempty"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResponse is the JSON body returned from the /rerank endpoint. Items
// reference input texts by index and may arrive out of order.
type rerankResponse []struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score sends the query and candidate texts to the rerank service and
// returns the raw relevance scores, parallel to the input candidates.
func (s *HTTPScorer) Score(ctx context.Context, query string, candidates []Candidate) ([]float64, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Content
	}

	payload, err := json.Marshal(rerankRequest{Model: s.model, Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	url := s.endpoint + "/rerank"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("rerank: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank: HTTP %d", resp.StatusCode)
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}
	if len(result) != len(candidates) {
		return nil, fmt.Errorf("rerank: expected %d scores, got %d", len(candidates), len(result))
	}

	scores := make([]float64, len(candidates))
	for _, item := range result {
		if item.Index < 0 || item.Index >= len(scores) {
			return nil, fmt.Errorf("rerank: score index %d out of range", item.Index)
		}
		scores[item.Index] = item.Score
	}
	return scores, nil
}
