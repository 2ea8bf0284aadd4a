package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// describePrompt instructs the multimodal model to produce a retrieval-ready
// description of a document image.
const describePrompt = "Describe this document image in detail. Cover what it depicts, " +
	"any visible labels or text, and the relationships it shows. Answer in plain prose."

// OllamaDescriber implements Describer using an Ollama multimodal model via
// the /api/generate endpoint. Safe for concurrent use.
type OllamaDescriber struct {
	// host is the Ollama server base URL (e.g. "http://localhost:11434").
	host string
	// model is the vision model name (e.g. "bakllava:7b", "moondream").
	model string
	// client is the shared HTTP client with a bounded timeout.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaDescriber.
type OllamaConfig struct {
	// Host is the Ollama server base URL.
	Host string
	// Model is the vision model name.
	Model string
	// Timeout bounds each describe call (default 120s).
	Timeout time.Duration
}

// NewOllamaDescriber constructs an OllamaDescriber from the given config.
func NewOllamaDescriber(cfg *OllamaConfig) *OllamaDescriber {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaDescriber{
		host:   cfg.Host,
		model:  cfg.Model,
		client: &http.Client{Timeout: timeout},
	}
}

// ollamaGenerateRequest is the JSON body sent to /api/generate.
type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

// ollamaGenerateResponse is the JSON body returned from /api/generate.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Describe sends the image to the vision model and derives the short form
// and salient terms from the returned prose.
func (d *OllamaDescriber) Describe(ctx context.Context, image []byte) (Description, error) {
	if len(image) == 0 {
		return Description{}, fmt.Errorf("ollama vision: empty image")
	}

	body := ollamaGenerateRequest{
		Model:  d.model,
		Prompt: describePrompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Description{}, fmt.Errorf("ollama vision: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return Description{}, fmt.Errorf("ollama vision: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Description{}, fmt.Errorf("ollama vision: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Description{}, fmt.Errorf("ollama vision: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return Description{}, fmt.Errorf("ollama vision: %s", msg)
	}

	long := strings.TrimSpace(result.Response)
	if long == "" {
		return Description{}, fmt.Errorf("ollama vision: model returned empty description")
	}

	return Description{
		Short: firstSentence(long),
		Long:  long,
		Terms: salientTerms(long, 10),
	}, nil
}
