package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/engine"
	"github.com/54b3r/docrag-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /readyz.
	// If empty, /readyz returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics and backs GET /metrics.
	// If nil, a fresh registry is created.
	Registry *prometheus.Registry
}

// answerer is the interface handleQuery calls to answer a question.
// *engine.Engine satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, query string, opts engine.Options) (*engine.Answer, error)
}

// ingestor is the interface handleDocumentSubmit calls to queue a document.
// *pipeline.Workers satisfies it; tests inject a fake.
type ingestor interface {
	// Submit queues doc for processing. Returns an error if the document is
	// already being processed or the queue is unavailable.
	Submit(ctx context.Context, doc *document.Document) error
	// Running reports whether the document is currently being processed.
	Running(documentID string) bool
}

// indexDeleter removes a document's chunks from the vector index.
// vectorindex.Index satisfies it.
type indexDeleter interface {
	DeleteDocument(ctx context.Context, documentID string) error
}

// Deps bundles the collaborators the server exposes over HTTP.
type Deps struct {
	// Engine answers queries. Required.
	Engine answerer
	// Ingestor queues documents for processing. Required.
	Ingestor ingestor
	// Jobs is the processing-job store backing status polls. Required.
	Jobs store.JobStore
	// Index is used by DELETE /api/documents/{id} to drop indexed chunks.
	// Required.
	Index indexDeleter
}

// Server is the HTTP server that exposes the ingestion pipeline and the
// question-answering engine.
type Server struct {
	// deps holds the wired collaborators.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /readyz.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// ingestRequest is the JSON body for POST /api/documents.
type ingestRequest struct {
	// ID is an optional caller-supplied document identifier. When empty the
	// server derives a stable identifier from the name and content.
	ID string `json:"id,omitempty"`
	// Name is the human-readable document name (e.g. "pump-manual.pdf").
	Name string `json:"name"`
	// Content is the page-oriented document text. Pages are separated by
	// form-feed characters.
	Content string `json:"content"`
}

// ingestResponse is the JSON response for POST /api/documents.
type ingestResponse struct {
	// DocumentID identifies the submitted document for status polls.
	DocumentID string `json:"document_id"`
	// Status is the initial job status, always "queued" on acceptance.
	Status string `json:"status"`
}

// statusResponse is the JSON response for GET /api/documents/{id}/status.
type statusResponse struct {
	DocumentID  string `json:"document_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Step        string `json:"step,omitempty"`
	Error       string `json:"error,omitempty"`
	TextChunks  int    `json:"text_chunks"`
	ImageChunks int    `json:"image_chunks"`
	TableChunks int    `json:"table_chunks"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// TopK overrides the retrieval candidate count. Zero uses the default.
	TopK int `json:"top_k,omitempty"`
	// DocumentIDs restricts retrieval to these documents.
	DocumentIDs []string `json:"document_ids,omitempty"`
}
