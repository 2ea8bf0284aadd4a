package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/54b3r/docrag-go/internal/cache"
	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/pipeline"
	"github.com/54b3r/docrag-go/internal/store"
)

// handleDocumentSubmit handles POST /api/documents. It parses the document,
// queues it for asynchronous processing, and returns 202 Accepted with the
// handle the client polls for status.
func (s *Server) handleDocumentSubmit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	id := req.ID
	if id == "" {
		// Content-addressed: resubmitting the same document reuses its job.
		id = cache.Fingerprint(req.Name, req.Content)
	}

	doc, err := document.Load(r.Context(), id, req.Name, []byte(req.Content), nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.deps.Ingestor.Submit(r.Context(), doc); err != nil {
		if errors.Is(err, pipeline.ErrJobRunning) {
			s.metrics.ingestSubmittedTotal.WithLabelValues("conflict").Inc()
			http.Error(w, "document is already being processed", http.StatusConflict)
			return
		}
		log.Error("document submit failed",
			slog.String("document_id", id),
			slog.Any("error", err),
		)
		s.metrics.ingestSubmittedTotal.WithLabelValues("error").Inc()
		http.Error(w, "failed to queue document", http.StatusInternalServerError)
		return
	}

	s.metrics.ingestSubmittedTotal.WithLabelValues("accepted").Inc()
	log.Info("document queued",
		slog.String("document_id", id),
		slog.String("name", req.Name),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ingestResponse{
		DocumentID: id,
		Status:     string(store.StatusQueued),
	})
}

// handleDocumentStatus handles GET /api/documents/{id}/status.
func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := s.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{
		DocumentID:  job.DocumentID,
		Name:        job.Name,
		Status:      string(job.Status),
		Progress:    job.Progress,
		Step:        job.Step,
		Error:       job.Error,
		TextChunks:  job.TextChunks,
		ImageChunks: job.ImageChunks,
		TableChunks: job.TableChunks,
		CreatedAt:   job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   job.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// handleDocumentDelete handles DELETE /api/documents/{id}. It removes the
// document's chunks from every collection and drops the job record. Deleting
// an unknown document is a no-op success.
func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	id := r.PathValue("id")

	if s.deps.Ingestor.Running(id) {
		http.Error(w, "document is being processed", http.StatusConflict)
		return
	}

	if err := s.deps.Index.DeleteDocument(r.Context(), id); err != nil {
		log.Error("document delete failed",
			slog.String("document_id", id),
			slog.Any("error", err),
		)
		http.Error(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	if err := s.deps.Jobs.Delete(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("job delete failed",
			slog.String("document_id", id),
			slog.Any("error", err),
		)
		http.Error(w, "failed to delete job record", http.StatusInternalServerError)
		return
	}

	s.metrics.documentsDeletedTotal.Inc()
	log.Info("document deleted", slog.String("document_id", id))
	w.WriteHeader(http.StatusNoContent)
}
