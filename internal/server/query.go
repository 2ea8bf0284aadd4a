package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/54b3r/docrag-go/internal/engine"
	"github.com/54b3r/docrag-go/internal/logging"
)

// handleQuery handles POST /api/query. It runs the full retrieve, rerank,
// generate round trip and returns the answer with citations and confidence.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	ans, err := s.deps.Engine.Answer(r.Context(), req.Question, engine.Options{
		TopK:        req.TopK,
		DocumentIDs: req.DocumentIDs,
	})
	elapsed := time.Since(start)

	if err != nil {
		log.Error("query failed",
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)
		s.metrics.queryRequestsTotal.WithLabelValues("error").Inc()
		s.metrics.queryDurationSeconds.WithLabelValues("error").Observe(elapsed.Seconds())
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	outcome := "ok"
	if ans.Cached {
		outcome = "cached"
		s.metrics.queryCacheHitsTotal.Inc()
	}
	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	log.Info("query answered",
		slog.Duration("duration", elapsed),
		slog.Int("citations", len(ans.Citations)),
		slog.Float64("confidence", ans.Confidence),
		slog.Bool("cached", ans.Cached),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ans); err != nil {
		log.Error("query encode error", slog.Any("error", err))
	}
}
