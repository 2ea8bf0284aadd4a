// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// ingestSubmittedTotal counts POST /api/documents submissions, partitioned
	// by outcome: "accepted", "conflict", or "error".
	ingestSubmittedTotal *prometheus.CounterVec

	// documentsDeletedTotal counts successful document deletions.
	documentsDeletedTotal prometheus.Counter

	// queryRequestsTotal counts completed /api/query requests, partitioned by
	// outcome: "ok", "cached", or "error".
	queryRequestsTotal *prometheus.CounterVec

	// queryDurationSeconds records the wall-clock duration of each /api/query
	// request through retrieval, reranking, and generation.
	queryDurationSeconds *prometheus.HistogramVec

	// queryCacheHitsTotal counts queries served from the response cache.
	queryCacheHitsTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		ingestSubmittedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docrag",
			Subsystem: "ingest",
			Name:      "documents_submitted_total",
			Help:      "Total number of document submissions, partitioned by outcome.",
		}, []string{"outcome"}),

		documentsDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docrag",
			Subsystem: "ingest",
			Name:      "documents_deleted_total",
			Help:      "Total number of documents deleted from the index.",
		}),

		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docrag",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of /api/query requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		queryDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docrag",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/query requests through retrieval, reranking, and generation.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),

		queryCacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docrag",
			Subsystem: "query",
			Name:      "cache_hits_total",
			Help:      "Total number of queries served from the response cache.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docrag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
