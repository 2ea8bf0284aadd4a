package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/store"
)

// ErrJobRunning is returned when a document is submitted while a previous
// run for the same document is still in flight.
var ErrJobRunning = errors.New("pipeline: document is already being processed")

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 2

// Workers runs ingestion jobs on a bounded pool and serializes runs per
// document. Submit returns immediately; progress is observable through the
// job store.
type Workers struct {
	coord *Coordinator
	jobs  store.JobStore
	log   *slog.Logger

	queue chan *document.Document

	mu      sync.Mutex
	running map[string]bool

	wg sync.WaitGroup
}

// NewWorkers creates a pool of n workers (DefaultWorkers if n <= 0) draining
// a queue of the same size.
func NewWorkers(coord *Coordinator, jobs store.JobStore, log *slog.Logger, n int) *Workers {
	if n <= 0 {
		n = DefaultWorkers
	}
	return &Workers{
		coord:   coord,
		jobs:    jobs,
		log:     log,
		queue:   make(chan *document.Document, n*4),
		running: make(map[string]bool),
	}
}

// Start launches the worker goroutines. They drain the queue until ctx is
// cancelled; call Wait to block until in-flight jobs finish.
func (w *Workers) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = DefaultWorkers
	}
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case doc := <-w.queue:
					w.runOne(ctx, doc)
				}
			}
		}()
	}
}

// runOne processes a single queued document and releases its lock.
func (w *Workers) runOne(ctx context.Context, doc *document.Document) {
	defer func() {
		w.mu.Lock()
		delete(w.running, doc.ID)
		w.mu.Unlock()
	}()

	if err := w.coord.Process(ctx, doc); err != nil {
		w.log.ErrorContext(ctx, "document processing failed",
			slog.String("document_id", doc.ID), slog.String("error", err.Error()))
	}
}

// Submit queues a document for ingestion. The job row is created (or reset)
// before queuing so a status poll immediately after Submit sees it. Returns
// ErrJobRunning if the document is already in flight.
func (w *Workers) Submit(ctx context.Context, doc *document.Document) error {
	w.mu.Lock()
	if w.running[doc.ID] {
		w.mu.Unlock()
		return ErrJobRunning
	}
	w.running[doc.ID] = true
	w.mu.Unlock()

	release := func() {
		w.mu.Lock()
		delete(w.running, doc.ID)
		w.mu.Unlock()
	}

	if err := w.jobs.Create(ctx, doc.ID, doc.Name); err != nil {
		release()
		return fmt.Errorf("pipeline: submit: %w", err)
	}

	select {
	case w.queue <- doc:
		return nil
	case <-ctx.Done():
		release()
		return ctx.Err()
	}
}

// Running reports whether the document currently has a run in flight.
func (w *Workers) Running(documentID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running[documentID]
}

// Wait blocks until all workers have exited. Call after cancelling the
// context passed to Start.
func (w *Workers) Wait() {
	w.wg.Wait()
}
