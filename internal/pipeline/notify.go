package pipeline

import (
	"context"
	"log/slog"
)

// Event describes a job state change emitted as ingestion progresses.
type Event struct {
	// DocumentID identifies the document the event belongs to.
	DocumentID string
	// Status is the job's lifecycle state after the change.
	Status string
	// Progress is the completion percentage after the change.
	Progress int
	// Step names the pipeline stage that produced the event.
	Step string
	// Err holds the failure reason for failed events, empty otherwise.
	Err string
}

// Notifier receives job state changes. Implementations must not block the
// pipeline; slow consumers should buffer internally.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// NotifyFunc adapts a function to the Notifier interface.
type NotifyFunc func(ctx context.Context, e Event)

// Notify calls f(ctx, e).
func (f NotifyFunc) Notify(ctx context.Context, e Event) { f(ctx, e) }

// LogNotifier writes every event to a structured logger.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier returns a Notifier that logs events at info level, failures
// at error level.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, e Event) {
	attrs := []any{
		slog.String("document_id", e.DocumentID),
		slog.String("status", e.Status),
		slog.Int("progress", e.Progress),
		slog.String("step", e.Step),
	}
	if e.Err != "" {
		attrs = append(attrs, slog.String("error", e.Err))
		n.log.ErrorContext(ctx, "ingestion failed", attrs...)
		return
	}
	n.log.InfoContext(ctx, "ingestion progress", attrs...)
}
