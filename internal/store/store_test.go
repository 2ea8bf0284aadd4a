package store

import (
	"context"
	"errors"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "doc-1", "Pump Manual"); err != nil {
		t.Fatalf("create: %v", err)
	}

	job, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != StatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
	if job.Name != "Pump Manual" {
		t.Errorf("name = %q, want Pump Manual", job.Name)
	}
	if job.Progress != 0 {
		t.Errorf("progress = %d, want 0", job.Progress)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestStore_UpdateRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "doc-2", "Compressor Guide"); err != nil {
		t.Fatalf("create: %v", err)
	}

	job, err := s.Get(ctx, "doc-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	job.Status = StatusProcessing
	job.Progress = 50
	job.Step = "embedding"
	job.TextChunks = 12
	job.ImageChunks = 3
	job.TableChunks = 2
	if err := s.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.Get(ctx, "doc-2")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Status != StatusProcessing || got.Progress != 50 || got.Step != "embedding" {
		t.Errorf("got %s/%d/%s, want processing/50/embedding", got.Status, got.Progress, got.Step)
	}
	if got.TextChunks != 12 || got.ImageChunks != 3 || got.TableChunks != 2 {
		t.Errorf("chunk counts = %d/%d/%d, want 12/3/2", got.TextChunks, got.ImageChunks, got.TableChunks)
	}
}

func TestStore_ResubmissionResetsJob(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "doc-3", "v1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	job, _ := s.Get(ctx, "doc-3")
	job.Status = StatusFailed
	job.Progress = 75
	job.Error = "embedding backend unreachable"
	if err := s.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Re-submitting the same document starts a clean run.
	if err := s.Create(ctx, "doc-3", "v2"); err != nil {
		t.Fatalf("re-create: %v", err)
	}
	got, err := s.Get(ctx, "doc-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusQueued || got.Progress != 0 || got.Error != "" {
		t.Errorf("got %s/%d/%q, want queued/0/empty after re-submission", got.Status, got.Progress, got.Error)
	}
	if got.Name != "v2" {
		t.Errorf("name = %q, want v2", got.Name)
	}
}

func TestStore_GetUnknownReturnsNotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "no-such-doc")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateUnknownReturnsNotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	err := s.Update(context.Background(), &Job{DocumentID: "no-such-doc", Status: StatusProcessing})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "doc-4", "Manual"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, "doc-4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "doc-4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}

	// Deleting an unknown document is not an error.
	if err := s.Delete(ctx, "doc-4"); err != nil {
		t.Errorf("double delete = %v, want nil", err)
	}
}
