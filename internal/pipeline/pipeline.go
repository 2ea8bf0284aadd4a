// Package pipeline orchestrates document ingestion: pages are segmented into
// typed regions, regions are extracted in parallel, extracted content is
// chunked, embedded, and indexed. Progress is checkpointed to the job store
// after every stage so clients can poll while ingestion runs in the
// background.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/54b3r/docrag-go/internal/chunker"
	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/embedder"
	"github.com/54b3r/docrag-go/internal/extract"
	"github.com/54b3r/docrag-go/internal/segment"
	"github.com/54b3r/docrag-go/internal/store"
	"github.com/54b3r/docrag-go/internal/vectorindex"
	"github.com/54b3r/docrag-go/internal/vision"
)

// Progress checkpoints written after each stage completes.
const (
	progressSegmented = 10
	progressExtracted = 25
	progressChunked   = 50
	progressEmbedded  = 75
	progressIndexed   = 90
	progressDone      = 100
)

// Config holds the tunable parameters of the ingestion pipeline.
type Config struct {
	// Chunker configures chunk window size, overlap, and token cap.
	Chunker chunker.Config

	// ConfidenceFloor is the minimum region confidence before a region is
	// downgraded to text. Zero uses the segmenter default.
	ConfidenceFloor float64

	// TextWeight is the text share when fusing description and visual
	// embeddings for composite chunks. Zero uses the embedder default.
	TextWeight float64

	// EmbedBatchSize caps how many chunks are embedded per backend call.
	// Defaults to 32.
	EmbedBatchSize int

	// MaxRetries bounds retry attempts for embedding and indexing calls.
	// Defaults to 3.
	MaxRetries int

	// RetryBackoff is the initial backoff between retries; it doubles per
	// attempt. Defaults to 1s.
	RetryBackoff time.Duration
}

// Coordinator runs documents through the ingestion stages and keeps the job
// store current. Safe for concurrent use across distinct documents; the
// Workers wrapper enforces one run per document at a time.
type Coordinator struct {
	segmenter *segment.Segmenter
	textExt   extract.TextExtractor
	tableExt  *extract.TableExtractor
	imageExt  *extract.ImageExtractor

	chunker  *chunker.Chunker
	embedder embedder.Embedder
	// imageEmbedder is optional; nil disables visual fusion and composite
	// chunks embed by description text only.
	imageEmbedder embedder.ImageEmbedder

	index    vectorindex.Index
	jobs     store.JobStore
	notifier Notifier
	log      *slog.Logger
	cfg      Config
}

// NewCoordinator wires the pipeline stages together. The describer drives
// image description during extraction; notifier may be nil.
func NewCoordinator(
	describer vision.Describer,
	textEmbedder embedder.Embedder,
	imageEmbedder embedder.ImageEmbedder,
	index vectorindex.Index,
	jobs store.JobStore,
	notifier Notifier,
	log *slog.Logger,
	cfg Config,
) (*Coordinator, error) {
	if textEmbedder == nil {
		return nil, fmt.Errorf("pipeline: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("pipeline: index must not be nil")
	}
	if jobs == nil {
		return nil, fmt.Errorf("pipeline: job store must not be nil")
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.TextWeight <= 0 {
		cfg.TextWeight = embedder.DefaultTextWeight
	}
	if notifier == nil {
		notifier = NotifyFunc(func(context.Context, Event) {})
	}
	if log == nil {
		log = slog.Default()
	}

	return &Coordinator{
		segmenter:     segment.New(cfg.ConfidenceFloor),
		tableExt:      extract.NewTableExtractor(),
		imageExt:      extract.NewImageExtractor(describer),
		chunker:       chunker.New(cfg.Chunker),
		embedder:      textEmbedder,
		imageEmbedder: imageEmbedder,
		index:         index,
		jobs:          jobs,
		notifier:      notifier,
		log:           log,
		cfg:           cfg,
	}, nil
}

// Process runs a document through every stage. The job row must already
// exist (Create is the submitter's job). On failure, partially indexed
// entries for the document are rolled back and the job is marked failed.
func (c *Coordinator) Process(ctx context.Context, doc *document.Document) error {
	job, err := c.jobs.Get(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("pipeline: load job: %w", err)
	}
	job.Status = store.StatusProcessing

	if err := c.run(ctx, doc, job); err != nil {
		c.fail(ctx, doc.ID, job, err)
		return err
	}
	return nil
}

// run executes the stages in order, checkpointing after each.
func (c *Coordinator) run(ctx context.Context, doc *document.Document, job *store.Job) error {
	// Stage 1: segmentation.
	var regions []document.Region
	for i := range doc.Pages {
		regions = append(regions, c.segmenter.Segment(&doc.Pages[i])...)
	}
	if len(regions) == 0 {
		return fmt.Errorf("pipeline: document %s has no extractable content", doc.ID)
	}
	if err := c.checkpoint(ctx, job, progressSegmented, "segmenting"); err != nil {
		return err
	}

	// Stage 2: extraction, regions in parallel.
	results, failed := c.extractAll(ctx, regions)
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed == len(regions) {
		return fmt.Errorf("pipeline: all %d regions failed extraction for document %s", len(regions), doc.ID)
	}
	if err := c.checkpoint(ctx, job, progressExtracted, "extracting"); err != nil {
		return err
	}

	// Stage 3: chunking.
	chunks := c.buildChunks(doc.ID, doc.Name, results)
	chunks, rejected := c.chunker.Validate(chunks)
	if rejected > 0 {
		c.log.WarnContext(ctx, "chunks rejected during validation",
			slog.String("document_id", doc.ID), slog.Int("rejected", rejected))
	}
	if len(chunks) == 0 {
		return fmt.Errorf("pipeline: document %s produced no valid chunks", doc.ID)
	}
	if err := c.checkpoint(ctx, job, progressChunked, "chunking"); err != nil {
		return err
	}

	// Stage 4: embedding.
	entries, err := c.embedAll(ctx, chunks)
	if err != nil {
		return err
	}
	if err := c.checkpoint(ctx, job, progressEmbedded, "embedding"); err != nil {
		return err
	}

	// Stage 5: indexing. Delete first so re-ingestion never leaves stale
	// chunks from a previous version of the document behind.
	if err := c.retry(ctx, func() error {
		return c.index.DeleteDocument(ctx, doc.ID)
	}); err != nil {
		return fmt.Errorf("pipeline: clearing previous entries: %w", err)
	}
	if err := c.retry(ctx, func() error {
		return c.index.Upsert(ctx, entries)
	}); err != nil {
		return fmt.Errorf("pipeline: indexing: %w", err)
	}
	if err := c.checkpoint(ctx, job, progressIndexed, "indexing"); err != nil {
		return err
	}

	// Done.
	for _, ch := range chunks {
		switch ch.Type {
		case document.ChunkTable:
			job.TableChunks++
		case document.ChunkImage, document.ChunkComposite:
			job.ImageChunks++
		default:
			job.TextChunks++
		}
	}
	job.Status = store.StatusCompleted
	return c.checkpoint(ctx, job, progressDone, "completed")
}

// extracted holds the per-region output of the extraction stage.
type extracted struct {
	region document.Region
	text   string
	table  *document.Table
	desc   vision.Description
	failed bool
}

// extractAll runs the matching extractor over every region concurrently and
// returns results in region order plus the count of failed regions. A table
// region no strategy recognises falls back to plain text extraction.
func (c *Coordinator) extractAll(ctx context.Context, regions []document.Region) ([]extracted, int) {
	results := make([]extracted, len(regions))
	var wg sync.WaitGroup
	for i := range regions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.extractOne(ctx, regions[i])
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.failed {
			failed++
		}
	}
	return results, failed
}

// extractOne dispatches a single region to its extractor.
func (c *Coordinator) extractOne(ctx context.Context, region document.Region) extracted {
	out := extracted{region: region}
	switch region.Type {
	case document.RegionTable:
		table, _, err := c.tableExt.Extract(&region)
		if err != nil {
			if errors.Is(err, extract.ErrNoTable) || errors.Is(err, extract.ErrTableTooSmall) {
				// Not table-shaped after all; keep the content as text.
				out.text = c.textExt.Extract(&region)
				out.failed = out.text == ""
				return out
			}
			out.failed = true
			return out
		}
		out.table = table

	case document.RegionImage:
		desc, err := c.imageExt.Extract(ctx, &region)
		if err != nil {
			out.failed = true
			return out
		}
		out.desc = desc

	default:
		out.text = c.textExt.Extract(&region)
		out.failed = out.text == ""
	}
	return out
}

// buildChunks turns extraction results into chunks, preserving region order.
// The region's position in the result slice seeds the chunk ID offset so IDs
// stay stable across runs of the same document content.
func (c *Coordinator) buildChunks(docID, docName string, results []extracted) []document.Chunk {
	var chunks []document.Chunk
	for i, r := range results {
		if r.failed {
			continue
		}
		meta := map[string]string{"document_name": docName}
		switch {
		case r.table != nil:
			chunks = append(chunks, c.chunker.ChunkTable(docID, r.region.Page, i, r.table, meta)...)
		case r.region.Type == document.RegionImage:
			var imageData []byte
			if r.region.Block != nil {
				imageData = r.region.Block.ImageData
			}
			chunks = append(chunks, c.chunker.ChunkImage(docID, r.region.Page, i, r.desc, imageData, meta))
		default:
			chunks = append(chunks, c.chunker.ChunkText(docID, r.region.Page, i, r.text, meta)...)
		}
	}
	return chunks
}

// embedAll embeds chunk contents in batches, fusing visual embeddings into
// composite chunks when an image embedder is configured.
func (c *Coordinator) embedAll(ctx context.Context, chunks []document.Chunk) ([]vectorindex.Entry, error) {
	vectors := make([][]float32, len(chunks))

	for start := 0; start < len(chunks); start += c.cfg.EmbedBatchSize {
		end := start + c.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Content)
		}

		var batch [][]float32
		err := c.retry(ctx, func() error {
			var embedErr error
			batch, embedErr = c.embedder.Embed(ctx, texts)
			return embedErr
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: embedding batch at %d: %w", start, err)
		}
		copy(vectors[start:], batch)
	}

	if c.imageEmbedder != nil {
		if err := c.fuseComposites(ctx, chunks, vectors); err != nil {
			return nil, err
		}
	}

	entries := make([]vectorindex.Entry, len(chunks))
	for i, ch := range chunks {
		entries[i] = vectorindex.Entry{Chunk: ch, Vector: vectors[i]}
	}
	return entries, nil
}

// fuseComposites replaces composite chunk vectors with the weighted fusion of
// their description and visual embeddings.
func (c *Coordinator) fuseComposites(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error {
	var idx []int
	var images [][]byte
	for i, ch := range chunks {
		if ch.Type == document.ChunkComposite && len(ch.ImageData) > 0 {
			idx = append(idx, i)
			images = append(images, ch.ImageData)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	var visual [][]float32
	err := c.retry(ctx, func() error {
		var embedErr error
		visual, embedErr = c.imageEmbedder.EmbedImages(ctx, images)
		return embedErr
	})
	if err != nil {
		// Visual embedding is an enhancement; fall back to text-only vectors.
		c.log.WarnContext(ctx, "visual embedding unavailable, using description vectors",
			slog.Int("chunks", len(idx)), slog.String("error", err.Error()))
		return nil
	}

	for j, i := range idx {
		fused, err := embedder.Fuse(vectors[i], visual[j], c.cfg.TextWeight)
		if err != nil {
			return fmt.Errorf("pipeline: fusing chunk %s: %w", chunks[i].ID, err)
		}
		vectors[i] = fused
	}
	return nil
}

// checkpoint raises the job's progress (never lowers it), persists the job,
// and notifies listeners.
func (c *Coordinator) checkpoint(ctx context.Context, job *store.Job, progress int, step string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if progress > job.Progress {
		job.Progress = progress
	}
	job.Step = step
	if err := c.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("pipeline: checkpoint %s: %w", step, err)
	}
	c.notifier.Notify(ctx, Event{
		DocumentID: job.DocumentID,
		Status:     string(job.Status),
		Progress:   job.Progress,
		Step:       step,
	})
	return nil
}

// fail rolls back any partial index state and marks the job failed. Rollback
// and bookkeeping run on a fresh context so cancellation of the ingestion
// context cannot strand half-indexed documents.
func (c *Coordinator) fail(ctx context.Context, docID string, job *store.Job, cause error) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := c.index.DeleteDocument(cleanupCtx, docID); err != nil {
		c.log.ErrorContext(cleanupCtx, "rollback failed",
			slog.String("document_id", docID), slog.String("error", err.Error()))
	}

	job.Status = store.StatusFailed
	job.Error = cause.Error()
	job.TextChunks, job.ImageChunks, job.TableChunks = 0, 0, 0
	if err := c.jobs.Update(cleanupCtx, job); err != nil {
		c.log.ErrorContext(cleanupCtx, "failed to persist job failure",
			slog.String("document_id", docID), slog.String("error", err.Error()))
	}
	c.notifier.Notify(cleanupCtx, Event{
		DocumentID: docID,
		Status:     string(store.StatusFailed),
		Progress:   job.Progress,
		Step:       job.Step,
		Err:        cause.Error(),
	})
}

// retry runs fn up to MaxRetries times with exponential backoff, stopping
// early on context cancellation.
func (c *Coordinator) retry(ctx context.Context, fn func() error) error {
	backoff := c.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}
