package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/cache"
	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/embedder"
	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/pipeline"
)

// NewIngestCmd constructs the `docrag ingest` command, which processes local
// files through the full ingestion pipeline and indexes them into Qdrant.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Ingest documents into the vector index",
		Long: `Process one or more local documents through the ingestion pipeline:
segmentation, per-modality extraction, chunking, embedding, and indexing.

Input files are page-oriented text: pages separated by form-feed characters,
tables as pipe- or tab-delimited rows, and figures as markdown image
references resolved relative to the file.

Document IDs are derived from file name and content, so re-ingesting an
unchanged file replaces its chunks rather than duplicating them.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  docrag ingest manuals/pump-manual.txt
  docrag ingest docs/*.txt
  EMBEDDING_PROVIDER=openai docrag ingest report.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.ValidateEnv(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			baseEmb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			imageEmb, err := embedder.NewImageEmbedderFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise image embedder: %w", err)
			}

			index, err := buildIndex(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer index.Close()

			jobs, _, err := buildJobStore()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = jobs.Close() }()

			// Content-hash embedding cache: unchanged chunks across the files
			// of one run skip the backend entirely.
			vectors := cache.NewTTL(0)
			docEmb := embedder.NewCachedEmbedder(
				embedder.NewInstructedEmbedder(baseEmb, embedder.DocumentPrefix),
				vectors, embedNamespace("document"))
			coord, err := pipeline.NewCoordinator(
				buildDescriber(),
				docEmb,
				imageEmb,
				index,
				jobs,
				pipeline.NewLogNotifier(log),
				log,
				buildPipelineConfig(),
			)
			if err != nil {
				return fmt.Errorf("ingest: failed to build pipeline: %w", err)
			}

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: read %s: %w", path, err)
				}

				name := filepath.Base(path)
				id := cache.Fingerprint(name, string(data))

				doc, err := document.Load(ctx, id, name, data, &document.FSBlobStore{Root: filepath.Dir(path)})
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}

				if err := jobs.Create(ctx, doc.ID, doc.Name); err != nil {
					return fmt.Errorf("ingest: %w", err)
				}

				log.Info("processing document",
					slog.String("document_id", doc.ID),
					slog.String("name", doc.Name),
					slog.Int("pages", len(doc.Pages)),
				)

				if err := coord.Process(ctx, doc); err != nil {
					return fmt.Errorf("ingest: %s: %w", name, err)
				}

				job, err := jobs.Get(ctx, doc.ID)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				log.Info("document indexed",
					slog.String("document_id", doc.ID),
					slog.Int("text_chunks", job.TextChunks),
					slog.Int("image_chunks", job.ImageChunks),
					slog.Int("table_chunks", job.TableChunks),
				)
			}

			log.Info("ingestion complete", slog.Int("documents", len(args)))
			return nil
		},
	}

	return cmd
}
