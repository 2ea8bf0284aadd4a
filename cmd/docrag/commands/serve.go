package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/cache"
	"github.com/54b3r/docrag-go/internal/embedder"
	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/pipeline"
	"github.com/54b3r/docrag-go/internal/server"
	"github.com/54b3r/docrag-go/internal/tracing"
)

// NewServeCmd constructs the `docrag serve` command, which starts the HTTP
// server exposing document ingestion and question answering.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docrag HTTP server",
		Long: `Start the docrag HTTP server on localhost.

The server accepts document submissions (processed asynchronously by a
worker pool), serves job status polls, and answers questions over the
indexed corpus with citations.

Examples:
  docrag serve
  docrag serve --port 9090 --workers 4
  MODEL_PROVIDER=azure docrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			if err := embedder.ValidateEnv(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			baseEmb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}
			imageEmb, err := embedder.NewImageEmbedderFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise image embedder: %w", err)
			}
			if imageEmb == nil {
				log.Info("image embedding disabled", slog.String("reason", "IMAGE_EMBEDDING_ENDPOINT not set"))
			}

			index, err := buildIndex(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer index.Close()
			log.Info("qdrant index ready",
				slog.String("host", envOrDefault("QDRANT_HOST", "localhost")),
				slog.Int("port", envInt("QDRANT_PORT", 6334)),
			)

			jobs, jobsPath, err := buildJobStore()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = jobs.Close() }()
			log.Info("job store opened", slog.String("path", jobsPath))

			// Shared embedding-vector cache: query-time lookups and document
			// re-ingestion both consult it before calling the backend.
			vectors := cache.NewTTL(0)
			vectors.StartJanitor(ctx, 0)

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
				return fmt.Errorf("serve: failed to build pipeline: %w", err)
			}

			pool := pipeline.NewWorkers(coord, jobs, log, workers)
			pool.Start(ctx, workers)
			defer pool.Wait()

			eng, err := buildEngine(ctx, index, baseEmb, vectors, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(index.Client()),
				server.NewHTTPPinger(envOrDefault("OLLAMA_HOST", "http://localhost:11434"), "ollama"),
			}
			if endpoint := os.Getenv("RERANK_ENDPOINT"); endpoint != "" {
				pingers = append(pingers, server.NewHTTPPinger(endpoint, "rerank"))
			}
			if endpoint := os.Getenv("IMAGE_EMBEDDING_ENDPOINT"); endpoint != "" {
				pingers = append(pingers, server.NewHTTPPinger(endpoint, "image-embedding"))
			}

			srv, err := server.New(server.Deps{
				Engine:   eng,
				Ingestor: pool,
				Jobs:     jobs,
				Index:    index,
			}, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("DOCRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().IntVarP(&workers, "workers", "w", envInt("PIPELINE_WORKERS", pipeline.DefaultWorkers), "Concurrent ingestion workers")

	return cmd
}
