package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/embedder"
	"github.com/54b3r/docrag-go/internal/engine"
	"github.com/54b3r/docrag-go/internal/logging"
)

// NewQueryCmd constructs the `docrag query` command, which answers a single
// question over the indexed corpus and prints the answer with citations.
func NewQueryCmd() *cobra.Command {
	var topK int
	var documentIDs []string

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question over the indexed documents",
		Long: `Answer a natural language question using the indexed corpus.

Retrieval runs across the text, image, and table collections; candidates are
reranked and the answer is generated with numbered citations back to the
source pages.

Examples:
  docrag query "what torque do the casing bolts need?"
  docrag query --top-k 10 "summarise the maintenance schedule"
  docrag query --document doc-42 "what does figure 3 show?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			index, err := buildIndex(ctx)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer index.Close()

			if err := embedder.ValidateEnv(log); err != nil {
				return fmt.Errorf("query: %w", err)
			}
			baseEmb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("query: failed to initialise embedder: %w", err)
			}

			eng, err := buildEngine(ctx, index, baseEmb, nil, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			ans, err := eng.Answer(ctx, args[0], engine.Options{
				TopK:        topK,
				DocumentIDs: documentIDs,
			})
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			fmt.Println(ans.Text)
			if len(ans.Citations) > 0 {
				fmt.Println("\nSources:")
				for _, c := range ans.Citations {
					fmt.Printf("  [%d] %s, page %d (score %.2f)\n",
						c.Index, c.SourceDocument, c.Page, c.RelevanceScore)
				}
			}
			fmt.Printf("\nConfidence: %.2f\n", ans.Confidence)

			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Retrieval candidate count (0 uses the default)")
	cmd.Flags().StringArrayVarP(&documentIDs, "document", "d", nil, "Restrict retrieval to a document ID (repeatable)")

	return cmd
}
