// Package commands defines all Cobra CLI commands for the docrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/docrag-go/internal/audit"
	"github.com/54b3r/docrag-go/internal/config"
	"github.com/54b3r/docrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docrag",
		Short: "docrag — multimodal document question answering over your own files",
		Long: `docrag indexes page-oriented documents — prose, tables, and figures — into
a Qdrant vector store and answers natural language questions about them with
numbered citations back to the source pages.

Documents are processed asynchronously: text, table, and image regions are
extracted, described, chunked, embedded, and indexed into per-modality
collections. Queries retrieve across all collections, rerank the candidates,
and generate a grounded answer.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.docrag/config.yaml).
See 'docrag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docrag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewQueryCmd(),
		NewVersionCmd(),
	)

	return root
}
