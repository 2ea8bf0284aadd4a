// Command docrag is the entry point for the multimodal document RAG service.
// It provides a CLI interface (via Cobra) for ingesting documents, asking
// questions, and running the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/docrag-go/cmd/docrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
