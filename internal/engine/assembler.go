package engine

import (
	"fmt"
	"strings"

	"github.com/54b3r/docrag-go/internal/budget"
	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/rerank"
)

// Source is a context block handed to the generator, tagged so the answer
// can cite it.
type Source struct {
	// Index is the 1-based citation number used in [Source N] tags.
	Index int
	// Chunk is the underlying chunk.
	Chunk document.Chunk
	// Score is the reranked relevance score.
	Score float64
}

// Assemble renders ranked candidates into a tagged context string within the
// token budget. Candidates are taken in rank order; when the budget runs out
// the lowest-ranked candidates are the ones dropped. A budgetTokens of 0
// uses the default context budget.
func Assemble(candidates []rerank.Candidate, budgetTokens int) (string, []Source) {
	if budgetTokens <= 0 {
		budgetTokens = budget.DefaultContextTokens
	}

	var b strings.Builder
	var sources []Source
	used := 0
	for _, c := range candidates {
		block := renderSource(len(sources)+1, c.Chunk)
		cost := budget.Estimate(block)
		if used+cost > budgetTokens {
			break
		}
		used += cost
		b.WriteString(block)
		sources = append(sources, Source{
			Index: len(sources) + 1,
			Chunk: c.Chunk,
			Score: c.Score,
		})
	}
	return b.String(), sources
}

// renderSource formats one chunk as a tagged context block.
func renderSource(index int, chunk document.Chunk) string {
	name := chunk.Metadata["document_name"]
	if name == "" {
		name = chunk.DocumentID
	}
	return fmt.Sprintf("[Source %d] (%s, page %d, %s)\n%s\n\n",
		index, name, chunk.Page, chunk.Type, chunk.Content)
}
