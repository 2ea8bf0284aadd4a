// Package extract turns segmented regions into raw content: cleaned text,
// structurally recognised tables, and described images. Region-level failures
// are designed to be absorbed by the caller — a bad region never fails the
// whole document.
package extract

import (
	"strings"
	"unicode"

	"github.com/54b3r/docrag-go/internal/document"
)

// TextExtractor returns the cleaned plain text of a text region.
type TextExtractor struct{}

// Extract joins the region's lines and cleans the result. An empty result is
// not an error: it yields a zero-length chunk candidate that the chunker
// discards.
func (TextExtractor) Extract(region *document.Region) string {
	return CleanText(strings.Join(region.Block.Lines, "\n"))
}

// CleanText strips control characters (keeping newline and tab), collapses
// runs of blank lines into one, and trims leading/trailing whitespace.
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}

	lines := strings.Split(b.String(), "\n")
	var out []string
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
