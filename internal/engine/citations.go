package engine

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Citation links an answer claim back to the indexed chunk it came from.
type Citation struct {
	// Index is the citation number as it appears in the answer text.
	Index int `json:"index"`
	// SourceDocument names the originating document.
	SourceDocument string `json:"source_document"`
	// Page is the 1-based page the cited chunk came from.
	Page int `json:"page"`
	// ContentPreview is the first part of the cited chunk's content.
	ContentPreview string `json:"content_preview"`
	// RelevanceScore is the reranked relevance of the cited chunk.
	RelevanceScore float64 `json:"relevance_score"`
}

// previewRunes caps the citation content preview length.
const previewRunes = 200

// sourceMarker matches [Source N] tags in generated answers.
var sourceMarker = regexp.MustCompile(`\[Source (\d+)\]`)

// ExtractCitations resolves the [Source N] markers in an answer against the
// assembled sources. Markers pointing past the source list are hallucinated
// and get stripped from the answer. Citations come back in source order, one
// per cited source regardless of how often it is cited.
func ExtractCitations(answer string, sources []Source) (string, []Citation) {
	cited := make(map[int]bool)

	cleaned := sourceMarker.ReplaceAllStringFunc(answer, func(marker string) string {
		n, err := strconv.Atoi(sourceMarker.FindStringSubmatch(marker)[1])
		if err != nil || n < 1 || n > len(sources) {
			return ""
		}
		cited[n] = true
		return marker
	})
	cleaned = strings.TrimSpace(collapseSpaces(cleaned))

	var citations []Citation
	for _, s := range sources {
		if !cited[s.Index] {
			continue
		}
		name := s.Chunk.Metadata["document_name"]
		if name == "" {
			name = s.Chunk.DocumentID
		}
		citations = append(citations, Citation{
			Index:          s.Index,
			SourceDocument: name,
			Page:           s.Chunk.Page,
			ContentPreview: preview(s.Chunk.Content),
			RelevanceScore: s.Score,
		})
	}
	return cleaned, citations
}

// preview returns the first previewRunes runes of s, with an ellipsis when
// truncated.
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewRunes]) + "..."
}

// multiSpace matches runs of spaces and tabs left behind by stripped markers.
var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// collapseSpaces squeezes horizontal whitespace runs to single spaces.
func collapseSpaces(s string) string {
	return multiSpace.ReplaceAllString(s, " ")
}
