// Package vision defines the vision-description capability used to turn
// document images into searchable text. Providers are queried through an
// ordered fallback chain so a single model outage never fails a document;
// the chain terminates in a static placeholder.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/54b3r/docrag-go/internal/logging"
)

// Description is the natural-language output of a vision model for one image.
type Description struct {
	// Short is a one-sentence summary suitable for previews.
	Short string
	// Long is the full description used as chunk content.
	Long string
	// Terms are salient terms extracted from the description.
	Terms []string
}

// PlaceholderText is the terminal fallback description used when every
// configured vision provider fails.
const PlaceholderText = "description unavailable"

// Describer produces a natural-language description of an image.
// Implementations must be safe to call from multiple goroutines.
type Describer interface {
	// Describe returns a description of the given image bytes.
	Describe(ctx context.Context, image []byte) (Description, error)
}

// Chain tries each Describer in order and returns the first success.
// When all providers fail it returns a placeholder description and no error,
// so image failures degrade instead of aborting the document.
type Chain struct {
	// providers are tried in order.
	providers []Describer
}

// NewChain constructs a fallback chain over the given providers.
func NewChain(providers ...Describer) *Chain {
	return &Chain{providers: providers}
}

// Describe walks the provider chain. Provider errors are logged and absorbed;
// the placeholder is returned only when the whole chain is exhausted.
func (c *Chain) Describe(ctx context.Context, image []byte) (Description, error) {
	log := logging.FromContext(ctx)
	for i, p := range c.providers {
		desc, err := p.Describe(ctx, image)
		if err == nil {
			return desc, nil
		}
		if ctx.Err() != nil {
			return Description{}, fmt.Errorf("vision: %w", ctx.Err())
		}
		log.Warn("vision: provider failed, trying next",
			slog.Int("provider", i),
			slog.String("error", err.Error()),
		)
	}
	return Placeholder(), nil
}

// Placeholder returns the canned description used when no provider succeeds.
func Placeholder() Description {
	return Description{Short: PlaceholderText, Long: PlaceholderText}
}

// wordPattern matches candidate salient-term words.
var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_-]{3,}`)

// stopwords excluded from salient-term extraction.
var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"shows": true, "showing": true, "image": true, "picture": true,
	"diagram": true, "there": true, "which": true, "between": true,
	"their": true, "about": true, "into": true, "reads": true,
	"contains": true, "appears": true, "depicts": true,
}

// salientTerms extracts up to max frequent non-stopword terms from text,
// ordered by descending frequency then alphabetically for determinism.
func salientTerms(text string, max int) []string {
	freq := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if !stopwords[w] {
			freq[w]++
		}
	}
	terms := make([]string, 0, len(freq))
	for w := range freq {
		terms = append(terms, w)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}

// firstSentence returns the text up to and including the first sentence
// terminator, or the whole text when none is found.
func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(text[:i+1])
		}
	}
	return strings.TrimSpace(text)
}
