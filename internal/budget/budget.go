// Package budget provides token budget estimation for chunking and context
// assembly. Because the pipeline supports multiple embedding and generation
// backends with different tokenizers, it uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose and code). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultContextTokens is the default context-window budget for answer
	// generation. Conservative enough to fit within 8k-context models while
	// leaving room for the question and the output.
	DefaultContextTokens = 3000

	// DefaultChunkTokens is the default chunk window size for embedding.
	DefaultChunkTokens = 384

	// DefaultChunkOverlap is the default token overlap between consecutive
	// chunks.
	DefaultChunkOverlap = 50

	// DefaultEmbedTokenCap is the hard per-chunk cap aligned with common
	// embedding model input limits.
	DefaultEmbedTokenCap = 512
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// Chars returns the character budget corresponding to a token budget.
func Chars(tokens int) int {
	return tokens * charsPerToken
}
