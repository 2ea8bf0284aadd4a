// Package chunker splits extracted content into token-bounded, overlapping
// chunks suitable for embedding. Text is windowed along sentence boundaries,
// tables split by row groups with the header duplicated into every chunk,
// and image descriptions stay single chunks. Chunk IDs are deterministic so
// reprocessing unchanged content is idempotent.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/54b3r/docrag-go/internal/budget"
	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/vision"
)

// Config holds the chunking parameters.
type Config struct {
	// WindowSize is the target token count per chunk. Defaults to
	// budget.DefaultChunkTokens if zero.
	WindowSize int

	// Overlap is the token overlap between consecutive text chunks.
	// Defaults to budget.DefaultChunkOverlap if zero.
	Overlap int

	// MaxTokens is the hard per-chunk cap aligned with the embedding
	// model's input budget. Defaults to budget.DefaultEmbedTokenCap.
	MaxTokens int
}

// Chunker produces chunks from extracted region content.
type Chunker struct {
	cfg Config
}

// New constructs a Chunker, applying defaults for zero config values.
func New(cfg Config) *Chunker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = budget.DefaultChunkTokens
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = budget.DefaultChunkOverlap
	}
	if cfg.Overlap >= cfg.WindowSize {
		cfg.Overlap = cfg.WindowSize / 4
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = budget.DefaultEmbedTokenCap
	}
	if cfg.MaxTokens < cfg.WindowSize {
		cfg.MaxTokens = cfg.WindowSize
	}
	return &Chunker{cfg: cfg}
}

// sentencePattern splits prose into sentence-ish units.
var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n]+|[^.!?\n]+$)`)

// ChunkText splits cleaned text into overlapping token windows aligned to
// sentence boundaries. Empty input produces no chunks. baseOffset
// disambiguates multiple regions on the same page.
func (c *Chunker) ChunkText(docID string, page, baseOffset int, text string, meta map[string]string) []document.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)
	sentences = c.splitOversized(sentences)

	var chunks []document.Chunk
	i := 0
	for i < len(sentences) {
		end := i
		tokens := 0
		for end < len(sentences) {
			next := budget.Estimate(sentences[end])
			if end > i && tokens+next > c.cfg.WindowSize {
				break
			}
			tokens += next
			end++
		}

		content := strings.TrimSpace(strings.Join(sentences[i:end], " "))
		chunks = append(chunks, c.newChunk(docID, page, baseOffset+len(chunks), content, document.ChunkText, meta))

		if end == len(sentences) {
			break
		}
		// Step back enough sentences to cover the overlap budget, always
		// advancing past the previous window start.
		next := backOff(sentences, end, c.cfg.Overlap)
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return chunks
}

// ChunkTable renders a table into one or more chunks. Small tables stay a
// single chunk; larger tables split by row groups with the header row
// duplicated into every chunk so each remains independently interpretable.
func (c *Chunker) ChunkTable(docID string, page, baseOffset int, table *document.Table, meta map[string]string) []document.Chunk {
	header := renderRow(table.Header)
	whole := renderTable(header, table.Rows)
	if budget.Estimate(whole) <= c.cfg.WindowSize {
		return []document.Chunk{c.newChunk(docID, page, baseOffset, whole, document.ChunkTable, meta)}
	}

	headerTokens := budget.Estimate(header)
	var chunks []document.Chunk
	var group [][]string
	groupTokens := headerTokens
	flush := func() {
		if len(group) == 0 {
			return
		}
		content := renderTable(header, group)
		chunks = append(chunks, c.newChunk(docID, page, baseOffset+len(chunks), content, document.ChunkTable, meta))
		group = nil
		groupTokens = headerTokens
	}
	for _, row := range table.Rows {
		rowTokens := budget.Estimate(renderRow(row))
		if len(group) > 0 && groupTokens+rowTokens > c.cfg.WindowSize {
			flush()
		}
		group = append(group, row)
		groupTokens += rowTokens
	}
	flush()
	return chunks
}

// ChunkImage produces the single chunk for an image description. The chunk
// type is composite when a real description exists (text plus visual signal
// both contribute to the embedding) and image when only the placeholder is
// available.
func (c *Chunker) ChunkImage(docID string, page, baseOffset int, desc vision.Description, imageData []byte, meta map[string]string) document.Chunk {
	var b strings.Builder
	b.WriteString(desc.Long)
	if len(desc.Terms) > 0 {
		b.WriteString("\nTerms: ")
		b.WriteString(strings.Join(desc.Terms, ", "))
	}
	content := b.String()

	chunkType := document.ChunkImage
	if len(imageData) > 0 && !strings.Contains(desc.Long, vision.PlaceholderText) {
		chunkType = document.ChunkComposite
	}

	chunk := c.newChunk(docID, page, baseOffset, content, chunkType, meta)
	chunk.ImageData = imageData
	return chunk
}

// Validate enforces the chunk invariants: no empty chunks, no byte-identical
// duplicates within the given set, and no chunk over the embedding token cap.
// Violating chunks are rejected individually; the survivors are returned
// along with the number rejected.
func (c *Chunker) Validate(chunks []document.Chunk) (kept []document.Chunk, rejected int) {
	seen := make(map[string]bool)
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) == "" {
			rejected++
			continue
		}
		if ch.TokenCount > c.cfg.MaxTokens {
			rejected++
			continue
		}
		hash := document.ContentHash(ch.Content)
		if seen[hash] {
			rejected++
			continue
		}
		seen[hash] = true
		kept = append(kept, ch)
	}
	return kept, rejected
}

// newChunk assembles a chunk with its deterministic ID and token count.
func (c *Chunker) newChunk(docID string, page, offset int, content string, t document.ChunkType, meta map[string]string) document.Chunk {
	m := make(map[string]string, len(meta)+2)
	for k, v := range meta {
		m[k] = v
	}
	m["chunk_type"] = string(t)
	m["page"] = fmt.Sprintf("%d", page)
	return document.Chunk{
		ID:         document.ChunkID(docID, page, offset, content),
		DocumentID: docID,
		Content:    content,
		Type:       t,
		TokenCount: budget.Estimate(content),
		Page:       page,
		Metadata:   m,
	}
}

// splitSentences returns trimmed sentence units of text.
func splitSentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

// splitOversized cuts sentences that alone exceed the window into
// word-boundary pieces, falling back to rune boundaries for unbroken runs so
// a chunk never splits mid-token.
func (c *Chunker) splitOversized(sentences []string) []string {
	maxChars := budget.Chars(c.cfg.WindowSize)
	var out []string
	for _, s := range sentences {
		if len(s) <= maxChars {
			out = append(out, s)
			continue
		}
		out = append(out, splitByWords(s, maxChars)...)
	}
	return out
}

// splitByWords splits s into pieces of at most maxChars, preferring word
// boundaries and never cutting inside a multi-byte rune.
func splitByWords(s string, maxChars int) []string {
	var pieces []string
	words := strings.Fields(s)
	var b strings.Builder
	for _, w := range words {
		if b.Len() > 0 && b.Len()+1+len(w) > maxChars {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		if len(w) > maxChars {
			// A single unbroken run longer than the window: cut on rune
			// boundaries.
			for _, piece := range splitRunes(w, maxChars) {
				if b.Len() > 0 {
					pieces = append(pieces, b.String())
					b.Reset()
				}
				pieces = append(pieces, piece)
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// splitRunes cuts s into maxChars-sized pieces on rune boundaries.
func splitRunes(s string, maxChars int) []string {
	var pieces []string
	runes := []rune(s)
	for start := 0; start < len(runes); {
		end := start
		size := 0
		for end < len(runes) {
			n := len(string(runes[end]))
			if size+n > maxChars && size > 0 {
				break
			}
			size += n
			end++
		}
		pieces = append(pieces, string(runes[start:end]))
		start = end
	}
	return pieces
}

// backOff returns the sentence index to restart from so that roughly
// overlapTokens of trailing content is repeated. It always advances by at
// least one sentence to guarantee progress.
func backOff(sentences []string, end, overlapTokens int) int {
	i := end
	tokens := 0
	for i > 0 && tokens < overlapTokens {
		tokens += budget.Estimate(sentences[i-1])
		i--
	}
	if i >= end {
		i = end - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// renderRow joins cells with a pipe separator.
func renderRow(cells []string) string {
	return strings.Join(cells, " | ")
}

// renderTable renders a header line plus data rows.
func renderTable(header string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(renderRow(row))
	}
	return b.String()
}
