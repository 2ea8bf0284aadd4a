package chunker

import (
	"strings"
	"testing"

	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/vision"
)

func TestChunkText_EmptyProducesNothing(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	if got := c.ChunkText("doc-1", 1, 0, "   \n ", nil); got != nil {
		t.Errorf("want no chunks for blank input, got %d", len(got))
	}
}

func TestChunkText_SingleSmallChunk(t *testing.T) {
	t.Parallel()
	c := New(Config{WindowSize: 100, Overlap: 10})
	got := c.ChunkText("doc-1", 1, 0, "A short sentence. Another one.", nil)
	if len(got) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(got))
	}
	ch := got[0]
	if ch.Type != document.ChunkText || ch.Page != 1 || ch.DocumentID != "doc-1" {
		t.Errorf("chunk fields = %+v", ch)
	}
	if ch.TokenCount == 0 {
		t.Error("token count must be set")
	}
	if ch.Metadata["chunk_type"] != "text" || ch.Metadata["page"] != "1" {
		t.Errorf("metadata = %v", ch.Metadata)
	}
}

func TestChunkText_WindowsWithOverlap(t *testing.T) {
	t.Parallel()
	// 40 sentences of ~10 tokens each; window 50 tokens → several chunks.
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This sentence is about forty characters ok. ")
	}
	c := New(Config{WindowSize: 50, Overlap: 15})
	got := c.ChunkText("doc-1", 1, 0, b.String(), nil)
	if len(got) < 5 {
		t.Fatalf("want several chunks, got %d", len(got))
	}
	for i, ch := range got {
		if ch.TokenCount > 50+15 {
			t.Errorf("chunk %d exceeds window+slack: %d tokens", i, ch.TokenCount)
		}
	}
	// Overlap: consecutive chunks share trailing/leading content.
	if !strings.Contains(got[1].Content, "This sentence") {
		t.Errorf("second chunk lost expected content: %q", got[1].Content)
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	text := "Pumps require monthly inspection. Seals wear out. Replace gaskets annually."
	a := c.ChunkText("doc-1", 2, 0, text, nil)
	b := c.ChunkText("doc-1", 2, 0, text, nil)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("chunk %d: IDs differ across runs", i)
		}
	}
}

func TestChunkText_NeverSplitsMidRune(t *testing.T) {
	t.Parallel()
	// One unbroken multi-byte run far larger than the window.
	run := strings.Repeat("ü", 3000)
	c := New(Config{WindowSize: 100, Overlap: 10})
	got := c.ChunkText("doc-1", 1, 0, run, nil)
	if len(got) < 2 {
		t.Fatalf("oversized run should split, got %d chunks", len(got))
	}
	for i, ch := range got {
		if !strings.HasPrefix(ch.Content, "ü") || !strings.HasSuffix(ch.Content, "ü") {
			t.Errorf("chunk %d split mid-rune: %q...", i, ch.Content[:4])
		}
	}
}

func TestChunkTable_SmallStaysSingle(t *testing.T) {
	t.Parallel()
	table := &document.Table{
		Header: []string{"part", "qty", "price"},
		Rows:   [][]string{{"bolt", "4", "0.10"}, {"nut", "8", "0.05"}},
	}
	c := New(Config{WindowSize: 100})
	got := c.ChunkTable("doc-1", 2, 0, table, nil)
	if len(got) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(got))
	}
	if got[0].Type != document.ChunkTable {
		t.Errorf("type = %q", got[0].Type)
	}
	if !strings.HasPrefix(got[0].Content, "part | qty | price") {
		t.Errorf("content missing header: %q", got[0].Content)
	}
}

func TestChunkTable_LargeSplitsWithHeaderDuplicated(t *testing.T) {
	t.Parallel()
	table := &document.Table{Header: []string{"id", "description"}}
	for i := 0; i < 50; i++ {
		table.Rows = append(table.Rows, []string{
			"row", strings.Repeat("long descriptive text ", 10),
		})
	}
	c := New(Config{WindowSize: 120})
	got := c.ChunkTable("doc-1", 1, 0, table, nil)
	if len(got) < 2 {
		t.Fatalf("large table should split, got %d chunks", len(got))
	}
	for i, ch := range got {
		if !strings.HasPrefix(ch.Content, "id | description") {
			t.Errorf("chunk %d missing duplicated header: %q", i, ch.Content[:30])
		}
	}
	// All rows must survive the split.
	totalRows := 0
	for _, ch := range got {
		totalRows += strings.Count(ch.Content, "\n")
	}
	if totalRows != 50 {
		t.Errorf("want 50 data rows across chunks, got %d", totalRows)
	}
}

func TestChunkImage_SingleUnit(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	desc := vision.Description{
		Short: "A pump schematic.",
		Long:  "A pump schematic with labelled intake and discharge valves.",
		Terms: []string{"pump", "valves"},
	}
	got := c.ChunkImage("doc-1", 3, 0, desc, []byte{1, 2, 3}, nil)
	if got.Type != document.ChunkComposite {
		t.Errorf("described image with bytes should be composite, got %q", got.Type)
	}
	if !strings.Contains(got.Content, "Terms: pump, valves") {
		t.Errorf("content missing terms: %q", got.Content)
	}
	if len(got.ImageData) != 3 {
		t.Error("image data not carried on chunk")
	}
}

func TestChunkImage_PlaceholderStaysImageType(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	got := c.ChunkImage("doc-1", 3, 0, vision.Placeholder(), []byte{1}, nil)
	if got.Type != document.ChunkImage {
		t.Errorf("placeholder description should stay image type, got %q", got.Type)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	c := New(Config{WindowSize: 50, MaxTokens: 50})
	chunks := []document.Chunk{
		{Content: "valid chunk content", TokenCount: 5},
		{Content: "   ", TokenCount: 1},                                  // empty
		{Content: "valid chunk content", TokenCount: 5},                  // duplicate
		{Content: strings.Repeat("x", 400), TokenCount: 100},             // over cap
		{Content: "another distinct valid chunk content", TokenCount: 9}, // ok
	}
	kept, rejected := c.Validate(chunks)
	if len(kept) != 2 {
		t.Errorf("want 2 kept, got %d", len(kept))
	}
	if rejected != 3 {
		t.Errorf("want 3 rejected, got %d", rejected)
	}
}
