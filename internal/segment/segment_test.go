package segment

import (
	"testing"

	"github.com/54b3r/docrag-go/internal/document"
)

// makePage builds a page from pre-positioned blocks.
func makePage(blocks ...document.Block) *document.Page {
	return &document.Page{Number: 1, Blocks: blocks}
}

func textBlock(y0, y1 float64, lines ...string) document.Block {
	return document.Block{
		Kind:       document.RegionText,
		BBox:       document.BBox{X0: 0, Y0: y0, X1: 80, Y1: y1},
		Confidence: 0.95,
		Lines:      lines,
	}
}

func TestSegment_ReadingOrder(t *testing.T) {
	t.Parallel()
	page := makePage(
		textBlock(10, 12, "bottom paragraph"),
		document.Block{Kind: document.RegionImage, BBox: document.BBox{X0: 0, Y0: 5, X1: 40, Y1: 6}, Confidence: 0.9},
		textBlock(0, 2, "top paragraph"),
	)
	got := New(0).Segment(page)
	if len(got) != 3 {
		t.Fatalf("want 3 regions, got %d", len(got))
	}
	wantTypes := []document.RegionType{document.RegionText, document.RegionImage, document.RegionText}
	wantY := []float64{0, 5, 10}
	for i := range got {
		if got[i].Type != wantTypes[i] || got[i].BBox.Y0 != wantY[i] {
			t.Errorf("region %d: type=%q y0=%f, want type=%q y0=%f",
				i, got[i].Type, got[i].BBox.Y0, wantTypes[i], wantY[i])
		}
	}
}

func TestSegment_TiePrecedenceWithinBand(t *testing.T) {
	t.Parallel()
	// Same band, same X: table must come before image, image before text.
	page := makePage(
		textBlock(0, 1, "text"),
		document.Block{Kind: document.RegionImage, BBox: document.BBox{X0: 0, Y0: 1, X1: 40, Y1: 2}, Confidence: 0.9},
		document.Block{Kind: document.RegionTable, BBox: document.BBox{X0: 0, Y0: 2, X1: 40, Y1: 3}, Confidence: 0.9, Lines: []string{"a|b|c", "1|2|3"}},
	)
	got := New(0).Segment(page)
	want := []document.RegionType{document.RegionTable, document.RegionImage, document.RegionText}
	for i := range want {
		if got[i].Type != want[i] {
			t.Fatalf("order = %v, want %v", regionTypes(got), want)
		}
	}
}

func TestSegment_ClipsTextOverlappingTable(t *testing.T) {
	t.Parallel()
	// Text spans lines 0–5; a table claims lines 2–4. The surviving text is
	// lines 0,1,4 (claim is [2,4) in Y).
	page := makePage(
		textBlock(0, 5, "line0", "line1", "line2", "line3", "line4"),
		document.Block{Kind: document.RegionTable, BBox: document.BBox{X0: 0, Y0: 2, X1: 80, Y1: 4}, Confidence: 0.9, Lines: []string{"a|b|c", "1|2|3"}},
	)
	got := New(0).Segment(page)
	if len(got) != 2 {
		t.Fatalf("want 2 regions, got %d", len(got))
	}
	var text *document.Region
	for i := range got {
		if got[i].Type == document.RegionText {
			text = &got[i]
		}
	}
	if text == nil {
		t.Fatal("clipped text region missing")
	}
	if len(text.Block.Lines) != 3 {
		t.Fatalf("want 3 surviving lines, got %v", text.Block.Lines)
	}
	if text.Block.Lines[0] != "line0" || text.Block.Lines[2] != "line4" {
		t.Errorf("unexpected surviving lines: %v", text.Block.Lines)
	}
}

func TestSegment_DropsFullyClaimedText(t *testing.T) {
	t.Parallel()
	page := makePage(
		textBlock(2, 3, "swallowed"),
		document.Block{Kind: document.RegionImage, BBox: document.BBox{X0: 0, Y0: 0, X1: 80, Y1: 10}, Confidence: 0.9},
	)
	got := New(0).Segment(page)
	if len(got) != 1 || got[0].Type != document.RegionImage {
		t.Fatalf("fully claimed text must be dropped, got %v", regionTypes(got))
	}
}

func TestSegment_LowConfidenceDowngradesToText(t *testing.T) {
	t.Parallel()
	page := makePage(
		document.Block{Kind: document.RegionTable, BBox: document.BBox{X0: 0, Y0: 0, X1: 40, Y1: 2}, Confidence: 0.3, Lines: []string{"maybe|a|table", "or | not | really"}},
	)
	got := New(0).Segment(page)
	if len(got) != 1 {
		t.Fatalf("want 1 region, got %d", len(got))
	}
	if got[0].Type != document.RegionText {
		t.Errorf("low-confidence table should degrade to text, got %q", got[0].Type)
	}
}

func TestSegment_LowConfidenceImageStaysImage(t *testing.T) {
	t.Parallel()
	// An image whose bytes could not be resolved has low confidence but no
	// text lines to fall back to; downgrading it would lose the region.
	page := makePage(
		document.Block{
			Kind:       document.RegionImage,
			BBox:       document.BBox{X0: 0, Y0: 0, X1: 80, Y1: 1},
			Confidence: 0.5,
			ImageRef:   "img/pump.png",
			AltText:    "Pump cutaway",
		},
	)
	got := New(0).Segment(page)
	if len(got) != 1 {
		t.Fatalf("want 1 region, got %d", len(got))
	}
	if got[0].Type != document.RegionImage {
		t.Errorf("unresolved image should stay an image region, got %q", got[0].Type)
	}
}

func regionTypes(regions []document.Region) []document.RegionType {
	out := make([]document.RegionType, len(regions))
	for i, r := range regions {
		out[i] = r.Type
	}
	return out
}
