package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/54b3r/docrag-go/internal/document"
	"github.com/54b3r/docrag-go/internal/vision"
)

func tableRegion(lines ...string) *document.Region {
	return &document.Region{
		Type:  document.RegionTable,
		Page:  1,
		Block: &document.Block{Kind: document.RegionTable, Lines: lines},
	}
}

func TestTableExtractor_PipeDelimited(t *testing.T) {
	t.Parallel()
	table, strategy, err := NewTableExtractor().Extract(tableRegion(
		"| part | qty | price |",
		"|------|-----|-------|",
		"| bolt | 4   | 0.10  |",
		"| nut  | 8   | 0.05  |",
	))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strategy != "pipe" {
		t.Errorf("strategy = %q, want pipe", strategy)
	}
	if len(table.Header) != 3 || table.Header[0] != "part" {
		t.Errorf("header = %v", table.Header)
	}
	if len(table.Rows) != 2 || table.Rows[1][2] != "0.05" {
		t.Errorf("rows = %v", table.Rows)
	}
}

func TestTableExtractor_TabDelimited(t *testing.T) {
	t.Parallel()
	table, strategy, err := NewTableExtractor().Extract(tableRegion(
		"name\tcount",
		"alpha\t1",
		"beta\t2",
	))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strategy != "tab" {
		t.Errorf("strategy = %q, want tab", strategy)
	}
	if len(table.Rows) != 2 || table.Rows[0][0] != "alpha" {
		t.Errorf("rows = %v", table.Rows)
	}
}

func TestTableExtractor_WhitespaceAligned(t *testing.T) {
	t.Parallel()
	table, strategy, err := NewTableExtractor().Extract(tableRegion(
		"name    count   owner",
		"alpha   1       ops",
		"beta    2       dev",
	))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strategy != "aligned" {
		t.Errorf("strategy = %q, want aligned", strategy)
	}
	if len(table.Header) != 3 || len(table.Rows) != 2 {
		t.Errorf("header=%v rows=%v", table.Header, table.Rows)
	}
}

func TestTableExtractor_TooSmall(t *testing.T) {
	t.Parallel()
	_, _, err := NewTableExtractor().Extract(tableRegion(
		"| one | two |",
		"| a   | b   |",
	))
	if !errors.Is(err, ErrTableTooSmall) {
		t.Errorf("want ErrTableTooSmall, got %v", err)
	}
}

func TestTableExtractor_NoStrategyMatches(t *testing.T) {
	t.Parallel()
	_, _, err := NewTableExtractor().Extract(tableRegion("just a sentence"))
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("want ErrNoTable, got %v", err)
	}
}

func TestTableExtractor_RaggedRowsPadded(t *testing.T) {
	t.Parallel()
	table, _, err := NewTableExtractor().Extract(tableRegion(
		"| a | b | c |",
		"| 1 | 2 |",
		"| 3 | 4 | 5 | 6 |",
	))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i, row := range table.Rows {
		if len(row) != 3 {
			t.Errorf("row %d width = %d, want 3", i, len(row))
		}
	}
	if table.Rows[0][2] != "" {
		t.Errorf("short row should pad with empty cell, got %q", table.Rows[0][2])
	}
}

func TestScoreTable_PrefersConsistentComplete(t *testing.T) {
	t.Parallel()
	good := &document.Table{
		Header: []string{"name", "qty"},
		Rows:   [][]string{{"bolt", "4"}, {"nut", "8"}},
	}
	bad := &document.Table{
		Header: []string{"1", "1"},
		Rows:   [][]string{{"", ""}, {"x", "7"}},
	}
	if scoreTable(good) <= scoreTable(bad) {
		t.Errorf("good table scored %f, bad %f", scoreTable(good), scoreTable(bad))
	}
}

func TestIsNumeric(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want bool
	}{
		{"42", true}, {"3.14", true}, {"1,000", true}, {"85%", true},
		{"bolt", false}, {"", false}, {"4 units", false},
	}
	for _, tc := range cases {
		if got := isNumeric(tc.in); got != tc.want {
			t.Errorf("isNumeric(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestImageExtractor_MissingBytesYieldsPlaceholder(t *testing.T) {
	t.Parallel()
	ex := NewImageExtractor(vision.NewChain())
	region := &document.Region{
		Type:  document.RegionImage,
		Block: &document.Block{Kind: document.RegionImage, AltText: "wiring diagram"},
	}
	desc, err := ex.Extract(context.Background(), region)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if desc.Short != "wiring diagram" {
		t.Errorf("Short = %q, want alt text", desc.Short)
	}
}
