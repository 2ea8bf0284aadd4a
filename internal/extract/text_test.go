package extract

import (
	"testing"

	"github.com/54b3r/docrag-go/internal/document"
)

func TestCleanText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  hello  \n", "hello"},
		{"keeps tabs and newlines", "a\tb\nc", "a\tb\nc"},
		{"strips control chars", "a\x00b\x07c\x1bd", "abcd"},
		{"collapses blank runs", "a\n\n\n\nb", "a\n\nb"},
		{"trailing space per line", "a   \nb\t\n", "a\nb"},
		{"empty input", "   \n\n  ", ""},
	}
	for _, tc := range cases {
		if got := CleanText(tc.in); got != tc.want {
			t.Errorf("%s: CleanText(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestTextExtractor_EmptyRegionIsNotAnError(t *testing.T) {
	t.Parallel()
	region := &document.Region{
		Type:  document.RegionText,
		Block: &document.Block{Kind: document.RegionText, Lines: []string{"   ", ""}},
	}
	if got := (TextExtractor{}).Extract(region); got != "" {
		t.Errorf("want empty string, got %q", got)
	}
}
