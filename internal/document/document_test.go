package document

import (
	"strings"
	"testing"
)

func TestChunkID_Deterministic(t *testing.T) {
	t.Parallel()
	a := ChunkID("doc-1", 2, 0, "hello world")
	b := ChunkID("doc-1", 2, 0, "hello world")
	if a != b {
		t.Errorf("same inputs produced different IDs: %q vs %q", a, b)
	}
}

func TestChunkID_SensitiveToInputs(t *testing.T) {
	t.Parallel()
	base := ChunkID("doc-1", 1, 0, "content")
	cases := []struct {
		name string
		got  string
	}{
		{"document", ChunkID("doc-2", 1, 0, "content")},
		{"page", ChunkID("doc-1", 2, 0, "content")},
		{"offset", ChunkID("doc-1", 1, 1, "content")},
		{"content", ChunkID("doc-1", 1, 0, "changed")},
	}
	for _, tc := range cases {
		if tc.got == base {
			t.Errorf("changing %s did not change the chunk ID", tc.name)
		}
	}
}

func TestChunkID_UUIDShape(t *testing.T) {
	t.Parallel()
	id := ChunkID("doc-1", 1, 0, "content")
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("want 5 UUID groups, got %d in %q", len(parts), id)
	}
	for i, want := range []int{8, 4, 4, 4, 12} {
		if len(parts[i]) != want {
			t.Errorf("group %d: want length %d, got %d in %q", i, want, len(parts[i]), id)
		}
	}
}

func TestBBox_Intersects(t *testing.T) {
	t.Parallel()
	a := BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}
	cases := []struct {
		name string
		b    BBox
		want bool
	}{
		{"overlapping", BBox{X0: 5, Y0: 5, X1: 15, Y1: 15}, true},
		{"contained", BBox{X0: 2, Y0: 2, X1: 8, Y1: 8}, true},
		{"disjoint", BBox{X0: 20, Y0: 20, X1: 30, Y1: 30}, false},
		{"touching edge", BBox{X0: 10, Y0: 0, X1: 20, Y1: 10}, false},
	}
	for _, tc := range cases {
		if got := a.Intersects(tc.b); got != tc.want {
			t.Errorf("%s: Intersects = %v, want %v", tc.name, got, tc.want)
		}
	}
}
