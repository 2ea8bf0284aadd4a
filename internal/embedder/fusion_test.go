package embedder

import (
	"math"
	"testing"
)

func TestFuse_TextOnly(t *testing.T) {
	t.Parallel()

	got, err := Fuse([]float32{3, 4}, nil, DefaultTextWeight)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	want := []float32{0.6, 0.8}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFuse_OutputIsUnitLength(t *testing.T) {
	t.Parallel()

	got, err := Fuse([]float32{1, 2, 3, 4}, []float32{4, 3, 2, 1}, DefaultTextWeight)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	var sum float64
	for _, v := range got {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-6 {
		t.Errorf("fused vector norm = %v, want 1", math.Sqrt(sum))
	}
}

func TestFuse_OutputKeepsTextDimension(t *testing.T) {
	t.Parallel()

	// Shorter image vector: zero-padded.
	got, err := Fuse([]float32{1, 0, 0, 0}, []float32{0, 1}, 0.5)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[2] != 0 || got[3] != 0 {
		t.Errorf("padded components = %v, %v, want 0, 0", got[2], got[3])
	}

	// Longer image vector: truncated.
	got, err = Fuse([]float32{1, 0}, []float32{0, 1, 5, 5}, 0.5)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestFuse_WeightExtremes(t *testing.T) {
	t.Parallel()

	text := []float32{1, 0}
	image := []float32{0, 1}

	// Weight 1: pure text.
	got, err := Fuse(text, image, 1)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("weight 1.0 = %v, want [1 0]", got)
	}

	// Weight 0: pure image.
	got, err = Fuse(text, image, 0)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if got[0] != 0 || got[1] != 1 {
		t.Errorf("weight 0.0 = %v, want [0 1]", got)
	}
}

func TestFuse_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Fuse(nil, []float32{1}, 0.5); err == nil {
		t.Error("expected error for empty text vector")
	}
	if _, err := Fuse([]float32{1}, nil, 1.5); err == nil {
		t.Error("expected error for out-of-range weight")
	}
	if _, err := Fuse([]float32{1}, nil, -0.1); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	t.Parallel()

	got := normalize([]float32{0, 0, 0})
	for i, v := range got {
		if v != 0 {
			t.Errorf("got[%d] = %v, want 0", i, v)
		}
	}
}
