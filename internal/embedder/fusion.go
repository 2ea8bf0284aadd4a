package embedder

import (
	"fmt"
	"math"
)

// DefaultTextWeight is the share of the fused vector contributed by the
// text-description embedding when combining it with a visual embedding.
// Description text carries most of the retrieval signal for figures in
// technical documents, so it dominates.
const DefaultTextWeight = 0.6

// Fuse combines a text-description embedding with a visual embedding into a
// single vector usable for similarity search. Both inputs are L2-normalized
// first so neither modality dominates by magnitude, then summed with
// textWeight on the text vector and (1-textWeight) on the image vector, and
// the result is normalized again.
//
// The output always has the dimensionality of the text vector. When the
// visual vector is shorter it is zero-padded; when longer it is truncated.
// This keeps fused vectors storable in the same collection as text-only ones.
func Fuse(text, image []float32, textWeight float64) ([]float32, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("embedder: fuse requires a non-empty text vector")
	}
	if textWeight < 0 || textWeight > 1 {
		return nil, fmt.Errorf("embedder: text weight %v out of range [0,1]", textWeight)
	}
	if len(image) == 0 {
		return normalize(text), nil
	}

	tn := normalize(text)
	in := normalize(image)

	fused := make([]float32, len(tn))
	iw := 1 - textWeight
	for i := range fused {
		v := textWeight * float64(tn[i])
		if i < len(in) {
			v += iw * float64(in[i])
		}
		fused[i] = float32(v)
	}
	return normalize(fused), nil
}

// normalize returns the L2-normalized copy of v. A zero vector is returned
// unchanged — normalizing it would divide by zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
