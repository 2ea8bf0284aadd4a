// Package rerank rescores retrieval candidates against the query with a
// cross-encoder. Vector similarity gets candidates into the room; reranking
// decides which of them actually answer the question.
package rerank

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/54b3r/docrag-go/internal/document"
)

// DefaultMinScore is the relevance floor below which candidates are dropped
// after rescoring.
const DefaultMinScore = 0.3

// DefaultTopN is how many candidates survive reranking by default.
const DefaultTopN = 5

// Candidate pairs a chunk with its relevance score. Before reranking the
// score is the vector similarity; after, the cross-encoder relevance.
type Candidate struct {
	// Chunk is the retrieved chunk.
	Chunk document.Chunk
	// Score is the current relevance estimate in [0,1].
	Score float64
}

// Scorer rescores candidates against a query. The returned slice is parallel
// to the input candidates.
type Scorer interface {
	Score(ctx context.Context, query string, candidates []Candidate) ([]float64, error)
}

// Reranker applies a Scorer, then sorts, thresholds, and truncates the
// candidate list.
type Reranker struct {
	scorer Scorer
	// minScore drops candidates scoring below it.
	minScore float64
	// topN caps the surviving candidate count.
	topN int
	log  *slog.Logger
}

// Option customizes a Reranker.
type Option func(*Reranker)

// WithMinScore sets the relevance floor.
func WithMinScore(s float64) Option {
	return func(r *Reranker) { r.minScore = s }
}

// WithTopN sets the surviving candidate cap.
func WithTopN(n int) Option {
	return func(r *Reranker) { r.topN = n }
}

// New builds a Reranker around scorer. A nil scorer leaves vector scores in
// place and only sorts, thresholds, and truncates.
func New(scorer Scorer, log *slog.Logger, opts ...Option) *Reranker {
	if log == nil {
		log = slog.Default()
	}
	r := &Reranker{
		scorer:   scorer,
		minScore: DefaultMinScore,
		topN:     DefaultTopN,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank rescores candidates against the query and returns the top
// candidates in descending relevance order, dropping any below the score
// floor. If the scorer fails, the original vector ordering is kept rather
// than failing the whole query.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	if r.scorer != nil && len(out) > 0 {
		scores, err := r.scorer.Score(ctx, query, out)
		if err != nil {
			r.log.WarnContext(ctx, "reranker unavailable, keeping vector order",
				slog.String("error", err.Error()))
		} else if len(scores) == len(out) {
			for i := range out {
				out[i].Score = Normalize(scores[i])
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	kept := out[:0]
	for _, c := range out {
		if c.Score >= r.minScore {
			kept = append(kept, c)
		}
	}
	if len(kept) > r.topN {
		kept = kept[:r.topN]
	}
	return kept
}

// Normalize maps a raw cross-encoder score into [0,1]. Scores already in
// range pass through; raw logits are squashed with a sigmoid so models that
// emit unbounded scores still compare on the same scale.
func Normalize(score float64) float64 {
	if score >= 0 && score <= 1 {
		return score
	}
	return 1 / (1 + math.Exp(-score))
}
