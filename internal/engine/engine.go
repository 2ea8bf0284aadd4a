// Package engine answers questions over the indexed corpus: retrieve,
// rerank, assemble context, generate, and cite. Full responses are cached so
// repeated questions skip the model entirely.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/54b3r/docrag-go/internal/cache"
	"github.com/54b3r/docrag-go/internal/rerank"
	"github.com/54b3r/docrag-go/internal/vectorindex"
)

// NoAnswerText is returned when nothing relevant survives reranking.
const NoAnswerText = "No relevant information was found in the indexed documents for this question."

// confidenceTopN is how many top reranked scores average into the answer
// confidence.
const confidenceTopN = 3

// Answer is the complete response to one question.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"answer"`
	// Citations link answer claims to indexed chunks, in source order.
	Citations []Citation `json:"citations"`
	// Confidence estimates answer reliability in [0,1].
	Confidence float64 `json:"confidence"`
	// Cached reports whether the response was served from cache.
	Cached bool `json:"cached"`
}

// Options tunes a single query.
type Options struct {
	// TopK overrides the retrieval candidate count. Zero uses the default.
	TopK int
	// DocumentIDs restricts retrieval to these documents.
	DocumentIDs []string
}

// Engine wires the read path together.
type Engine struct {
	retriever *Retriever
	reranker  *rerank.Reranker
	generator *Generator
	// responses caches full answers; nil disables response caching.
	responses *cache.TTL
	// contextTokens is the assembly budget. Zero uses the default.
	contextTokens int
	log           *slog.Logger
}

// New constructs an Engine. The responses cache may be nil to disable
// response caching.
func New(retriever *Retriever, reranker *rerank.Reranker, generator *Generator, responses *cache.TTL, contextTokens int, log *slog.Logger) (*Engine, error) {
	if retriever == nil {
		return nil, fmt.Errorf("engine: retriever must not be nil")
	}
	if reranker == nil {
		return nil, fmt.Errorf("engine: reranker must not be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("engine: generator must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		retriever:     retriever,
		reranker:      reranker,
		generator:     generator,
		responses:     responses,
		contextTokens: contextTokens,
		log:           log,
	}, nil
}

// Answer runs the full read path for a question. Identical questions with
// identical options are served from cache while the entry lives.
func (e *Engine) Answer(ctx context.Context, query string, opts Options) (*Answer, error) {
	key := e.cacheKey(query, opts)
	if e.responses != nil {
		if v, ok := e.responses.Get(key); ok {
			if ans, ok := v.(*Answer); ok {
				cached := *ans
				cached.Cached = true
				return &cached, nil
			}
		}
	}

	var filter *vectorindex.Filter
	if len(opts.DocumentIDs) > 0 {
		filter = &vectorindex.Filter{DocumentIDs: opts.DocumentIDs}
	}

	candidates, err := e.retriever.Retrieve(ctx, query, opts.TopK, filter)
	if err != nil {
		return e.degrade(ctx, "retrieval", err)
	}

	ranked := e.reranker.Rerank(ctx, query, candidates)
	if len(ranked) == 0 {
		// Nothing relevant; answer honestly rather than letting the model
		// improvise.
		return &Answer{Text: NoAnswerText, Confidence: 0}, nil
	}

	contextStr, sources := Assemble(ranked, e.contextTokens)
	text, err := e.generator.Generate(ctx, query, contextStr)
	if err != nil {
		return e.degrade(ctx, "generation", err)
	}

	cleaned, citations := ExtractCitations(text, sources)
	ans := &Answer{
		Text:       cleaned,
		Citations:  citations,
		Confidence: confidence(ranked),
	}

	// A cancelled query may have produced a truncated generation; never
	// cache it.
	if e.responses != nil && ctx.Err() == nil {
		e.responses.Set(key, ans)
	}
	return ans, nil
}

// degrade converts a provider failure into the canned low-confidence answer
// so callers never see a raw backend error for a model timeout or outage.
// Cancellation still propagates, and the fallback is never cached — the next
// attempt retries the backend.
func (e *Engine) degrade(ctx context.Context, stage string, cause error) (*Answer, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	e.log.WarnContext(ctx, "query stage unavailable, returning fallback answer",
		slog.String("stage", stage), slog.String("error", cause.Error()))
	return &Answer{Text: NoAnswerText, Confidence: 0}, nil
}

// cacheKey fingerprints the query together with every option that changes
// the response.
func (e *Engine) cacheKey(query string, opts Options) string {
	parts := []string{"answer", query, strconv.Itoa(opts.TopK)}
	docs := append([]string(nil), opts.DocumentIDs...)
	sort.Strings(docs)
	parts = append(parts, docs...)
	return cache.Fingerprint(parts...)
}

// confidence averages the top reranked scores and clamps into [0,1].
func confidence(ranked []rerank.Candidate) float64 {
	n := confidenceTopN
	if len(ranked) < n {
		n = len(ranked)
	}
	var sum float64
	for _, c := range ranked[:n] {
		sum += c.Score
	}
	conf := sum / float64(n)
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
