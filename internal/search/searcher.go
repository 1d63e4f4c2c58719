package search

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"SearchKit/internal/dsl"
	"SearchKit/internal/engine"
)

// Options controls one search request.
type Options struct {
	TopK          int
	Timeout       time.Duration
	MaxDocsScored int
}

// Hit is one matching document.
type Hit struct {
	ID     string            `json:"id"`
	Score  float32           `json:"score"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Result is the outcome of one search request.
type Result struct {
	RequestID  string
	Took       time.Duration
	TimedOut   bool
	CachedPlan bool
	TotalHits  int
	Hits       []Hit
}

// Searcher drives the rewrite → compile → collect pipeline for one
// process. It is safe for concurrent use.
type Searcher struct {
	cache  *PlanCache
	logger *slog.Logger
}

// NewSearcher creates a Searcher. The plan cache is optional; pass nil
// to rewrite every request from scratch.
func NewSearcher(cache *PlanCache, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{cache: cache, logger: logger}
}

// Search rewrites and compiles the builder against the reader, then
// collects the top-K hits. A builder that compiles to absence (nil
// query) matches no documents.
func (s *Searcher) Search(reader *engine.IndexReader, builder dsl.QueryBuilder, rctx *dsl.RewriteContext, opts Options) (*Result, error) {
	requestID := uuid.NewString()
	start := time.Now()

	rewritten, cached, err := s.plan(builder, rctx)
	if err != nil {
		return nil, err
	}

	shard := &dsl.ShardContext{RewriteContext: *rctx, Reader: reader}
	q, err := dsl.CompileQuery(rewritten, shard)
	if err != nil {
		return nil, err
	}

	execCtx := engine.NewExecutionContext(opts.Timeout, opts.MaxDocsScored)
	collector := engine.NewTopKCollector(opts.TopK)

	if q != nil {
		scorer, err := q.Scorer(reader, execCtx)
		if err != nil {
			return nil, err
		}
		for scorer.Next() {
			if err := execCtx.CheckLimits(); err != nil {
				if errors.Is(err, engine.ErrQueryTimeout) || errors.Is(err, engine.ErrDocLimitExceeded) {
					break
				}
				return nil, err
			}
			execCtx.DocsScored++
			collector.Collect(scorer.DocID(), scorer.Score())
		}
	}

	scored := collector.Results()
	hits := make([]Hit, len(scored))
	for i, doc := range scored {
		id, err := reader.ExternalID(doc.DocID)
		if err != nil {
			return nil, err
		}
		hits[i] = Hit{
			ID:     id,
			Score:  doc.Score,
			Fields: reader.StoredFields(doc.DocID),
		}
	}

	took := time.Since(start)
	s.logger.Info("search complete",
		"request_id", requestID,
		"took_ms", took.Milliseconds(),
		"hits", len(hits),
		"docs_scored", execCtx.DocsScored,
		"cached_plan", cached,
		"timed_out", execCtx.TimedOut,
	)

	return &Result{
		RequestID:  requestID,
		Took:       took,
		TimedOut:   execCtx.TimedOut,
		CachedPlan: cached,
		TotalHits:  len(hits),
		Hits:       hits,
	}, nil
}

// Validate rewrites the builder to a fixed point without executing it,
// returning the rewritten form.
func (s *Searcher) Validate(builder dsl.QueryBuilder, rctx *dsl.RewriteContext) (dsl.QueryBuilder, error) {
	return RewriteUntilStable(builder, rctx)
}

// plan returns the rewritten form of builder, consulting the cache.
// Cache entries are scoped to the context's default analyzer so a plan
// rewritten for one index is never served to an index that analyzes
// differently.
func (s *Searcher) plan(builder dsl.QueryBuilder, rctx *dsl.RewriteContext) (dsl.QueryBuilder, bool, error) {
	analyzer := rctx.DefaultAnalyzerName()
	if s.cache != nil {
		if rewritten, ok := s.cache.Get(builder, analyzer); ok {
			return rewritten, true, nil
		}
	}
	rewritten, err := RewriteUntilStable(builder, rctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		s.cache.Put(builder, analyzer, rewritten)
	}
	return rewritten, false, nil
}
