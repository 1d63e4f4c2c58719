package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SearchKit/internal/analysis"
	"SearchKit/internal/dsl"
	"SearchKit/internal/engine"
)

func newTestContext() *dsl.RewriteContext {
	return &dsl.RewriteContext{Analyzers: analysis.NewRegistry()}
}

func newTestReader(t *testing.T, docs map[string]string) *engine.IndexReader {
	t.Helper()
	r := engine.NewIndexReader(analysis.NewRegistry(), "standard")
	for id, body := range docs {
		_, err := r.AddDocument(id, map[string]string{"body": body})
		require.NoError(t, err)
	}
	return r
}

func defaultOptions() Options {
	return Options{TopK: 10, Timeout: time.Minute, MaxDocsScored: 0}
}

func TestRewriteUntilStable_Identity(t *testing.T) {
	ctx := newTestContext()
	term := dsl.NewTermBuilder("f", "v")

	rewritten, err := RewriteUntilStable(term, ctx)
	require.NoError(t, err)
	assert.Same(t, term, rewritten.(*dsl.TermBuilder))
}

func TestRewriteUntilStable_MultiplePasses(t *testing.T) {
	ctx := newTestContext()

	// constant_score(match) needs one pass to expand the match and a
	// second to confirm the fixed point.
	b := dsl.NewConstantScoreBuilder(dsl.NewMatchBuilder("body", "Hello"))

	rewritten, err := RewriteUntilStable(b, ctx)
	require.NoError(t, err)

	cs, ok := rewritten.(*dsl.ConstantScoreBuilder)
	require.True(t, ok)
	term, ok := cs.InnerQuery().(*dsl.TermBuilder)
	require.True(t, ok)
	assert.Equal(t, "hello", term.Value())

	// The result is stable.
	again, err := RewriteUntilStable(rewritten, ctx)
	require.NoError(t, err)
	assert.Equal(t, rewritten, again)
}

func TestRewriteUntilStable_ErrorPropagates(t *testing.T) {
	ctx := newTestContext()

	m := dsl.NewMatchBuilder("body", "text")
	m.SetAnalyzer("nonexistent")

	_, err := RewriteUntilStable(m, ctx)
	require.Error(t, err)
}

func TestPlanCache_HitAndMiss(t *testing.T) {
	cache, err := NewPlanCache(4)
	require.NoError(t, err)

	source := dsl.NewMatchBuilder("body", "hello")
	rewritten := dsl.NewTermBuilder("body", "hello")

	_, ok := cache.Get(source, "standard")
	assert.False(t, ok)

	cache.Put(source, "standard", rewritten)

	// A structurally equal (but distinct) builder hits.
	lookup := dsl.NewMatchBuilder("body", "hello")
	got, ok := cache.Get(lookup, "standard")
	require.True(t, ok)
	assert.True(t, dsl.Equal(rewritten, got))

	// A different query misses.
	_, ok = cache.Get(dsl.NewMatchBuilder("body", "other"), "standard")
	assert.False(t, ok)

	// The same query under a different default analyzer misses.
	_, ok = cache.Get(lookup, "keyword")
	assert.False(t, ok)

	assert.Equal(t, 1, cache.Len())
}

func TestPlanCache_Eviction(t *testing.T) {
	cache, err := NewPlanCache(2)
	require.NoError(t, err)

	a := dsl.NewTermBuilder("f", "a")
	b := dsl.NewTermBuilder("f", "b")
	c := dsl.NewTermBuilder("f", "c")

	cache.Put(a, "standard", a)
	cache.Put(b, "standard", b)
	cache.Put(c, "standard", c)

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get(a, "standard")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestSearcher_Search(t *testing.T) {
	reader := newTestReader(t, map[string]string{
		"d1": "alpha beta",
		"d2": "gamma",
		"d3": "alpha",
	})
	searcher := NewSearcher(nil, nil)

	result, err := searcher.Search(reader, dsl.NewTermBuilder("body", "alpha"), newTestContext(), defaultOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RequestID)
	assert.False(t, result.TimedOut)
	require.Equal(t, 2, result.TotalHits)

	ids := []string{result.Hits[0].ID, result.Hits[1].ID}
	assert.ElementsMatch(t, []string{"d1", "d3"}, ids)
	assert.Equal(t, "alpha", result.Hits[0].Fields["body"])
}

func TestSearcher_MatchExpansion(t *testing.T) {
	reader := newTestReader(t, map[string]string{
		"d1": "the quick brown fox",
		"d2": "a lazy dog",
	})
	searcher := NewSearcher(nil, nil)

	result, err := searcher.Search(reader, dsl.NewMatchBuilder("body", "Quick FOX"), newTestContext(), defaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalHits)
	assert.Equal(t, "d1", result.Hits[0].ID)
}

func TestSearcher_AbsentQueryMatchesNothing(t *testing.T) {
	reader := newTestReader(t, map[string]string{"d1": "alpha"})
	searcher := NewSearcher(nil, nil)

	result, err := searcher.Search(reader, dsl.NewMatchNoneBuilder(), newTestContext(), defaultOptions())
	require.NoError(t, err)
	assert.Zero(t, result.TotalHits)
}

func TestSearcher_ConstantScoreHits(t *testing.T) {
	reader := newTestReader(t, map[string]string{
		"d1": "alpha alpha alpha",
		"d2": "alpha",
	})
	searcher := NewSearcher(nil, nil)

	b := dsl.NewConstantScoreBuilder(dsl.NewTermBuilder("body", "alpha"))
	result, err := searcher.Search(reader, b, newTestContext(), defaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalHits)
	for _, hit := range result.Hits {
		assert.Equal(t, float32(1.0), hit.Score)
	}
}

func TestSearcher_TopKLimit(t *testing.T) {
	reader := newTestReader(t, map[string]string{
		"d1": "alpha", "d2": "alpha", "d3": "alpha", "d4": "alpha",
	})
	searcher := NewSearcher(nil, nil)

	opts := defaultOptions()
	opts.TopK = 2
	result, err := searcher.Search(reader, dsl.NewTermBuilder("body", "alpha"), newTestContext(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalHits)
}

func TestSearcher_UsesPlanCache(t *testing.T) {
	cache, err := NewPlanCache(8)
	require.NoError(t, err)
	searcher := NewSearcher(cache, nil)

	reader := newTestReader(t, map[string]string{"d1": "hello world"})
	ctx := newTestContext()

	first, err := searcher.Search(reader, dsl.NewMatchBuilder("body", "hello"), ctx, defaultOptions())
	require.NoError(t, err)
	assert.False(t, first.CachedPlan)

	second, err := searcher.Search(reader, dsl.NewMatchBuilder("body", "hello"), ctx, defaultOptions())
	require.NoError(t, err)
	assert.True(t, second.CachedPlan)
	assert.Equal(t, first.TotalHits, second.TotalHits)
}

func TestSearcher_PlanCacheScopedByAnalyzer(t *testing.T) {
	cache, err := NewPlanCache(8)
	require.NoError(t, err)
	searcher := NewSearcher(cache, nil)

	standard := engine.NewIndexReader(analysis.NewRegistry(), "standard")
	_, err = standard.AddDocument("s1", map[string]string{"body": "hello world"})
	require.NoError(t, err)

	keyword := engine.NewIndexReader(analysis.NewRegistry(), "keyword")
	_, err = keyword.AddDocument("k1", map[string]string{"body": "Hello World"})
	require.NoError(t, err)

	stdCtx := &dsl.RewriteContext{Analyzers: analysis.NewRegistry(), DefaultAnalyzer: "standard"}
	kwCtx := &dsl.RewriteContext{Analyzers: analysis.NewRegistry(), DefaultAnalyzer: "keyword"}

	// Warm the cache under the standard analyzer.
	first, err := searcher.Search(standard, dsl.NewMatchBuilder("body", "Hello World"), stdCtx, defaultOptions())
	require.NoError(t, err)
	assert.False(t, first.CachedPlan)
	require.Equal(t, 1, first.TotalHits)

	// The same query against a keyword index must not reuse the
	// standard-analyzer plan: keyword analysis keeps "Hello World" as
	// one exact term, which only a fresh rewrite produces.
	second, err := searcher.Search(keyword, dsl.NewMatchBuilder("body", "Hello World"), kwCtx, defaultOptions())
	require.NoError(t, err)
	assert.False(t, second.CachedPlan)
	require.Equal(t, 1, second.TotalHits)
	assert.Equal(t, "k1", second.Hits[0].ID)

	// Each analyzer now has its own cached plan.
	third, err := searcher.Search(keyword, dsl.NewMatchBuilder("body", "Hello World"), kwCtx, defaultOptions())
	require.NoError(t, err)
	assert.True(t, third.CachedPlan)
	require.Equal(t, 1, third.TotalHits)
}

func TestSearcher_DocLimitStopsEarly(t *testing.T) {
	docs := make(map[string]string, 20)
	for i := 0; i < 20; i++ {
		docs[string(rune('a'+i))] = "alpha"
	}
	reader := newTestReader(t, docs)
	searcher := NewSearcher(nil, nil)

	opts := defaultOptions()
	opts.MaxDocsScored = 5
	result, err := searcher.Search(reader, dsl.NewTermBuilder("body", "alpha"), newTestContext(), opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.TotalHits, 5)
}
