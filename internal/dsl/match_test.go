package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_RewriteToTerm(t *testing.T) {
	ctx := newTestRewriteContext()

	b := NewMatchBuilder("title", "Hello")
	b.SetBoost(2.0)
	b.SetQueryName("m")

	rewritten, err := b.Rewrite(ctx)
	require.NoError(t, err)

	term, ok := rewritten.(*TermBuilder)
	require.True(t, ok)
	assert.Equal(t, "title", term.Field())
	assert.Equal(t, "hello", term.Value())
	assert.Equal(t, float32(2.0), term.Boost())
	assert.Equal(t, "m", term.QueryName())
}

func TestMatch_RewriteToBool(t *testing.T) {
	ctx := newTestRewriteContext()

	b := NewMatchBuilder("title", "Hello Wide World")

	rewritten, err := b.Rewrite(ctx)
	require.NoError(t, err)

	bq, ok := rewritten.(*BoolBuilder)
	require.True(t, ok)
	require.Len(t, bq.Should(), 3)
	assert.Equal(t, 1, bq.MinimumShouldMatch())

	values := make([]string, len(bq.Should()))
	for i, c := range bq.Should() {
		values[i] = c.(*TermBuilder).Value()
	}
	assert.Equal(t, []string{"hello", "wide", "world"}, values)
}

func TestMatch_RewriteToMatchNone(t *testing.T) {
	ctx := newTestRewriteContext()

	b := NewMatchBuilder("title", "   ")
	b.SetQueryName("empty")

	rewritten, err := b.Rewrite(ctx)
	require.NoError(t, err)

	mn, ok := rewritten.(*MatchNoneBuilder)
	require.True(t, ok)
	assert.Equal(t, "empty", mn.QueryName())
}

func TestMatch_AnalyzerOverride(t *testing.T) {
	ctx := newTestRewriteContext()

	b := NewMatchBuilder("tag", "Exact Phrase")
	b.SetAnalyzer("keyword")

	rewritten, err := b.Rewrite(ctx)
	require.NoError(t, err)

	term, ok := rewritten.(*TermBuilder)
	require.True(t, ok)
	assert.Equal(t, "Exact Phrase", term.Value())
}

func TestMatch_UnknownAnalyzer(t *testing.T) {
	ctx := newTestRewriteContext()

	b := NewMatchBuilder("title", "hello")
	b.SetAnalyzer("nonexistent")

	_, err := b.Rewrite(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestMatch_EmptyFieldPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewMatchBuilder("", "text")
	})
}

func TestMatch_RewriteReachesFixedPoint(t *testing.T) {
	ctx := newTestRewriteContext()

	// Every kind a match can expand to is rewrite-stable.
	for _, text := range []string{"", "one", "two words"} {
		b := NewMatchBuilder("f", text)
		rewritten, err := b.Rewrite(ctx)
		require.NoError(t, err)

		again, err := rewritten.Rewrite(ctx)
		require.NoError(t, err)
		assert.Equal(t, rewritten, again, "text %q", text)
	}
}
