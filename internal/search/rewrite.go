package search

import (
	"errors"
	"fmt"

	"SearchKit/internal/dsl"
)

// maxRewritePasses bounds the fixed-point loop. Well-behaved builders
// converge in a handful of passes; hitting the bound means a Rewrite
// implementation keeps returning fresh builders without simplifying.
const maxRewritePasses = 16

var ErrRewriteUnstable = errors.New("query rewrite did not reach a fixed point")

// RewriteUntilStable applies Rewrite repeatedly until the returned
// builder is reference-identical to its input. Builders signal "nothing
// to do" by returning the receiver, so identity comparison is the
// termination test, not structural equality.
func RewriteUntilStable(b dsl.QueryBuilder, ctx *dsl.RewriteContext) (dsl.QueryBuilder, error) {
	for i := 0; i < maxRewritePasses; i++ {
		rewritten, err := b.Rewrite(ctx)
		if err != nil {
			return nil, err
		}
		if rewritten == b {
			return b, nil
		}
		b = rewritten
	}
	return nil, fmt.Errorf("%w after %d passes", ErrRewriteUnstable, maxRewritePasses)
}
