package search

import (
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru/v2"

	"SearchKit/internal/dsl"
)

// planEntry pairs the original parsed builder with its rewritten form.
// The original and the analyzer it was rewritten under are kept so a
// lookup can verify a hash hit instead of trusting it.
type planEntry struct {
	source    dsl.QueryBuilder
	analyzer  string
	rewritten dsl.QueryBuilder
}

// PlanCache memoizes rewritten query plans. A plan depends on both the
// query and the rewrite context's default analyzer (match clauses expand
// through it), so entries are keyed by the structural hash of the
// builder combined with the analyzer name. Builders are immutable once
// published, so cached trees can be handed out to concurrent requests
// without copying.
type PlanCache struct {
	entries *lru.Cache[uint64, planEntry]
}

// NewPlanCache creates a cache holding at most size plans.
func NewPlanCache(size int) (*PlanCache, error) {
	entries, err := lru.New[uint64, planEntry](size)
	if err != nil {
		return nil, err
	}
	return &PlanCache{entries: entries}, nil
}

// Get returns the cached rewritten form of b under the given default
// analyzer, if present. A hash hit whose stored source or analyzer does
// not match is treated as a miss.
func (c *PlanCache) Get(b dsl.QueryBuilder, analyzer string) (dsl.QueryBuilder, bool) {
	entry, ok := c.entries.Get(planKey(b, analyzer))
	if !ok {
		return nil, false
	}
	if entry.analyzer != analyzer || !dsl.Equal(entry.source, b) {
		return nil, false
	}
	return entry.rewritten, true
}

// Put stores the rewritten form of source under the given default analyzer.
func (c *PlanCache) Put(source dsl.QueryBuilder, analyzer string, rewritten dsl.QueryBuilder) {
	c.entries.Add(planKey(source, analyzer), planEntry{
		source:    source,
		analyzer:  analyzer,
		rewritten: rewritten,
	})
}

// Len returns the number of cached plans.
func (c *PlanCache) Len() int {
	return c.entries.Len()
}

func planKey(b dsl.QueryBuilder, analyzer string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(analyzer))
	h.Write([]byte{0})
	dsl.HashQueryInto(h, b)
	return h.Sum64()
}
