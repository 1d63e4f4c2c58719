package engine

import (
	"container/heap"
	"sort"
)

// BoolQuery combines sub-queries with boolean logic.
//
// Must and Filter children constrain matches; Filter children contribute
// no score. Should children contribute score and, when MinimumShouldMatch
// is positive (or when the query has no Must/Filter children), constrain
// matches as well. MustNot children exclude documents.
type BoolQuery struct {
	Must               []Query
	Filter             []Query
	Should             []Query
	MustNot            []Query
	MinimumShouldMatch int
}

func (q *BoolQuery) Scorer(r *IndexReader, ctx *ExecutionContext) (Scorer, error) {
	required, err := q.requiredScorers(r, ctx)
	if err != nil {
		return nil, err
	}

	minMatch := q.MinimumShouldMatch
	if len(q.Should) > 0 && len(required) == 0 && minMatch == 0 {
		// Pure disjunction: at least one should clause must match.
		minMatch = 1
	}

	var optional *disjunctionScorer
	if len(q.Should) > 0 {
		children, err := childScorers(q.Should, r, ctx)
		if err != nil {
			return nil, err
		}
		dis := newDisjunctionScorer(children, minMatch)
		if minMatch > 0 || len(required) == 0 {
			required = append(required, dis)
		} else {
			// Score-only shoulds: never constrain, only add score.
			optional = dis
		}
	}

	var positive Scorer
	switch len(required) {
	case 0:
		// A bool with only must_not clauses matches against all documents.
		positive = &matchAllScorer{maxDoc: r.MaxDoc(), doc: -1}
	case 1:
		positive = required[0]
	default:
		positive = newConjunctionScorer(required)
	}

	var excluded PostingsIterator
	if len(q.MustNot) > 0 {
		children, err := childScorers(q.MustNot, r, ctx)
		if err != nil {
			return nil, err
		}
		excluded = newDisjunctionScorer(children, 1)
	}

	if excluded == nil && optional == nil {
		return positive, nil
	}
	return &boolScorer{positive: positive, excluded: excluded, optional: optional}, nil
}

func (q *BoolQuery) requiredScorers(r *IndexReader, ctx *ExecutionContext) ([]Scorer, error) {
	scorers, err := childScorers(q.Must, r, ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range q.Filter {
		s, err := f.Scorer(r, ctx)
		if err != nil {
			return nil, err
		}
		// Filter context: match, but contribute nothing to the score.
		scorers = append(scorers, &fixedScoreScorer{Scorer: s, score: 0})
	}
	return scorers, nil
}

func childScorers(qs []Query, r *IndexReader, ctx *ExecutionContext) ([]Scorer, error) {
	scorers := make([]Scorer, 0, len(qs))
	for _, q := range qs {
		s, err := q.Scorer(r, ctx)
		if err != nil {
			return nil, err
		}
		scorers = append(scorers, s)
	}
	return scorers, nil
}

// conjunctionScorer implements AND logic over multiple scorers.
// It uses the lowest-cost scorer as the lead and advances all others to
// alignment; the score of a document is the sum over all children.
type conjunctionScorer struct {
	children []Scorer
	lead     Scorer
	current  uint32
}

func newConjunctionScorer(children []Scorer) *conjunctionScorer {
	// Sort by cost ascending so the cheapest scorer leads.
	sorted := make([]Scorer, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cost() < sorted[j].Cost()
	})

	return &conjunctionScorer{
		children: sorted,
		lead:     sorted[0],
	}
}

func (c *conjunctionScorer) Next() bool {
	if !c.lead.Next() {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *conjunctionScorer) DocID() uint32 {
	return c.current
}

func (c *conjunctionScorer) Freq() uint32 {
	return c.lead.Freq()
}

func (c *conjunctionScorer) Advance(target uint32) bool {
	if !c.lead.Advance(target) {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *conjunctionScorer) Cost() int64 {
	return c.lead.Cost()
}

func (c *conjunctionScorer) Score() float32 {
	var total float32
	for _, child := range c.children {
		total += child.Score()
	}
	return total
}

// align advances all scorers until they all point to the same document.
func (c *conjunctionScorer) align(target uint32) bool {
	for {
		allAligned := true
		for _, child := range c.children {
			if child == c.lead {
				continue
			}
			if !child.Advance(target) {
				return false
			}
			if child.DocID() > target {
				target = child.DocID()
				if !c.lead.Advance(target) {
					return false
				}
				// Lead may have landed past target.
				target = c.lead.DocID()
				allAligned = false
				break
			}
		}
		if allAligned {
			c.current = target
			return true
		}
	}
}

// disjunctionScorer implements OR logic over multiple scorers using a
// min-heap ordered by doc ID. The score of a document is the sum over
// the children matching it; documents matched by fewer than minMatch
// children are skipped.
type disjunctionScorer struct {
	h          scorerHeap
	current    uint32
	score      float32
	matched    int
	minMatch   int
	positioned bool
}

func newDisjunctionScorer(children []Scorer, minMatch int) *disjunctionScorer {
	d := &disjunctionScorer{minMatch: minMatch}

	// Prime the heap with every scorer that has at least one doc.
	for _, child := range children {
		if child.Next() {
			d.h = append(d.h, child)
		}
	}
	heap.Init(&d.h)

	return d
}

func (d *disjunctionScorer) Next() bool {
	for {
		if len(d.h) == 0 {
			d.positioned = false
			return false
		}

		d.current = d.h[0].DocID()
		d.score = 0
		d.matched = 0

		// Drain all scorers at the current doc, accumulating their scores.
		for len(d.h) > 0 && d.h[0].DocID() == d.current {
			top := d.h[0]
			d.score += top.Score()
			d.matched++
			if top.Next() {
				heap.Fix(&d.h, 0)
			} else {
				heap.Pop(&d.h)
			}
		}

		if d.matched >= d.minMatch {
			d.positioned = true
			return true
		}
	}
}

func (d *disjunctionScorer) DocID() uint32 {
	return d.current
}

func (d *disjunctionScorer) Freq() uint32 {
	return 1 // Approximate for OR.
}

func (d *disjunctionScorer) Advance(target uint32) bool {
	// If already positioned at or past target, return true.
	if d.positioned && d.current >= target {
		return true
	}
	// Push all scorers to >= target, then capture the next qualifying doc.
	for len(d.h) > 0 && d.h[0].DocID() < target {
		top := d.h[0]
		if top.Advance(target) {
			heap.Fix(&d.h, 0)
		} else {
			heap.Pop(&d.h)
		}
	}
	return d.Next()
}

func (d *disjunctionScorer) Cost() int64 {
	var total int64
	for _, s := range d.h {
		total += s.Cost()
	}
	return total
}

func (d *disjunctionScorer) Score() float32 {
	return d.score
}

// Matched returns how many children matched the current document.
func (d *disjunctionScorer) Matched() int {
	return d.matched
}

// scorerHeap is a min-heap of Scorers ordered by current DocID.
type scorerHeap []Scorer

func (h scorerHeap) Len() int           { return len(h) }
func (h scorerHeap) Less(i, j int) bool { return h[i].DocID() < h[j].DocID() }
func (h scorerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scorerHeap) Push(x any)        { *h = append(*h, x.(Scorer)) }
func (h *scorerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// boolScorer drives a positive scorer while excluding documents matched
// by the excluded iterator and adding the scores of optional (score-only)
// should clauses that happen to match.
type boolScorer struct {
	positive Scorer
	excluded PostingsIterator
	optional *disjunctionScorer

	current         uint32
	optionalAligned bool
}

func (b *boolScorer) Next() bool {
	for b.positive.Next() {
		if b.accept(b.positive.DocID()) {
			return true
		}
	}
	return false
}

func (b *boolScorer) Advance(target uint32) bool {
	if !b.positive.Advance(target) {
		return false
	}
	if b.accept(b.positive.DocID()) {
		return true
	}
	return b.Next()
}

func (b *boolScorer) accept(doc uint32) bool {
	if b.excluded != nil {
		if !b.excluded.Advance(doc) {
			b.excluded = nil // exhausted, nothing more to exclude
		} else if b.excluded.DocID() == doc {
			return false
		}
	}

	b.current = doc
	b.optionalAligned = false
	if b.optional != nil {
		if b.optional.Advance(doc) {
			b.optionalAligned = b.optional.DocID() == doc
		} else {
			b.optional = nil
		}
	}
	return true
}

func (b *boolScorer) DocID() uint32 { return b.current }
func (b *boolScorer) Freq() uint32  { return b.positive.Freq() }
func (b *boolScorer) Cost() int64   { return b.positive.Cost() }

func (b *boolScorer) Score() float32 {
	score := b.positive.Score()
	if b.optionalAligned {
		score += b.optional.Score()
	}
	return score
}
