package dsl

import (
	"hash"

	"SearchKit/internal/engine"
)

// BoolName is the clause name of the boolean composite.
const BoolName = "bool"

var (
	boolMustField     = NewParseField("must")
	boolFilterField   = NewParseField("filter")
	boolShouldField   = NewParseField("should")
	boolMustNotField  = NewParseField("must_not", "mustNot")
	boolMinMatchField = NewParseField("minimum_should_match", "min_should_match")
)

// BoolBuilder combines sub-clauses with boolean logic. Must and filter
// clauses constrain matches (filter without scoring), should clauses add
// score and optionally constrain via minimum_should_match, must_not
// clauses exclude.
type BoolBuilder struct {
	baseBuilder
	must               []QueryBuilder
	filter             []QueryBuilder
	should             []QueryBuilder
	mustNot            []QueryBuilder
	minimumShouldMatch int
}

// NewBoolBuilder creates an empty bool clause.
func NewBoolBuilder() *BoolBuilder {
	return &BoolBuilder{baseBuilder: newBaseBuilder()}
}

// AddMust appends a required scoring clause.
func (b *BoolBuilder) AddMust(q QueryBuilder) *BoolBuilder {
	b.must = append(b.must, q)
	return b
}

// AddFilter appends a required non-scoring clause.
func (b *BoolBuilder) AddFilter(q QueryBuilder) *BoolBuilder {
	b.filter = append(b.filter, q)
	return b
}

// AddShould appends an optional clause.
func (b *BoolBuilder) AddShould(q QueryBuilder) *BoolBuilder {
	b.should = append(b.should, q)
	return b
}

// AddMustNot appends an excluding clause.
func (b *BoolBuilder) AddMustNot(q QueryBuilder) *BoolBuilder {
	b.mustNot = append(b.mustNot, q)
	return b
}

// SetMinimumShouldMatch sets how many should clauses must match.
func (b *BoolBuilder) SetMinimumShouldMatch(n int) *BoolBuilder {
	b.minimumShouldMatch = n
	return b
}

// Accessors return the live slices; callers must not mutate them.
func (b *BoolBuilder) Must() []QueryBuilder    { return b.must }
func (b *BoolBuilder) Filter() []QueryBuilder  { return b.filter }
func (b *BoolBuilder) Should() []QueryBuilder  { return b.should }
func (b *BoolBuilder) MustNot() []QueryBuilder { return b.mustNot }
func (b *BoolBuilder) MinimumShouldMatch() int { return b.minimumShouldMatch }

func (b *BoolBuilder) WriteableName() string { return BoolName }

// Rewrite applies one round of normalization: children are rewritten
// (identity-preserving), same-mode nested bools are flattened, match_all
// is dropped from must when other constraints remain, match_none in a
// required position short-circuits the whole clause, and an empty bool
// becomes match_all. Returns the receiver unchanged at a fixed point.
func (b *BoolBuilder) Rewrite(ctx *RewriteContext) (QueryBuilder, error) {
	changed := false

	rewriteList := func(list []QueryBuilder) ([]QueryBuilder, error) {
		if len(list) == 0 {
			return list, nil
		}
		out := make([]QueryBuilder, len(list))
		for i, c := range list {
			rc, err := c.Rewrite(ctx)
			if err != nil {
				return nil, err
			}
			if rc != c {
				changed = true
			}
			out[i] = rc
		}
		return out, nil
	}

	must, err := rewriteList(b.must)
	if err != nil {
		return nil, err
	}
	filter, err := rewriteList(b.filter)
	if err != nil {
		return nil, err
	}
	should, err := rewriteList(b.should)
	if err != nil {
		return nil, err
	}
	mustNot, err := rewriteList(b.mustNot)
	if err != nil {
		return nil, err
	}

	// Flatten same-mode nested bools. Never under must_not: negation
	// does not distribute over a spliced child.
	if flat, did := flattenMust(must); did {
		must, changed = flat, true
	}
	// Splicing a nested should list changes how many clauses count
	// toward the parent's minimum_should_match, so only flatten when
	// the parent requires at most one.
	if b.minimumShouldMatch <= 1 {
		if flat, did := flattenShould(should); did {
			should, changed = flat, true
		}
	}

	// Drop match_all from must: it constrains nothing in a conjunction.
	if kept := dropBareMatchAll(must); len(kept) != len(must) {
		if len(kept)+len(filter)+len(should)+len(mustNot) == 0 {
			// Everything was match_all.
			return copyBaseTo(NewMatchAllBuilder(), b), nil
		}
		must = kept
		changed = true
	}

	// match_none in a required position matches nothing at all.
	for _, list := range [][]QueryBuilder{must, filter} {
		for _, c := range list {
			if _, ok := c.(*MatchNoneBuilder); ok {
				return copyBaseTo(NewMatchNoneBuilder(), b), nil
			}
		}
	}

	// A bool with no clauses matches everything.
	if len(must)+len(filter)+len(should)+len(mustNot) == 0 {
		return copyBaseTo(NewMatchAllBuilder(), b), nil
	}

	if !changed {
		return b, nil
	}

	nb := NewBoolBuilder()
	nb.must, nb.filter, nb.should, nb.mustNot = must, filter, should, mustNot
	nb.minimumShouldMatch = b.minimumShouldMatch
	return copyBaseTo(nb, b), nil
}

// flattenMust splices children that are pure must-only bools with
// default metadata into the parent's must list.
func flattenMust(list []QueryBuilder) ([]QueryBuilder, bool) {
	did := false
	out := make([]QueryBuilder, 0, len(list))
	for _, c := range list {
		if inner, ok := c.(*BoolBuilder); ok && spliceable(inner) &&
			len(inner.should) == 0 && len(inner.filter) == 0 && len(inner.mustNot) == 0 &&
			len(inner.must) > 0 && inner.minimumShouldMatch == 0 {
			out = append(out, inner.must...)
			did = true
			continue
		}
		out = append(out, c)
	}
	return out, did
}

// flattenShould splices children that are pure should-only bools with
// minimum_should_match <= 1 and default metadata.
func flattenShould(list []QueryBuilder) ([]QueryBuilder, bool) {
	did := false
	out := make([]QueryBuilder, 0, len(list))
	for _, c := range list {
		if inner, ok := c.(*BoolBuilder); ok && spliceable(inner) &&
			len(inner.must) == 0 && len(inner.filter) == 0 && len(inner.mustNot) == 0 &&
			len(inner.should) > 0 && inner.minimumShouldMatch <= 1 {
			out = append(out, inner.should...)
			did = true
			continue
		}
		out = append(out, c)
	}
	return out, did
}

// spliceable reports whether a child's metadata allows merging it away.
func spliceable(b *BoolBuilder) bool {
	return b.Boost() == DefaultBoost && b.QueryName() == ""
}

// dropBareMatchAll removes match_all clauses with default metadata.
func dropBareMatchAll(list []QueryBuilder) []QueryBuilder {
	kept := make([]QueryBuilder, 0, len(list))
	for _, c := range list {
		if ma, ok := c.(*MatchAllBuilder); ok && ma.Boost() == DefaultBoost && ma.QueryName() == "" {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// ToQuery compiles each child through the shared CompileQuery step (so
// child boosts apply) and skips absent children. If every child compiles
// to absence the whole bool is absent.
func (b *BoolBuilder) ToQuery(ctx *ShardContext) (engine.Query, error) {
	compileList := func(list []QueryBuilder) ([]engine.Query, error) {
		var out []engine.Query
		for _, c := range list {
			q, err := CompileQuery(c, ctx)
			if err != nil {
				return nil, err
			}
			if q == nil {
				continue
			}
			out = append(out, q)
		}
		return out, nil
	}

	must, err := compileList(b.must)
	if err != nil {
		return nil, err
	}
	filter, err := compileList(b.filter)
	if err != nil {
		return nil, err
	}
	should, err := compileList(b.should)
	if err != nil {
		return nil, err
	}
	mustNot, err := compileList(b.mustNot)
	if err != nil {
		return nil, err
	}

	if len(must)+len(filter)+len(should)+len(mustNot) == 0 {
		return nil, nil
	}

	return &engine.BoolQuery{
		Must:               must,
		Filter:             filter,
		Should:             should,
		MustNot:            mustNot,
		MinimumShouldMatch: b.minimumShouldMatch,
	}, nil
}

func (b *BoolBuilder) WriteTo(out *StreamOutput) error {
	for _, list := range [][]QueryBuilder{b.must, b.filter, b.should, b.mustNot} {
		if err := out.WriteUvarint(uint64(len(list))); err != nil {
			return err
		}
		for _, c := range list {
			if err := out.WriteQuery(c); err != nil {
				return err
			}
		}
	}
	return out.WriteUvarint(uint64(b.minimumShouldMatch))
}

func readBool(in *StreamInput) (QueryBuilder, error) {
	b := NewBoolBuilder()
	for _, list := range []*[]QueryBuilder{&b.must, &b.filter, &b.should, &b.mustNot} {
		n, err := in.ReadUvarint()
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < n; i++ {
			c, err := in.ReadQuery()
			if err != nil {
				return nil, err
			}
			*list = append(*list, c)
		}
	}
	n, err := in.ReadUvarint()
	if err != nil {
		return nil, err
	}
	b.minimumShouldMatch = int(n)
	return b, nil
}

func (b *BoolBuilder) EqualTo(other QueryBuilder) bool {
	o, ok := other.(*BoolBuilder)
	if !ok || b.minimumShouldMatch != o.minimumShouldMatch {
		return false
	}
	return equalLists(b.must, o.must) &&
		equalLists(b.filter, o.filter) &&
		equalLists(b.should, o.should) &&
		equalLists(b.mustNot, o.mustNot)
}

func equalLists(a, b []QueryBuilder) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (b *BoolBuilder) HashInto(h hash.Hash64) {
	for _, list := range [][]QueryBuilder{b.must, b.filter, b.should, b.mustNot} {
		hashUint32(h, uint32(len(list)))
		for _, c := range list {
			HashQueryInto(h, c)
		}
	}
	hashUint32(h, uint32(b.minimumShouldMatch))
}

func (b *BoolBuilder) SourceBody() map[string]any {
	body := map[string]any{}
	addList := func(field ParseField, list []QueryBuilder) {
		if len(list) == 0 {
			return
		}
		sources := make([]any, len(list))
		for i, c := range list {
			sources[i] = Source(c)
		}
		body[field.PreferredName()] = sources
	}
	addList(boolMustField, b.must)
	addList(boolFilterField, b.filter)
	addList(boolShouldField, b.should)
	addList(boolMustNotField, b.mustNot)
	if b.minimumShouldMatch > 0 {
		body[boolMinMatchField.PreferredName()] = b.minimumShouldMatch
	}
	return body
}

func parseBool(p *Parser) (QueryBuilder, error) {
	b := NewBoolBuilder()
	var queryName string
	boost := DefaultBoost

	for {
		tok, err := p.next(BoolName)
		if err != nil {
			return nil, err
		}
		if objectEnd(tok) {
			break
		}
		fieldName, ok := tok.(string)
		if !ok {
			return nil, p.errorf(BoolName, "unexpected token [%v]", tok)
		}

		switch {
		case p.matcher.IsDeprecated(fieldName):
			if err := p.skipValue(); err != nil {
				return nil, p.errorf(BoolName, "malformed [%s]: %v", fieldName, err)
			}
		case boolMustField.Match(fieldName):
			b.must, err = p.parseClauseList(BoolName)
		case boolFilterField.Match(fieldName):
			b.filter, err = p.parseClauseList(BoolName)
		case boolShouldField.Match(fieldName):
			b.should, err = p.parseClauseList(BoolName)
		case boolMustNotField.Match(fieldName):
			b.mustNot, err = p.parseClauseList(BoolName)
		case boolMinMatchField.Match(fieldName):
			b.minimumShouldMatch, err = p.integer(BoolName, fieldName)
		case boostField.Match(fieldName):
			boost, err = p.float(BoolName, fieldName)
		case nameField.Match(fieldName):
			queryName, err = p.text(BoolName, fieldName)
		default:
			return nil, p.errorf(BoolName, "query does not support [%s]", fieldName)
		}
		if err != nil {
			return nil, err
		}
	}

	b.SetBoost(boost)
	b.SetQueryName(queryName)
	return b, nil
}
