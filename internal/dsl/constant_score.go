package dsl

import (
	"hash"

	"SearchKit/internal/engine"
)

// ConstantScoreName is the clause name of the constant-score wrapper.
const ConstantScoreName = "constant_score"

// The single inner clause is accepted under either alias.
var constantScoreInnerField = NewParseField("filter", "query")

// ConstantScoreBuilder wraps an inner clause and forces every document it
// matches to score a fixed constant, discarding the inner clause's native
// relevance contribution. Boost and query name behave like on any clause.
type ConstantScoreBuilder struct {
	baseBuilder
	filter QueryBuilder
}

// NewConstantScoreBuilder wraps filter in a constant-score clause. The
// builder takes sole ownership of filter; callers must not alias it
// elsewhere in a tree. A nil filter is a programmer error and panics.
func NewConstantScoreBuilder(filter QueryBuilder) *ConstantScoreBuilder {
	if filter == nil {
		panic("constant_score: inner clause [filter] cannot be nil")
	}
	return &ConstantScoreBuilder{baseBuilder: newBaseBuilder(), filter: filter}
}

// InnerQuery returns the wrapped clause.
func (b *ConstantScoreBuilder) InnerQuery() QueryBuilder { return b.filter }

func (b *ConstantScoreBuilder) WriteableName() string { return ConstantScoreName }

// Rewrite rewrites the inner clause. When the inner clause rewrites to
// itself the receiver is returned unchanged, so fixed-point loops can
// terminate on identity.
func (b *ConstantScoreBuilder) Rewrite(ctx *RewriteContext) (QueryBuilder, error) {
	rewritten, err := b.filter.Rewrite(ctx)
	if err != nil {
		return nil, err
	}
	if rewritten == b.filter {
		return b, nil
	}
	return copyBaseTo(NewConstantScoreBuilder(rewritten), b), nil
}

// ToQuery compiles the inner clause as a filter and wraps it so every
// match scores the same constant. If the inner clause compiles to
// absence, the absence propagates so enclosing composites can ignore
// this clause too: constant-scoring nothing contributes nothing.
func (b *ConstantScoreBuilder) ToQuery(ctx *ShardContext) (engine.Query, error) {
	inner, err := b.filter.ToQuery(ctx)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, nil
	}
	return &engine.ConstantScoreQuery{Inner: inner}, nil
}

func (b *ConstantScoreBuilder) WriteTo(out *StreamOutput) error {
	return out.WriteQuery(b.filter)
}

func readConstantScore(in *StreamInput) (QueryBuilder, error) {
	inner, err := in.ReadQuery()
	if err != nil {
		return nil, err
	}
	return NewConstantScoreBuilder(inner), nil
}

func (b *ConstantScoreBuilder) EqualTo(other QueryBuilder) bool {
	o, ok := other.(*ConstantScoreBuilder)
	return ok && Equal(b.filter, o.filter)
}

func (b *ConstantScoreBuilder) HashInto(h hash.Hash64) {
	HashQueryInto(h, b.filter)
}

func (b *ConstantScoreBuilder) SourceBody() map[string]any {
	return map[string]any{constantScoreInnerField.PreferredName(): Source(b.filter)}
}

func parseConstantScore(p *Parser) (QueryBuilder, error) {
	var (
		inner      QueryBuilder
		innerFound bool
		boost      = DefaultBoost
		queryName  string
	)

	for {
		tok, err := p.next(ConstantScoreName)
		if err != nil {
			return nil, err
		}
		if objectEnd(tok) {
			break
		}
		fieldName, ok := tok.(string)
		if !ok {
			return nil, p.errorf(ConstantScoreName, "unexpected token [%v]", tok)
		}

		switch {
		case p.matcher.IsDeprecated(fieldName):
			if err := p.skipValue(); err != nil {
				return nil, p.errorf(ConstantScoreName, "malformed [%s]: %v", fieldName, err)
			}
		case constantScoreInnerField.Match(fieldName):
			if innerFound {
				return nil, p.errorf(ConstantScoreName, "accepts only one [%s] element",
					constantScoreInnerField.PreferredName())
			}
			inner, err = p.ParseQuery()
			if err != nil {
				return nil, err
			}
			innerFound = true
		case boostField.Match(fieldName):
			boost, err = p.float(ConstantScoreName, fieldName)
			if err != nil {
				return nil, err
			}
		case nameField.Match(fieldName):
			queryName, err = p.text(ConstantScoreName, fieldName)
			if err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf(ConstantScoreName, "query does not support [%s]", fieldName)
		}
	}

	if !innerFound {
		return nil, p.errorf(ConstantScoreName, "requires a [%s] element",
			constantScoreInnerField.PreferredName())
	}

	b := NewConstantScoreBuilder(inner)
	b.SetBoost(boost)
	b.SetQueryName(queryName)
	return b, nil
}
