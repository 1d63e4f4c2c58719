package dsl

import (
	"hash"

	"SearchKit/internal/engine"
)

// Clause names of the two trivial queries.
const (
	MatchAllName  = "match_all"
	MatchNoneName = "match_none"
)

// MatchAllBuilder matches every document.
type MatchAllBuilder struct {
	baseBuilder
}

// NewMatchAllBuilder creates a match_all clause.
func NewMatchAllBuilder() *MatchAllBuilder {
	return &MatchAllBuilder{baseBuilder: newBaseBuilder()}
}

func (b *MatchAllBuilder) WriteableName() string { return MatchAllName }

func (b *MatchAllBuilder) Rewrite(_ *RewriteContext) (QueryBuilder, error) {
	return b, nil
}

func (b *MatchAllBuilder) ToQuery(_ *ShardContext) (engine.Query, error) {
	return &engine.MatchAllQuery{}, nil
}

func (b *MatchAllBuilder) WriteTo(_ *StreamOutput) error { return nil }

func readMatchAll(_ *StreamInput) (QueryBuilder, error) {
	return NewMatchAllBuilder(), nil
}

func (b *MatchAllBuilder) EqualTo(other QueryBuilder) bool {
	_, ok := other.(*MatchAllBuilder)
	return ok
}

func (b *MatchAllBuilder) HashInto(_ hash.Hash64) {}

func (b *MatchAllBuilder) SourceBody() map[string]any {
	return map[string]any{}
}

func parseMatchAll(p *Parser) (QueryBuilder, error) {
	return parseMetadataOnly(p, MatchAllName, func() QueryBuilder { return NewMatchAllBuilder() })
}

// MatchNoneBuilder matches no documents. It compiles to absence, so
// enclosing composites drop it entirely.
type MatchNoneBuilder struct {
	baseBuilder
}

// NewMatchNoneBuilder creates a match_none clause.
func NewMatchNoneBuilder() *MatchNoneBuilder {
	return &MatchNoneBuilder{baseBuilder: newBaseBuilder()}
}

func (b *MatchNoneBuilder) WriteableName() string { return MatchNoneName }

func (b *MatchNoneBuilder) Rewrite(_ *RewriteContext) (QueryBuilder, error) {
	return b, nil
}

func (b *MatchNoneBuilder) ToQuery(_ *ShardContext) (engine.Query, error) {
	return nil, nil
}

func (b *MatchNoneBuilder) WriteTo(_ *StreamOutput) error { return nil }

func readMatchNone(_ *StreamInput) (QueryBuilder, error) {
	return NewMatchNoneBuilder(), nil
}

func (b *MatchNoneBuilder) EqualTo(other QueryBuilder) bool {
	_, ok := other.(*MatchNoneBuilder)
	return ok
}

func (b *MatchNoneBuilder) HashInto(_ hash.Hash64) {}

func (b *MatchNoneBuilder) SourceBody() map[string]any {
	return map[string]any{}
}

func parseMatchNone(p *Parser) (QueryBuilder, error) {
	return parseMetadataOnly(p, MatchNoneName, func() QueryBuilder { return NewMatchNoneBuilder() })
}

// parseMetadataOnly parses a clause body that accepts only the shared
// boost/_name fields.
func parseMetadataOnly(p *Parser, clause string, construct func() QueryBuilder) (QueryBuilder, error) {
	var queryName string
	boost := DefaultBoost

	for {
		tok, err := p.next(clause)
		if err != nil {
			return nil, err
		}
		if objectEnd(tok) {
			break
		}
		fieldName, ok := tok.(string)
		if !ok {
			return nil, p.errorf(clause, "unexpected token [%v]", tok)
		}

		switch {
		case p.matcher.IsDeprecated(fieldName):
			if err := p.skipValue(); err != nil {
				return nil, p.errorf(clause, "malformed [%s]: %v", fieldName, err)
			}
		case boostField.Match(fieldName):
			boost, err = p.float(clause, fieldName)
		case nameField.Match(fieldName):
			queryName, err = p.text(clause, fieldName)
		default:
			return nil, p.errorf(clause, "query does not support [%s]", fieldName)
		}
		if err != nil {
			return nil, err
		}
	}

	b := construct()
	b.SetBoost(boost)
	b.SetQueryName(queryName)
	return b, nil
}
