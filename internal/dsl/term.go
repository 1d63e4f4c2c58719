package dsl

import (
	"hash"

	"SearchKit/internal/engine"
)

// TermName is the clause name of the exact-term query.
const TermName = "term"

var (
	termFieldField = NewParseField("field")
	termValueField = NewParseField("value", "term")
)

// TermBuilder matches documents containing the exact term, unanalyzed.
type TermBuilder struct {
	baseBuilder
	field string
	value string
}

// NewTermBuilder creates a term clause. Empty field or value is a
// programmer error and panics.
func NewTermBuilder(field, value string) *TermBuilder {
	if field == "" {
		panic("term: [field] cannot be empty")
	}
	if value == "" {
		panic("term: [value] cannot be empty")
	}
	return &TermBuilder{baseBuilder: newBaseBuilder(), field: field, value: value}
}

func (b *TermBuilder) Field() string { return b.field }
func (b *TermBuilder) Value() string { return b.value }

func (b *TermBuilder) WriteableName() string { return TermName }

// Rewrite on a leaf term is always the identity.
func (b *TermBuilder) Rewrite(_ *RewriteContext) (QueryBuilder, error) {
	return b, nil
}

func (b *TermBuilder) ToQuery(_ *ShardContext) (engine.Query, error) {
	return &engine.TermQuery{Field: b.field, Term: b.value}, nil
}

func (b *TermBuilder) WriteTo(out *StreamOutput) error {
	if err := out.WriteString(b.field); err != nil {
		return err
	}
	return out.WriteString(b.value)
}

func readTerm(in *StreamInput) (QueryBuilder, error) {
	field, err := in.ReadString()
	if err != nil {
		return nil, err
	}
	value, err := in.ReadString()
	if err != nil {
		return nil, err
	}
	return NewTermBuilder(field, value), nil
}

func (b *TermBuilder) EqualTo(other QueryBuilder) bool {
	o, ok := other.(*TermBuilder)
	return ok && b.field == o.field && b.value == o.value
}

func (b *TermBuilder) HashInto(h hash.Hash64) {
	hashString(h, b.field)
	hashString(h, b.value)
}

func (b *TermBuilder) SourceBody() map[string]any {
	return map[string]any{
		termFieldField.PreferredName(): b.field,
		termValueField.PreferredName(): b.value,
	}
}

func parseTerm(p *Parser) (QueryBuilder, error) {
	var field, value, queryName string
	var fieldFound, valueFound bool
	boost := DefaultBoost

	for {
		tok, err := p.next(TermName)
		if err != nil {
			return nil, err
		}
		if objectEnd(tok) {
			break
		}
		fieldName, ok := tok.(string)
		if !ok {
			return nil, p.errorf(TermName, "unexpected token [%v]", tok)
		}

		switch {
		case p.matcher.IsDeprecated(fieldName):
			if err := p.skipValue(); err != nil {
				return nil, p.errorf(TermName, "malformed [%s]: %v", fieldName, err)
			}
		case termFieldField.Match(fieldName):
			field, err = p.text(TermName, fieldName)
			fieldFound = true
		case termValueField.Match(fieldName):
			value, err = p.text(TermName, fieldName)
			valueFound = true
		case boostField.Match(fieldName):
			boost, err = p.float(TermName, fieldName)
		case nameField.Match(fieldName):
			queryName, err = p.text(TermName, fieldName)
		default:
			return nil, p.errorf(TermName, "query does not support [%s]", fieldName)
		}
		if err != nil {
			return nil, err
		}
	}

	if !fieldFound {
		return nil, p.errorf(TermName, "requires a [field] element")
	}
	if field == "" {
		return nil, p.errorf(TermName, "[field] cannot be empty")
	}
	if !valueFound {
		return nil, p.errorf(TermName, "requires a [value] element")
	}
	if value == "" {
		return nil, p.errorf(TermName, "[value] cannot be empty")
	}

	b := NewTermBuilder(field, value)
	b.SetBoost(boost)
	b.SetQueryName(queryName)
	return b, nil
}
