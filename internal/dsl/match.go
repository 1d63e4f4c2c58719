package dsl

import (
	"fmt"
	"hash"

	"SearchKit/internal/engine"
)

// MatchName is the clause name of the analyzed full-text query.
const MatchName = "match"

var (
	matchFieldField    = NewParseField("field")
	matchQueryField    = NewParseField("query", "text")
	matchAnalyzerField = NewParseField("analyzer")
)

// MatchBuilder analyzes its text and matches documents containing the
// resulting terms. The analysis happens during rewrite: a match clause
// expands into a term clause, a bool of term clauses, or match_none,
// depending on how many tokens the analyzer produces.
type MatchBuilder struct {
	baseBuilder
	field    string
	text     string
	analyzer string
}

// NewMatchBuilder creates a match clause. An empty field is a programmer
// error and panics; empty text is allowed and rewrites to match_none.
func NewMatchBuilder(field, text string) *MatchBuilder {
	if field == "" {
		panic("match: [field] cannot be empty")
	}
	return &MatchBuilder{baseBuilder: newBaseBuilder(), field: field, text: text}
}

func (b *MatchBuilder) Field() string { return b.field }
func (b *MatchBuilder) Text() string  { return b.text }

// Analyzer returns the analyzer override, or "" for the context default.
func (b *MatchBuilder) Analyzer() string        { return b.analyzer }
func (b *MatchBuilder) SetAnalyzer(name string) { b.analyzer = name }

func (b *MatchBuilder) WriteableName() string { return MatchName }

// Rewrite expands the match clause through the context's analyzer. The
// result is always a different builder kind, and every kind it produces
// is rewrite-stable, so fixed-point iteration terminates.
func (b *MatchBuilder) Rewrite(ctx *RewriteContext) (QueryBuilder, error) {
	analyzer, err := ctx.Analyzer(b.analyzer)
	if err != nil {
		return nil, fmt.Errorf("match [%s]: %w", b.field, err)
	}

	tokens := analyzer.Analyze(b.field, b.text)
	var rewritten QueryBuilder
	switch len(tokens) {
	case 0:
		rewritten = NewMatchNoneBuilder()
	case 1:
		rewritten = NewTermBuilder(b.field, tokens[0].Term)
	default:
		bq := NewBoolBuilder()
		for _, tok := range tokens {
			bq.AddShould(NewTermBuilder(b.field, tok.Term))
		}
		bq.SetMinimumShouldMatch(1)
		rewritten = bq
	}
	return copyBaseTo(rewritten, b), nil
}

// ToQuery compiles via the rewritten form so standalone compilation and
// rewrite-then-compile agree.
func (b *MatchBuilder) ToQuery(ctx *ShardContext) (engine.Query, error) {
	rewritten, err := b.Rewrite(&ctx.RewriteContext)
	if err != nil {
		return nil, err
	}
	return rewritten.ToQuery(ctx)
}

func (b *MatchBuilder) WriteTo(out *StreamOutput) error {
	if err := out.WriteString(b.field); err != nil {
		return err
	}
	if err := out.WriteString(b.text); err != nil {
		return err
	}
	return out.WriteOptionalString(b.analyzer)
}

func readMatch(in *StreamInput) (QueryBuilder, error) {
	field, err := in.ReadString()
	if err != nil {
		return nil, err
	}
	text, err := in.ReadString()
	if err != nil {
		return nil, err
	}
	analyzer, err := in.ReadOptionalString()
	if err != nil {
		return nil, err
	}
	b := NewMatchBuilder(field, text)
	b.SetAnalyzer(analyzer)
	return b, nil
}

func (b *MatchBuilder) EqualTo(other QueryBuilder) bool {
	o, ok := other.(*MatchBuilder)
	return ok && b.field == o.field && b.text == o.text && b.analyzer == o.analyzer
}

func (b *MatchBuilder) HashInto(h hash.Hash64) {
	hashString(h, b.field)
	hashString(h, b.text)
	hashString(h, b.analyzer)
}

func (b *MatchBuilder) SourceBody() map[string]any {
	body := map[string]any{
		matchFieldField.PreferredName(): b.field,
		matchQueryField.PreferredName(): b.text,
	}
	if b.analyzer != "" {
		body[matchAnalyzerField.PreferredName()] = b.analyzer
	}
	return body
}

func parseMatch(p *Parser) (QueryBuilder, error) {
	var field, text, analyzer, queryName string
	var textFound bool
	boost := DefaultBoost

	for {
		tok, err := p.next(MatchName)
		if err != nil {
			return nil, err
		}
		if objectEnd(tok) {
			break
		}
		fieldName, ok := tok.(string)
		if !ok {
			return nil, p.errorf(MatchName, "unexpected token [%v]", tok)
		}

		switch {
		case p.matcher.IsDeprecated(fieldName):
			if err := p.skipValue(); err != nil {
				return nil, p.errorf(MatchName, "malformed [%s]: %v", fieldName, err)
			}
		case matchFieldField.Match(fieldName):
			field, err = p.text(MatchName, fieldName)
		case matchQueryField.Match(fieldName):
			text, err = p.text(MatchName, fieldName)
			textFound = true
		case matchAnalyzerField.Match(fieldName):
			analyzer, err = p.text(MatchName, fieldName)
		case boostField.Match(fieldName):
			boost, err = p.float(MatchName, fieldName)
		case nameField.Match(fieldName):
			queryName, err = p.text(MatchName, fieldName)
		default:
			return nil, p.errorf(MatchName, "query does not support [%s]", fieldName)
		}
		if err != nil {
			return nil, err
		}
	}

	if field == "" {
		return nil, p.errorf(MatchName, "requires a [field] element")
	}
	if !textFound {
		return nil, p.errorf(MatchName, "requires a [query] element")
	}

	b := NewMatchBuilder(field, text)
	b.SetAnalyzer(analyzer)
	b.SetBoost(boost)
	b.SetQueryName(queryName)
	return b, nil
}
