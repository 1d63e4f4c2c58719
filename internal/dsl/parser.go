package dsl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Parser consumes a JSON token stream and produces builder trees via the
// clause registry. One Parser handles one request; it is not reusable.
type Parser struct {
	dec     *json.Decoder
	reg     *Registry
	matcher *FieldMatcher
}

// NewParser creates a Parser over r using the given clause registry.
func NewParser(r io.Reader, reg *Registry) *Parser {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Parser{dec: dec, reg: reg}
}

// SetFieldMatcher installs the deprecated-field policy for this request.
func (p *Parser) SetFieldMatcher(m *FieldMatcher) { p.matcher = m }

// Offset returns the current byte offset into the input.
func (p *Parser) Offset() int64 { return p.dec.InputOffset() }

// ParseQuery parses data as a single clause object {"<name>": {...}}.
// Anything after the clause object is rejected.
func ParseQuery(data []byte, reg *Registry) (QueryBuilder, error) {
	p := NewParser(bytes.NewReader(data), reg)
	b, err := p.ParseQuery()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectEOF(); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseQuery parses one clause object from the stream.
func (p *Parser) ParseQuery() (QueryBuilder, error) {
	if err := p.expectDelim('{', ""); err != nil {
		return nil, err
	}
	return p.parseQueryTail()
}

// parseQueryTail parses a clause whose opening '{' was already consumed.
func (p *Parser) parseQueryTail() (QueryBuilder, error) {
	tok, err := p.next("")
	if err != nil {
		return nil, err
	}
	name, ok := tok.(string)
	if !ok {
		if tok == json.Delim('}') {
			return nil, p.errorf("", "query malformed, empty clause")
		}
		return nil, p.errorf("", "expected a clause name but found [%v]", tok)
	}

	parse := p.reg.parser(name)
	if parse == nil {
		return nil, p.errorf("", "unknown query [%s]", name)
	}

	if err := p.expectDelim('{', name); err != nil {
		return nil, err
	}
	builder, err := parse(p)
	if err != nil {
		return nil, err
	}

	// Closing brace of the single-key wrapper object.
	if err := p.expectDelim('}', name); err != nil {
		return nil, err
	}
	return builder, nil
}

// ExpectEOF verifies the input is exhausted. Callers parsing a complete
// request use it so trailing content fails the request instead of being
// silently ignored.
func (p *Parser) ExpectEOF() error {
	tok, err := p.dec.Token()
	if err == nil {
		return p.errorf("", "unexpected trailing content [%v]", tok)
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return p.errorf("", "unexpected trailing content: %v", err)
}

// parseClauseList parses either a single clause object or an array of
// clause objects, as composite clauses accept both shapes.
func (p *Parser) parseClauseList(clause string) ([]QueryBuilder, error) {
	tok, err := p.next(clause)
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('{'):
		q, err := p.parseQueryTail()
		if err != nil {
			return nil, err
		}
		return []QueryBuilder{q}, nil
	case json.Delim('['):
		var clauses []QueryBuilder
		for p.dec.More() {
			q, err := p.ParseQuery()
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, q)
		}
		if err := p.expectDelim(']', clause); err != nil {
			return nil, err
		}
		return clauses, nil
	default:
		return nil, p.errorf(clause, "expected an object or an array of objects but found [%v]", tok)
	}
}

// --- token helpers ---

// objectEnd reports whether tok closes the current object.
func objectEnd(tok json.Token) bool { return tok == json.Delim('}') }

func (p *Parser) next(clause string) (json.Token, error) {
	tok, err := p.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, p.errorf(clause, "unexpected end of input")
		}
		return nil, p.errorf(clause, "malformed input: %v", err)
	}
	return tok, nil
}

func (p *Parser) expectDelim(d rune, clause string) error {
	tok, err := p.next(clause)
	if err != nil {
		return err
	}
	if tok != json.Delim(d) {
		return p.errorf(clause, "expected [%c] but found [%v]", d, tok)
	}
	return nil
}

// skipValue consumes and discards the value following a field name.
func (p *Parser) skipValue() error {
	var v any
	return p.dec.Decode(&v)
}

func (p *Parser) text(clause, field string) (string, error) {
	tok, err := p.next(clause)
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", p.errorf(clause, "[%s] must be a string but found [%v]", field, tok)
	}
	return s, nil
}

func (p *Parser) float(clause, field string) (float32, error) {
	tok, err := p.next(clause)
	if err != nil {
		return 0, err
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, p.errorf(clause, "[%s] must be a number but found [%v]", field, tok)
	}
	f, err := num.Float64()
	if err != nil {
		return 0, p.errorf(clause, "[%s] is not a valid number: %v", field, err)
	}
	return float32(f), nil
}

func (p *Parser) integer(clause, field string) (int, error) {
	tok, err := p.next(clause)
	if err != nil {
		return 0, err
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, p.errorf(clause, "[%s] must be an integer but found [%v]", field, tok)
	}
	n, err := num.Int64()
	if err != nil {
		return 0, p.errorf(clause, "[%s] is not a valid integer: %v", field, err)
	}
	return int(n), nil
}

func (p *Parser) errorf(clause, format string, args ...any) *ParsingError {
	return &ParsingError{
		Offset: p.Offset(),
		Clause: clause,
		Msg:    fmt.Sprintf(format, args...),
	}
}
