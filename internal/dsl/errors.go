package dsl

import "fmt"

// ParsingError reports malformed or non-conformant structured input.
// It carries the byte offset of the offending token and the clause
// being parsed, and always aborts parsing of the enclosing request.
type ParsingError struct {
	Offset int64
	Clause string
	Msg    string
}

func (e *ParsingError) Error() string {
	if e.Clause != "" {
		return fmt.Sprintf("[%s] %s (at offset %d)", e.Clause, e.Msg, e.Offset)
	}
	return fmt.Sprintf("%s (at offset %d)", e.Msg, e.Offset)
}
