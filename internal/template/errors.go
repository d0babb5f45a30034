package template

import "fmt"

// Error is implemented by the errors Parse and Check return. The loader
// uses Position to attach the recipe line.
type Error interface {
	error
	Position() Position
	Message() string
}

type located struct {
	at  Position
	msg string
}

func (e *located) Position() Position { return e.at }
func (e *located) Message() string    { return e.msg }

func (e *located) Error() string {
	loc := fmt.Sprintf("%d:%d", e.at.Line, e.at.Column)
	if e.at.File != "" {
		loc = e.at.File + ":" + loc
	}
	return loc + ": " + e.msg
}

// LexError is a delimiter problem, such as an unclosed ${{.
type LexError struct {
	located
}

// NewLexError returns a LexError at pos.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{located{at: pos, msg: msg}}
}

// ParseError is a malformed expression inside the delimiters.
type ParseError struct {
	located
	Expr string
}

// NewParseErrorf returns a ParseError for expr at pos.
func NewParseErrorf(pos Position, expr string, format string, args ...any) *ParseError {
	return &ParseError{located: located{at: pos, msg: fmt.Sprintf(format, args...)}, Expr: expr}
}
