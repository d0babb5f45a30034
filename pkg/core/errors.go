package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies recipe errors.
type ErrorKind int

// ErrorKind values.
const (
	KindDataGen ErrorKind = iota // structural or semantic violation
	KindSyntax                   // malformed document or expression
	KindName                     // reference to an undefined name
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "DataGenSyntaxError"
	case KindName:
		return "DataGenNameError"
	default:
		return "DataGenError"
	}
}

// Sentinels for errors.Is. ErrDataGen matches every recipe error.
var (
	ErrDataGen = errors.New("data generation error")
	ErrSyntax  = errors.New("data generation syntax error")
	ErrName    = errors.New("data generation name error")
)

// DefaultFilename is used when a recipe is read from an unnamed stream.
const DefaultFilename = "<stream>"

// Error is a located recipe error. Values are immutable once created.
type Error struct {
	kind    ErrorKind
	message string
	file    string
	line    int
	cause   error
}

// NewDataGenError creates a general data generation error at line.
func NewDataGenError(file string, line int, format string, args ...any) *Error {
	return newError(KindDataGen, file, line, nil, format, args...)
}

// NewSyntaxError creates a syntax error at line.
func NewSyntaxError(file string, line int, format string, args ...any) *Error {
	return newError(KindSyntax, file, line, nil, format, args...)
}

// NewNameError creates a name error at line.
func NewNameError(file string, line int, format string, args ...any) *Error {
	return newError(KindName, file, line, nil, format, args...)
}

// WrapError creates an error of the given kind that keeps cause for errors.As.
func WrapError(kind ErrorKind, file string, line int, cause error, format string, args ...any) *Error {
	return newError(kind, file, line, cause, format, args...)
}

func newError(kind ErrorKind, file string, line int, cause error, format string, args ...any) *Error {
	if file == "" {
		file = DefaultFilename
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{kind: kind, message: msg, file: file, line: line, cause: cause}
}

// Kind returns the error classification.
func (e *Error) Kind() ErrorKind { return e.kind }

// Message returns the message without location.
func (e *Error) Message() string { return e.message }

// File returns the recipe name the error refers to.
func (e *Error) File() string { return e.file }

// Line returns the 1-based source line.
func (e *Error) Line() int { return e.line }

// Error renders the message followed by "near <file>:<line>".
func (e *Error) Error() string {
	return fmt.Sprintf("%s\n near %s:%d", e.message, e.file, e.line)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDataGen:
		return true
	case ErrSyntax:
		return e.kind == KindSyntax
	case ErrName:
		return e.kind == KindName
	}
	return false
}

// AsError extracts the recipe error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
