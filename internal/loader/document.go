// Package loader reads recipes into a line-annotated Document.
// YAML is parsed with gopkg.in/yaml.v3 and every declaration, field and
// argument keeps the line of the node it came from.
package loader

import (
	"github.com/leapstack-labs/leapfake/internal/template"
)

// DeclKind identifies a top-level declaration.
type DeclKind int

// DeclKind values.
const (
	DeclObject DeclKind = iota
	DeclMacro
	DeclVar
)

func (k DeclKind) String() string {
	switch k {
	case DeclObject:
		return "object"
	case DeclMacro:
		return "macro"
	case DeclVar:
		return "var"
	default:
		return "unknown"
	}
}

// Document is an ordered list of declarations. Declaration order is
// generation order.
type Document struct {
	File  string
	Decls []*Declaration
}

// Key is a mapping key as written on a declaration.
type Key struct {
	Name string
	Line int
}

// Declaration is an object template, macro definition or variable.
type Declaration struct {
	Kind     DeclKind
	Name     string
	Nickname string
	Line     int

	// Count is nil when the recipe omits it (one row).
	Count     FieldSpec
	CountLine int

	Fields  []*Field
	Friends []*Declaration

	// Include names the parent macro, empty for none.
	Include     string
	IncludeLine int

	// Value is set for var declarations.
	Value FieldSpec

	// Keys lists every key present on the declaration, for validation.
	Keys []Key
}

// HasKey reports whether the declaration was written with key name.
func (d *Declaration) HasKey(name string) bool {
	for _, k := range d.Keys {
		if k.Name == name {
			return true
		}
	}
	return false
}

// Field is one named field spec.
type Field struct {
	Name string
	Line int
	Spec FieldSpec
}

// FieldSpec is the tagged variant for a field value:
// *Literal, *Expression, *FunctionCall or *NestedObject.
type FieldSpec interface {
	Line() int
	fieldSpec()
}

type specBase struct {
	line int
}

func (s specBase) Line() int  { return s.line }
func (s specBase) fieldSpec() {}

// Literal is a scalar with no expressions. Value is int64, float64, bool,
// string, time.Time or nil.
type Literal struct {
	specBase
	Value any
}

// Expression is a string containing ${{ }} expressions.
type Expression struct {
	specBase
	Template *template.Template
}

// KeywordArg is a named argument of a function call.
type KeywordArg struct {
	Name  string
	Value FieldSpec
}

// FunctionCall is a function invoked in YAML form, e.g. `fake: FirstName`.
type FunctionCall struct {
	specBase
	Name   string
	Args   []FieldSpec
	Kwargs []KeywordArg
}

// NestedObject is an object template used as a field value.
type NestedObject struct {
	specBase
	Decl *Declaration
}

// NewLiteral builds a literal spec at line.
func NewLiteral(value any, line int) *Literal {
	return &Literal{specBase: specBase{line: line}, Value: value}
}

// NewExpression builds an expression spec at line.
func NewExpression(t *template.Template, line int) *Expression {
	return &Expression{specBase: specBase{line: line}, Template: t}
}

// NewFunctionCall builds a call spec at line.
func NewFunctionCall(name string, line int, args []FieldSpec, kwargs []KeywordArg) *FunctionCall {
	return &FunctionCall{specBase: specBase{line: line}, Name: name, Args: args, Kwargs: kwargs}
}

// NewNestedObject builds a nested object spec at line.
func NewNestedObject(decl *Declaration, line int) *NestedObject {
	return &NestedObject{specBase: specBase{line: line}, Decl: decl}
}
