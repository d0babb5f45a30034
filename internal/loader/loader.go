package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapfake/internal/template"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"gopkg.in/yaml.v3"
)

// yamlLinePattern extracts the line number yaml.v3 puts into its messages.
var yamlLinePattern = regexp.MustCompile(`^yaml: line (\d+): `)

// Load parses and validates a recipe.
func Load(r io.Reader, file string) (*Document, error) {
	doc, err := Parse(r, file)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse reads a recipe into a Document without validating declaration keys.
// Expression syntax is checked here so malformed templates fail before any
// row is generated.
func Parse(r io.Reader, file string) (*Document, error) {
	if file == "" {
		file = core.DefaultFilename
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, yamlError(file, err)
	}

	doc := &Document{File: file}
	if len(root.Content) == 0 {
		return doc, nil
	}

	top := resolve(root.Content[0])
	if top.Kind != yaml.SequenceNode {
		return nil, core.NewDataGenError(file, top.Line, "recipe must be a list of declarations")
	}

	b := &builder{file: file}
	for _, item := range top.Content {
		decl, err := b.declaration(item)
		if err != nil {
			return nil, err
		}
		doc.Decls = append(doc.Decls, decl)
	}
	return doc, nil
}

// yamlError converts a yaml.v3 error into a located syntax error.
func yamlError(file string, err error) error {
	msg := strings.TrimSpace(err.Error())
	line := yamlErrorLine(msg)
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		msg = strings.TrimPrefix(msg, m[0])
	} else {
		msg = strings.TrimPrefix(msg, "yaml: ")
	}
	return core.WrapError(core.KindSyntax, file, max(line, 1), err, "invalid YAML: %s", msg)
}

// parserProblems are the yaml.v3 parser (not scanner) messages. The parser
// reports the 0-based line of its context mark; scanner messages are
// already 1-based.
var parserProblems = []string{
	"did not find expected key",
	"did not find expected node content",
	"did not find expected '-' indicator",
	"did not find expected ',' or",
	"did not find expected <document start>",
	"found duplicate %",
	"found incompatible YAML document",
	"found undefined tag handle",
}

// yamlErrorLine returns the 1-based line a yaml.v3 error message points at,
// or 0 when the message carries none.
func yamlErrorLine(msg string) int {
	m := yamlLinePattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	problem := msg[len(m[0]):]
	for _, p := range parserProblems {
		if strings.HasPrefix(problem, p) {
			return n + 1
		}
	}
	return n
}

// resolve follows alias nodes to their anchors.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

type builder struct {
	file string
}

func (b *builder) errorf(line int, format string, args ...any) error {
	return core.NewDataGenError(b.file, line, format, args...)
}

// declaration builds one `- object:` / `- macro:` / `- var:` item.
func (b *builder) declaration(node *yaml.Node) (*Declaration, error) {
	n := resolve(node)
	if n.Kind != yaml.MappingNode {
		return nil, b.errorf(n.Line, "declaration must be a mapping with an `object`, `macro` or `var` key")
	}

	d := &Declaration{Line: n.Line}
	var objectName, macroName, varName string

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		d.Keys = append(d.Keys, Key{Name: key.Value, Line: key.Line})

		var err error
		switch key.Value {
		case "object":
			objectName, err = b.name(key, val)
		case "macro":
			macroName, err = b.name(key, val)
		case "var":
			varName, err = b.name(key, val)
		case "nickname":
			d.Nickname, err = b.name(key, val)
		case "count":
			d.CountLine = val.Line
			d.Count, err = b.arg(val)
		case "value":
			d.Value, err = b.arg(val)
		case "include":
			d.IncludeLine = key.Line
			d.Include, err = b.include(key, val)
		case "fields":
			d.Fields, err = b.fields(key, val)
		case "friends":
			d.Friends, err = b.friends(key, val)
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case d.HasKey("object"):
		d.Kind, d.Name = DeclObject, objectName
	case d.HasKey("macro"):
		d.Kind, d.Name = DeclMacro, macroName
	case d.HasKey("var"):
		d.Kind, d.Name = DeclVar, varName
	}
	return d, nil
}

func (b *builder) name(key, val *yaml.Node) (string, error) {
	if val.Kind != yaml.ScalarNode || val.ShortTag() == "!!null" {
		return "", b.errorf(key.Line, "`%s` must be a name", key.Value)
	}
	return val.Value, nil
}

// include accepts a macro name, or a list holding exactly one name.
func (b *builder) include(key, val *yaml.Node) (string, error) {
	if val.Kind == yaml.SequenceNode {
		if len(val.Content) != 1 {
			return "", b.errorf(key.Line, "`include` names exactly one macro, got %d", len(val.Content))
		}
		return b.name(key, resolve(val.Content[0]))
	}
	return b.name(key, val)
}

func (b *builder) fields(key, val *yaml.Node) ([]*Field, error) {
	if val.ShortTag() == "!!null" {
		return nil, nil
	}
	if val.Kind != yaml.MappingNode {
		return nil, b.errorf(key.Line, "`fields` must be a mapping of field names to values")
	}

	fields := make([]*Field, 0, len(val.Content)/2)
	for i := 0; i+1 < len(val.Content); i += 2 {
		fkey, fval := val.Content[i], resolve(val.Content[i+1])
		spec, err := b.fieldValue(fkey, fval)
		if err != nil {
			return nil, err
		}
		fields = append(fields, &Field{Name: fkey.Value, Line: fkey.Line, Spec: spec})
	}
	return fields, nil
}

func (b *builder) friends(key, val *yaml.Node) ([]*Declaration, error) {
	if val.ShortTag() == "!!null" {
		return nil, nil
	}
	if val.Kind != yaml.SequenceNode {
		return nil, b.errorf(key.Line, "`friends` must be a list of objects")
	}

	friends := make([]*Declaration, 0, len(val.Content))
	for _, item := range val.Content {
		decl, err := b.declaration(item)
		if err != nil {
			return nil, err
		}
		friends = append(friends, decl)
	}
	return friends, nil
}

// fieldValue builds the spec for one field. Calls and nested objects take
// the field key's line.
func (b *builder) fieldValue(key, val *yaml.Node) (FieldSpec, error) {
	switch val.Kind {
	case yaml.ScalarNode:
		return b.scalar(val)

	case yaml.MappingNode:
		if hasMapKey(val, "object") {
			decl, err := b.declaration(val)
			if err != nil {
				return nil, err
			}
			return NewNestedObject(decl, key.Line), nil
		}
		if len(val.Content) != 2 {
			return nil, b.errorf(key.Line, "field `%s`: a function call has exactly one function name, got %d keys", key.Value, len(val.Content)/2)
		}
		return b.call(val.Content[0], resolve(val.Content[1]), key.Line)

	default:
		return nil, b.errorf(key.Line, "field `%s`: lists are only allowed as function arguments", key.Value)
	}
}

// call builds a function call named by fn whose arguments come from val.
func (b *builder) call(fn, val *yaml.Node, line int) (*FunctionCall, error) {
	if fn.Kind != yaml.ScalarNode {
		return nil, b.errorf(line, "function name must be a string")
	}

	c := NewFunctionCall(fn.Value, line, nil, nil)
	switch val.Kind {
	case yaml.ScalarNode:
		if val.ShortTag() == "!!null" {
			return c, nil
		}
		arg, err := b.scalar(val)
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, arg)

	case yaml.SequenceNode:
		for _, item := range val.Content {
			arg, err := b.arg(resolve(item))
			if err != nil {
				return nil, err
			}
			c.Args = append(c.Args, arg)
		}

	case yaml.MappingNode:
		for i := 0; i+1 < len(val.Content); i += 2 {
			k, v := val.Content[i], resolve(val.Content[i+1])
			arg, err := b.arg(v)
			if err != nil {
				return nil, err
			}
			c.Kwargs = append(c.Kwargs, KeywordArg{Name: k.Value, Value: arg})
		}
	}
	return c, nil
}

// arg builds an argument value. Mappings inside arguments are nested calls
// located at their own line.
func (b *builder) arg(n *yaml.Node) (FieldSpec, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return b.scalar(n)
	case yaml.MappingNode:
		if hasMapKey(n, "object") {
			return nil, b.errorf(n.Line, "nested objects are not allowed in function arguments")
		}
		if len(n.Content) != 2 {
			return nil, b.errorf(n.Line, "a function call has exactly one function name, got %d keys", len(n.Content)/2)
		}
		return b.call(n.Content[0], resolve(n.Content[1]), n.Line)
	default:
		return nil, b.errorf(n.Line, "nested lists are not supported in function arguments")
	}
}

// scalar builds a literal or, for strings containing ${{, an expression.
func (b *builder) scalar(n *yaml.Node) (FieldSpec, error) {
	if n.ShortTag() == "!!str" && template.IsTemplate(n.Value) {
		line := n.Line
		// block scalar content starts below the | or > indicator
		if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			line++
		}
		tmpl, err := template.Parse(n.Value, b.file, line)
		if err != nil {
			return nil, templateError(b.file, err)
		}
		if err := tmpl.Check(); err != nil {
			return nil, templateError(b.file, err)
		}
		return NewExpression(tmpl, line), nil
	}

	// timestamps decode to strings through an interface
	if n.ShortTag() == "!!timestamp" {
		var ts time.Time
		if err := n.Decode(&ts); err != nil {
			return nil, b.errorf(n.Line, "invalid date %q: %v", n.Value, err)
		}
		return NewLiteral(ts, n.Line), nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, b.errorf(n.Line, "invalid value %q: %v", n.Value, err)
	}
	return NewLiteral(normalize(v), n.Line), nil
}

// templateError converts lexer and expression parse errors to syntax errors.
func templateError(file string, err error) error {
	var terr template.Error
	if errors.As(err, &terr) {
		return core.WrapError(core.KindSyntax, file, terr.Position().Line, err, "%s", terr.Message())
	}
	return core.WrapError(core.KindSyntax, file, 0, err, "%s", err.Error())
}

// normalize maps decoded YAML scalars onto the row value types.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return float64(val)
	default:
		return val
	}
}

func hasMapKey(n *yaml.Node, name string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == name {
			return true
		}
	}
	return false
}
