package template

import (
	"strings"
	"unicode/utf8"
)

const (
	exprOpen    = "${{"
	exprClose   = "}}"
	escapedOpen = "$" + exprOpen
)

// TokenType is the kind of a template segment.
type TokenType int

const (
	TokenText TokenType = iota // literal text, escapes already resolved
	TokenExpr                  // source between ${{ and }}, trimmed
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenExpr:
		return "EXPR"
	case TokenEOF:
		return "EOF"
	}
	return "UNKNOWN"
}

// Token is one segment of a template.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// cursor is a byte offset plus the line and column it corresponds to.
type cursor struct {
	off  int
	line int
	col  int
}

// Lexer splits a recipe string into text and expression segments.
type Lexer struct {
	src  string
	file string
	cur  cursor
}

// NewLexer returns a lexer over input. line is the recipe line the input
// starts on, so token positions point into the recipe.
func NewLexer(input, file string, line int) *Lexer {
	return &Lexer{src: input, file: file, cur: cursor{line: max(line, 1), col: 1}}
}

// Tokenize returns every segment followed by a TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var out []Token
	for !l.done() {
		var (
			tok Token
			err error
		)
		if l.at(exprOpen) {
			tok, err = l.expr()
		} else {
			tok = l.text()
		}
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return append(out, Token{Type: TokenEOF, Pos: l.pos(l.cur)}), nil
}

func (l *Lexer) done() bool { return l.cur.off >= len(l.src) }

func (l *Lexer) at(s string) bool { return strings.HasPrefix(l.src[l.cur.off:], s) }

func (l *Lexer) pos(c cursor) Position {
	return Position{File: l.file, Line: c.line, Column: c.col}
}

// text reads up to the next unescaped opener. $${{ yields a literal ${{.
func (l *Lexer) text() Token {
	start := l.cur
	var sb strings.Builder
	for !l.done() && !l.at(exprOpen) {
		if l.at(escapedOpen) {
			sb.WriteString(exprOpen)
			l.step(len(escapedOpen))
			continue
		}
		sb.WriteRune(l.next())
	}
	return Token{Type: TokenText, Value: sb.String(), Pos: l.pos(start)}
}

// expr reads a ${{ ... }} segment. A }} inside a string literal or a
// brace-balanced dict does not close the expression.
func (l *Lexer) expr() (Token, error) {
	opener := l.cur
	l.step(len(exprOpen))
	for !l.done() && isSpace(l.peek()) {
		l.next()
	}

	body := l.cur
	depth := 0
	var quote rune
	for !l.done() {
		if quote == 0 && depth == 0 && l.at(exprClose) {
			src := strings.TrimRight(l.src[body.off:l.cur.off], " \t\r\n")
			l.step(len(exprClose))
			return Token{Type: TokenExpr, Value: src, Pos: l.pos(body)}, nil
		}
		r := l.next()
		switch {
		case quote != 0 && r == '\\':
			l.next()
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		}
	}
	return Token{}, NewLexError(l.pos(opener), "unclosed expression: missing '}}'")
}

func (l *Lexer) peek() rune {
	r, _ := utf8.DecodeRuneInString(l.src[l.cur.off:])
	return r
}

// next consumes one rune and returns it; at the end of input it returns 0.
func (l *Lexer) next() rune {
	if l.done() {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.cur.off:])
	l.cur.off += size
	if r == '\n' {
		l.cur.line++
		l.cur.col = 1
	} else {
		l.cur.col++
	}
	return r
}

// step consumes n bytes of a single-line ASCII delimiter.
func (l *Lexer) step(n int) {
	l.cur.off += n
	l.cur.col += n
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
