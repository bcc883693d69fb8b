package condition

import (
	"fmt"
	"strings"

	"github.com/aretw0/seltree/pkg/domain"
)

// Resolver maps identifiers to declared variable ids.
type Resolver interface {
	Lookup(name string) (domain.VariableID, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (domain.VariableID, bool)

func (f ResolverFunc) Lookup(name string) (domain.VariableID, bool) { return f(name) }

// Error describes why an expression failed to compile. It unwraps to
// domain.ErrMalformedConditionSyntax or domain.ErrUnknownVariableInCondition.
type Error struct {
	Err    error
	Expr   string
	Offset int
	// Ident is set for unknown variables.
	Ident string
	Msg   string
}

func (e *Error) Error() string {
	if e.Ident != "" {
		return fmt.Sprintf("%v: %q at offset %d in %q", e.Err, e.Ident, e.Offset, e.Expr)
	}
	return fmt.Sprintf("%v: %s at offset %d in %q", e.Err, e.Msg, e.Offset, e.Expr)
}

func (e *Error) Unwrap() error { return e.Err }

// Compile parses expr and emits a Program in post-order, operands before the
// op that uses them. A blank expression compiles to the empty program.
func Compile(expr string, vars Resolver) (Program, error) {
	if strings.TrimSpace(expr) == "" {
		return Program{}, nil
	}

	p := &parser{lex: lexer{src: expr}, vars: vars}
	p.advance()
	root, err := p.logical()
	if err != nil {
		return Program{}, err
	}
	if p.tok.kind != tokEOF {
		return Program{}, p.syntax(p.tok.pos, "unexpected %s", p.tok)
	}
	return Program{ops: p.ops, root: root}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level fixtures.
func MustCompile(expr string, vars Resolver) Program {
	prog, err := Compile(expr, vars)
	if err != nil {
		panic(err)
	}
	return prog
}

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokFalse
	tokTrue
	tokNot
	tokAnd
	tokOr
	tokXor
	tokEqual
	tokNotEqual
	tokLParen
	tokRParen
	tokInvalid
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

type lexer struct {
	src string
	pos int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *lexer) next() token {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
			continue
		}
		break
	}
	start := l.pos
	if start >= len(l.src) {
		return token{kind: tokEOF, pos: start}
	}

	c := l.src[start]
	single := func(k tokenKind) token {
		l.pos++
		return token{kind: k, text: l.src[start:l.pos], pos: start}
	}

	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}
	case isDigit(c):
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		switch text {
		case "0":
			return token{kind: tokFalse, text: text, pos: start}
		case "1":
			return token{kind: tokTrue, text: text, pos: start}
		}
		return token{kind: tokInvalid, text: text, pos: start}
	case c == '!':
		if start+1 < len(l.src) && l.src[start+1] == '=' {
			l.pos += 2
			return token{kind: tokNotEqual, text: "!=", pos: start}
		}
		return single(tokNot)
	case c == '=':
		if start+1 < len(l.src) && l.src[start+1] == '=' {
			l.pos += 2
			return token{kind: tokEqual, text: "==", pos: start}
		}
		return single(tokInvalid)
	case c == '&':
		return single(tokAnd)
	case c == '|':
		return single(tokOr)
	case c == '^':
		return single(tokXor)
	case c == '(':
		return single(tokLParen)
	case c == ')':
		return single(tokRParen)
	}
	return single(tokInvalid)
}

type parser struct {
	lex  lexer
	tok  token
	vars Resolver
	ops  []Op
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) emit(o Op) int {
	p.ops = append(p.ops, o)
	return len(p.ops) - 1
}

func (p *parser) syntax(pos int, format string, args ...any) error {
	return &Error{
		Err:    domain.ErrMalformedConditionSyntax,
		Expr:   p.lex.src,
		Offset: pos,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (p *parser) logical() (int, error) {
	left, err := p.and()
	if err != nil {
		return 0, err
	}
	for p.tok.kind == tokOr || p.tok.kind == tokXor {
		kind := p.tok.kind
		p.advance()
		right, err := p.and()
		if err != nil {
			return 0, err
		}
		if kind == tokOr {
			left = p.emit(Or{left, right})
		} else {
			left = p.emit(Xor{left, right})
		}
	}
	return left, nil
}

func (p *parser) and() (int, error) {
	left, err := p.comparison()
	if err != nil {
		return 0, err
	}
	for p.tok.kind == tokAnd {
		p.advance()
		right, err := p.comparison()
		if err != nil {
			return 0, err
		}
		left = p.emit(And{left, right})
	}
	return left, nil
}

func (p *parser) comparison() (int, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	kind := p.tok.kind
	if kind != tokEqual && kind != tokNotEqual {
		return left, nil
	}
	p.advance()
	right, err := p.unary()
	if err != nil {
		return 0, err
	}
	if p.tok.kind == tokEqual || p.tok.kind == tokNotEqual {
		return 0, p.syntax(p.tok.pos, "chained comparison, use parentheses")
	}
	if kind == tokEqual {
		return p.emit(Equal{left, right}), nil
	}
	return p.emit(NotEqual{left, right}), nil
}

func (p *parser) unary() (int, error) {
	if p.tok.kind == tokNot {
		p.advance()
		operand, err := p.unary()
		if err != nil {
			return 0, err
		}
		return p.emit(Not{operand}), nil
	}
	return p.value()
}

func (p *parser) value() (int, error) {
	tok := p.tok
	switch tok.kind {
	case tokIdent:
		id, ok := p.lookup(tok.text)
		if !ok {
			return 0, &Error{
				Err:    domain.ErrUnknownVariableInCondition,
				Expr:   p.lex.src,
				Offset: tok.pos,
				Ident:  tok.text,
			}
		}
		p.advance()
		return p.emit(Variable{id}), nil
	case tokFalse, tokTrue:
		p.advance()
		return p.emit(Constant{tok.kind == tokTrue}), nil
	case tokLParen:
		p.advance()
		inner, err := p.logical()
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokRParen {
			return 0, p.syntax(p.tok.pos, "expected ')' to close '(' at offset %d, got %s", tok.pos, p.tok)
		}
		p.advance()
		return inner, nil
	case tokEOF:
		return 0, p.syntax(tok.pos, "expected operand, got end of expression")
	}
	return 0, p.syntax(tok.pos, "expected operand, got %s", tok)
}

func (p *parser) lookup(name string) (domain.VariableID, bool) {
	if p.vars == nil {
		return 0, false
	}
	return p.vars.Lookup(name)
}
