package terrain

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError reports a formula that is not a valid expression in x and y.
type ParseError struct {
	Pos int // 1-based rune position, 0 when not tied to a location
	Msg string
}

func (e *ParseError) Error() string {
	if e.Pos <= 0 {
		return "invalid formula: " + e.Msg
	}
	return fmt.Sprintf("invalid formula: %s (position %d)", e.Msg, e.Pos)
}

// maxDepth bounds expression nesting and maxNodes bounds total tree size,
// so untrusted formulas cannot blow up parsing or differentiation.
const (
	maxDepth = 64
	maxNodes = 512
)

// functions is the allow-list of callable names. "log" is natural log.
var functions = map[string]func(Expr) Expr{
	"sin":  SinOf,
	"cos":  CosOf,
	"tan":  TanOf,
	"asin": AsinOf,
	"acos": AcosOf,
	"atan": AtanOf,
	"sinh": SinhOf,
	"cosh": CoshOf,
	"tanh": TanhOf,
	"exp":  ExpOf,
	"log":  LnOf,
	"ln":   LnOf,
	"sqrt": SqrtOf,
	"abs":  AbsOf,
}

// Parse compiles a formula string into a symbolic expression over x and y.
// It accepts arithmetic operators (+, -, *, /, unary -), exponentiation as
// ^ or **, parentheses, numeric literals, the variables x and y, and the
// allow-listed functions. Anything else is a *ParseError.
func Parse(formula string) (Expr, error) {
	if strings.TrimSpace(formula) == "" {
		return nil, &ParseError{Msg: "empty formula"}
	}
	toks, err := lex(formula)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	if nodeCount(expr) > maxNodes {
		return nil, &ParseError{Msg: "expression is too large"}
	}
	return expr.Simplify(), nil
}

func nodeCount(e Expr) int {
	switch v := e.(type) {
	case *Add:
		n := 1
		for _, t := range v.terms {
			n += nodeCount(t)
		}
		return n
	case *Mul:
		n := 1
		for _, f := range v.factors {
			n += nodeCount(f)
		}
		return n
	case *Div:
		return 1 + nodeCount(v.num) + nodeCount(v.den)
	case *Pow:
		return 1 + nodeCount(v.base) + nodeCount(v.exp)
	case *Func:
		return 1 + nodeCount(v.arg)
	}
	return 1
}

// ============================================================
// Lexer
// ============================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int // 1-based rune position in the formula
}

func lex(input string) ([]token, error) {
	runes := []rune(input)
	var toks []token
	i := 0
	for i < len(runes) {
		ch := runes[i]
		pos := i + 1
		switch {
		case unicode.IsSpace(ch):
			i++
		case unicode.IsDigit(ch) || ch == '.':
			start := i
			i = scanNumber(runes, i)
			text := string(runes[start:i])
			if text == "." {
				return nil, &ParseError{Pos: pos, Msg: "malformed number"}
			}
			toks = append(toks, token{kind: tokNumber, text: text, pos: pos})
		case unicode.IsLetter(ch):
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[start:i]), pos: pos})
		case ch == '+':
			toks = append(toks, token{kind: tokPlus, text: "+", pos: pos})
			i++
		case ch == '-':
			toks = append(toks, token{kind: tokMinus, text: "-", pos: pos})
			i++
		case ch == '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				toks = append(toks, token{kind: tokCaret, text: "**", pos: pos})
				i += 2
			} else {
				toks = append(toks, token{kind: tokStar, text: "*", pos: pos})
				i++
			}
		case ch == '/':
			toks = append(toks, token{kind: tokSlash, text: "/", pos: pos})
			i++
		case ch == '^':
			toks = append(toks, token{kind: tokCaret, text: "^", pos: pos})
			i++
		case ch == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: pos})
			i++
		case ch == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: pos})
			i++
		default:
			return nil, &ParseError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", string(ch))}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(runes) + 1})
	return toks, nil
}

// scanNumber consumes digits [ '.' digits ] [ ('e'|'E') ['+'|'-'] digits ]
// starting at i and returns the index past the literal.
func scanNumber(runes []rune, i int) int {
	for i < len(runes) && unicode.IsDigit(runes[i]) {
		i++
	}
	if i < len(runes) && runes[i] == '.' {
		i++
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			i++
		}
	}
	if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
		j := i + 1
		if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
			j++
		}
		if j < len(runes) && unicode.IsDigit(runes[j]) {
			i = j
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
		}
	}
	return i
}

// ============================================================
// Recursive-descent parser
// ============================================================

type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return &ParseError{Msg: "expression is nested too deeply"}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// parseSum handles '+' and '-' at the lowest precedence.
func (p *parser) parseSum() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.parseProduct()
			if err != nil {
				return nil, err
			}
			left = AddOf(left, right)
		case tokMinus:
			p.next()
			right, err := p.parseProduct()
			if err != nil {
				return nil, err
			}
			left = SubOf(left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) parseProduct() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokStar:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = MulOf(left, right)
		case tokSlash:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = DivOf(left, right)
		default:
			return left, nil
		}
	}
}

// parseUnary binds a leading minus looser than exponentiation,
// so -x^2 means -(x^2).
func (p *parser) parseUnary() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.peek().kind == tokMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NegOf(operand), nil
	}
	return p.parsePower()
}

// parsePower is right-associative: x^y^z is x^(y^z).
func (p *parser) parsePower() (Expr, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCaret {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return PowOf(base, exp), nil
}

func (p *parser) parseAtom() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	t := p.next()
	switch t.kind {
	case tokNumber:
		n, ok := numFromLiteral(t.text)
		if !ok {
			return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("malformed number %q", t.text)}
		}
		return n, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			build, ok := functions[t.text]
			if !ok {
				return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unknown function %q", t.text)}
			}
			p.next() // consume '('
			arg, err := p.parseSum()
			if err != nil {
				return nil, err
			}
			if tok := p.next(); tok.kind != tokRParen {
				return nil, &ParseError{Pos: tok.pos, Msg: "missing closing parenthesis"}
			}
			return build(arg), nil
		}
		if t.text == "x" || t.text == "y" {
			return S(t.text), nil
		}
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unknown variable %q (only x and y are defined)", t.text)}
	case tokLParen:
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.kind != tokRParen {
			return nil, &ParseError{Pos: tok.pos, Msg: "missing closing parenthesis"}
		}
		return inner, nil
	case tokEOF:
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected end of formula"}
	}
	return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
}
