package terrain

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

// ============================================================
// Expression tree
// ============================================================

// Expr is a symbolic expression over the surface variables x and y.
// Expressions are immutable; Simplify and Diff return new trees.
type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Diff(varName string) Expr
	value(x, y float64) float64
}

// ============================================================
// Num — exact rational constant
// ============================================================

type Num struct{ val *big.Rat }

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("terrain: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

// numFromLiteral parses a decimal literal ("2", "0.5", "1e-3") exactly.
func numFromLiteral(s string) (*Num, bool) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return &Num{val: r}, true
}

func (n *Num) Simplify() Expr             { return n }
func (n *Num) Diff(string) Expr           { return N(0) }
func (n *Num) value(_, _ float64) float64 { f, _ := n.val.Float64(); return f }
func (n *Num) Float64() float64           { f, _ := n.val.Float64(); return f }
func (n *Num) IsZero() bool               { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool                { return n.val.Cmp(ratOne) == 0 }
func (n *Num) IsNegOne() bool             { return n.val.Cmp(ratNegOne) == 0 }
func (n *Num) IsInteger() bool            { return n.val.IsInt() }
func (n *Num) IsNegative() bool           { return n.val.Sign() < 0 }

var (
	ratOne    = new(big.Rat).SetInt64(1)
	ratNegOne = new(big.Rat).SetInt64(-1)
)

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (n *Num) LaTeX() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	sign := ""
	v := new(big.Rat).Set(n.val)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	return sign + "\\frac{" + v.Num().String() + "}{" + v.Denom().String() + "}"
}

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }
func numAbs(a *Num) *Num {
	r := new(big.Rat).Set(a.val)
	if r.Sign() < 0 {
		r.Neg(r)
	}
	return &Num{val: r}
}
func numRecip(a *Num) *Num {
	if a.IsZero() {
		panic("terrain: division by zero")
	}
	return &Num{val: new(big.Rat).Inv(a.val)}
}
func numDiv(a, b *Num) *Num { return numMul(a, numRecip(b)) }

// ============================================================
// Sym — surface variable
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym      { return &Sym{name: name} }
func (s *Sym) Simplify() Expr { return s }
func (s *Sym) String() string { return s.name }
func (s *Sym) LaTeX() string  { return s.name }
func (s *Sym) Name() string   { return s.name }

func (s *Sym) Diff(varName string) Expr {
	if s.name == varName {
		return N(1)
	}
	return N(0)
}

func (s *Sym) value(x, y float64) float64 {
	switch s.name {
	case "x":
		return x
	case "y":
		return y
	}
	return math.NaN()
}

// ============================================================
// Add — sum of terms
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

// SubOf is a - b.
func SubOf(a, b Expr) Expr { return AddOf(a, NegOf(b)) }

// NegOf is -e.
func NegOf(e Expr) Expr { return MulOf(N(-1), e) }

func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}
	numAccum := N(0)
	symCoeffs := map[string]*Num{}
	symOrder := []string{}
	others := []Expr{}
	for _, t := range flat {
		switch v := t.(type) {
		case *Num:
			numAccum = numAdd(numAccum, v)
		case *Sym:
			if _, seen := symCoeffs[v.name]; !seen {
				symOrder = append(symOrder, v.name)
				symCoeffs[v.name] = N(0)
			}
			symCoeffs[v.name] = numAdd(symCoeffs[v.name], N(1))
		default:
			others = append(others, t)
		}
	}
	result := []Expr{}
	sort.Strings(symOrder)
	for _, name := range symOrder {
		coeff := symCoeffs[name]
		if coeff.IsZero() {
			continue
		}
		if coeff.IsOne() {
			result = append(result, S(name))
		} else {
			result = append(result, MulOf(coeff, S(name)))
		}
	}
	result = append(result, others...)
	if !numAccum.IsZero() {
		result = append(result, numAccum)
	}
	if len(result) == 0 {
		return N(0)
	}
	if len(result) == 1 {
		return result[0]
	}
	return &Add{terms: result}
}

func (a *Add) String() string { return a.render(func(e Expr) string { return e.String() }) }
func (a *Add) LaTeX() string  { return a.render(func(e Expr) string { return e.LaTeX() }) }

// render joins terms with sign-aware separators so that a term with a
// negative leading coefficient reads "- t" rather than "+ -t".
func (a *Add) render(f func(Expr) string) string {
	if len(a.terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range a.terms {
		part := f(t)
		if i == 0 {
			b.WriteString(part)
			continue
		}
		if rest, ok := strings.CutPrefix(part, "-"); ok {
			b.WriteString(" - ")
			b.WriteString(rest)
		} else {
			b.WriteString(" + ")
			b.WriteString(part)
		}
	}
	return b.String()
}

func (a *Add) Diff(varName string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(varName)
	}
	return AddOf(dTerms...)
}

func (a *Add) value(x, y float64) float64 {
	acc := 0.0
	for _, t := range a.terms {
		acc += t.value(x, y)
	}
	return acc
}

func (a *Add) Terms() []Expr { return a.terms }

// ============================================================
// Mul — product of factors
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}
	coeff := N(1)
	others := []Expr{}
	for _, f := range flat {
		if v, ok := f.(*Num); ok {
			coeff = numMul(coeff, v)
		} else {
			others = append(others, f)
		}
	}
	if coeff.IsZero() {
		return N(0)
	}
	if len(others) == 0 {
		return coeff
	}

	// Precompute sort keys to avoid repeated String() calls in comparator.
	type keyed struct {
		e   Expr
		key string
	}
	ks := make([]keyed, len(others))
	for i, e := range others {
		ks[i] = keyed{e: e, key: e.String()}
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	sorted := make([]Expr, len(ks))
	for i := range ks {
		sorted[i] = ks[i].e
	}
	others = sorted

	if coeff.IsOne() {
		if len(others) == 1 {
			return others[0]
		}
		return &Mul{factors: others}
	}
	return &Mul{factors: append([]Expr{coeff}, others...)}
}

func (m *Mul) String() string { return m.render(func(e Expr) string { return e.String() }, "*") }
func (m *Mul) LaTeX() string  { return m.render(func(e Expr) string { return e.LaTeX() }, " ") }

func (m *Mul) render(f func(Expr) string, sep string) string {
	if len(m.factors) == 0 {
		return "1"
	}
	factors := m.factors
	prefix := ""
	if n, ok := factors[0].(*Num); ok && n.IsNegOne() && len(factors) > 1 {
		prefix = "-"
		factors = factors[1:]
	}
	parts := make([]string, len(factors))
	for i, fac := range factors {
		part := f(fac)
		_, isAdd := fac.(*Add)
		if isAdd || (i > 0 && strings.HasPrefix(part, "-")) {
			part = "(" + part + ")"
		}
		parts[i] = part
	}
	return prefix + strings.Join(parts, sep)
}

func (m *Mul) Diff(varName string) Expr {
	terms := make([]Expr, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(varName)
		others := make([]Expr, 0, len(m.factors)-1)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		if len(others) == 0 {
			terms[i] = dfi
		} else {
			terms[i] = MulOf(append([]Expr{dfi}, others...)...)
		}
	}
	return AddOf(terms...)
}

func (m *Mul) value(x, y float64) float64 {
	acc := 1.0
	for _, f := range m.factors {
		acc *= f.value(x, y)
	}
	return acc
}

func (m *Mul) Factors() []Expr { return m.factors }

// ============================================================
// Div — quotient
// ============================================================

type Div struct{ num, den Expr }

func DivOf(num, den Expr) Expr { return (&Div{num: num, den: den}).Simplify() }

func (d *Div) Simplify() Expr {
	num := d.num.Simplify()
	den := d.den.Simplify()
	if dn, ok := den.(*Num); ok {
		if dn.IsZero() {
			return &Div{num: num, den: den}
		}
		if nn, ok2 := num.(*Num); ok2 {
			return numDiv(nn, dn)
		}
		if dn.IsOne() {
			return num
		}
		return MulOf(numRecip(dn), num)
	}
	if nn, ok := num.(*Num); ok && nn.IsZero() {
		return N(0)
	}
	return &Div{num: num, den: den}
}

func (d *Div) String() string {
	numStr := d.num.String()
	if _, isAdd := d.num.(*Add); isAdd {
		numStr = "(" + numStr + ")"
	}
	denStr := d.den.String()
	switch d.den.(type) {
	case *Add, *Mul, *Div, *Pow:
		denStr = "(" + denStr + ")"
	}
	return numStr + "/" + denStr
}

func (d *Div) LaTeX() string {
	return "\\frac{" + d.num.LaTeX() + "}{" + d.den.LaTeX() + "}"
}

// Diff applies the quotient rule (u'v - uv')/v^2.
func (d *Div) Diff(varName string) Expr {
	du := d.num.Diff(varName)
	dv := d.den.Diff(varName)
	return DivOf(
		SubOf(MulOf(du, d.den), MulOf(d.num, dv)),
		PowOf(d.den, N(2)),
	)
}

func (d *Div) value(x, y float64) float64 {
	return d.num.value(x, y) / d.den.value(x, y)
}

func (d *Div) Numerator() Expr   { return d.num }
func (d *Div) Denominator() Expr { return d.den }

// ============================================================
// Pow — exponentiation
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	if en, ok := exp.(*Num); ok && en.IsZero() {
		return N(1)
	}
	if en, ok := exp.(*Num); ok && en.IsOne() {
		return base
	}

	// Handle 0^exp carefully.
	if bn, ok := base.(*Num); ok && bn.IsZero() {
		if en, ok2 := exp.(*Num); ok2 {
			// 0^0 is indeterminate; 0^negative is division by zero.
			if en.IsZero() || en.IsNegative() {
				return &Pow{base: base, exp: exp}
			}
		}
		return N(0)
	}

	if bn, ok := base.(*Num); ok && bn.IsOne() {
		return N(1)
	}
	if bn, ok := base.(*Num); ok {
		if en, ok2 := exp.(*Num); ok2 && en.IsInteger() {
			e := en.val.Num().Int64()
			if e >= 0 && e <= 20 {
				result := N(1)
				for i := int64(0); i < e; i++ {
					result = numMul(result, bn)
				}
				return result
			}
			if e < 0 && e >= -20 {
				result := N(1)
				for i := int64(0); i < -e; i++ {
					result = numMul(result, bn)
				}
				// base == 0 was handled above.
				return numRecip(result)
			}
		}
	}
	// Merge (u^a)^b into u^(a*b) only for integer a and b; with fractional
	// exponents the forms differ on negative bases ((x^2)^(1/2) is |x|,
	// not x), so those stay as written.
	if inner, ok := base.(*Pow); ok {
		if in, ok2 := inner.exp.(*Num); ok2 && in.IsInteger() {
			if en, ok3 := exp.(*Num); ok3 && en.IsInteger() {
				return PowOf(inner.base, numMul(in, en))
			}
		}
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) String() string {
	baseStr := p.base.String()
	switch b := p.base.(type) {
	case *Add, *Mul, *Div, *Pow:
		baseStr = "(" + baseStr + ")"
	case *Num:
		if b.IsNegative() || !b.IsInteger() {
			baseStr = "(" + baseStr + ")"
		}
	}
	expStr := p.exp.String()
	if !isPlainExponent(p.exp) {
		expStr = "(" + expStr + ")"
	}
	return baseStr + "^" + expStr
}

func (p *Pow) LaTeX() string {
	baseStr := p.base.LaTeX()
	switch b := p.base.(type) {
	case *Add, *Mul, *Div, *Pow:
		baseStr = "\\left(" + baseStr + "\\right)"
	case *Num:
		if b.IsNegative() || !b.IsInteger() {
			baseStr = "\\left(" + baseStr + "\\right)"
		}
	}
	return baseStr + "^{" + p.exp.LaTeX() + "}"
}

// isPlainExponent reports whether an exponent renders unambiguously
// without parentheses: a non-negative integer or a bare variable.
func isPlainExponent(e Expr) bool {
	switch v := e.(type) {
	case *Num:
		return v.IsInteger() && !v.IsNegative()
	case *Sym:
		return true
	}
	return false
}

func (p *Pow) Diff(varName string) Expr {
	du := p.base.Diff(varName)
	dv := p.exp.Diff(varName)
	if _, expIsNum := p.exp.(*Num); expIsNum {
		// Power rule: v*u^(v-1)*u'.
		return MulOf(p.exp, PowOf(p.base, AddOf(p.exp, N(-1))), du)
	}
	if _, baseIsNum := p.base.(*Num); baseIsNum {
		// a^v: a^v * ln(a) * v'.
		return MulOf(PowOf(p.base, p.exp), LnOf(p.base), dv)
	}
	// General case: u^v * (v'*ln(u) + v*u'/u).
	return MulOf(
		PowOf(p.base, p.exp),
		AddOf(MulOf(dv, LnOf(p.base)), DivOf(MulOf(p.exp, du), p.base)),
	)
}

func (p *Pow) value(x, y float64) float64 {
	return math.Pow(p.base.value(x, y), p.exp.value(x, y))
}

func (p *Pow) Base() Expr     { return p.base }
func (p *Pow) Exponent() Expr { return p.exp }

// ============================================================
// Func — named function applications
// ============================================================

type Func struct {
	name string
	arg  Expr
}

func funcOf(name string, arg Expr) *Func { return &Func{name: name, arg: arg} }

func SinOf(arg Expr) Expr  { return funcOf("sin", arg).Simplify() }
func CosOf(arg Expr) Expr  { return funcOf("cos", arg).Simplify() }
func TanOf(arg Expr) Expr  { return funcOf("tan", arg).Simplify() }
func AsinOf(arg Expr) Expr { return funcOf("asin", arg).Simplify() }
func AcosOf(arg Expr) Expr { return funcOf("acos", arg).Simplify() }
func AtanOf(arg Expr) Expr { return funcOf("atan", arg).Simplify() }
func SinhOf(arg Expr) Expr { return funcOf("sinh", arg).Simplify() }
func CoshOf(arg Expr) Expr { return funcOf("cosh", arg).Simplify() }
func TanhOf(arg Expr) Expr { return funcOf("tanh", arg).Simplify() }
func ExpOf(arg Expr) Expr  { return funcOf("exp", arg).Simplify() }
func LnOf(arg Expr) Expr   { return funcOf("ln", arg).Simplify() }
func SqrtOf(arg Expr) Expr { return funcOf("sqrt", arg).Simplify() }
func AbsOf(arg Expr) Expr  { return funcOf("abs", arg).Simplify() }

// Simplify folds only exact identities. Transcendental folding of numeric
// arguments would turn clean coefficients into unbounded rationals.
func (f *Func) Simplify() Expr {
	arg := f.arg.Simplify()
	if n, ok := arg.(*Num); ok {
		switch f.name {
		case "sin", "tan", "asin", "atan", "sinh", "tanh", "sqrt":
			if n.IsZero() {
				return N(0)
			}
		case "cos", "cosh", "exp":
			if n.IsZero() {
				return N(1)
			}
		case "ln":
			if n.IsOne() {
				return N(0)
			}
		case "abs":
			return numAbs(n)
		}
		if f.name == "sqrt" && n.IsOne() {
			return N(1)
		}
	}
	return &Func{name: f.name, arg: arg}
}

func (f *Func) String() string { return f.name + "(" + f.arg.String() + ")" }

func (f *Func) LaTeX() string {
	switch f.name {
	case "sin", "cos", "tan", "exp", "ln", "sinh", "cosh", "tanh":
		return "\\" + f.name + "\\left(" + f.arg.LaTeX() + "\\right)"
	case "asin":
		return "\\arcsin\\left(" + f.arg.LaTeX() + "\\right)"
	case "acos":
		return "\\arccos\\left(" + f.arg.LaTeX() + "\\right)"
	case "atan":
		return "\\arctan\\left(" + f.arg.LaTeX() + "\\right)"
	case "sqrt":
		return "\\sqrt{" + f.arg.LaTeX() + "}"
	case "abs":
		return "\\left|" + f.arg.LaTeX() + "\\right|"
	}
	return "\\operatorname{" + f.name + "}\\left(" + f.arg.LaTeX() + "\\right)"
}

func (f *Func) Diff(varName string) Expr {
	du := f.arg.Diff(varName)
	var outer Expr
	switch f.name {
	case "sin":
		outer = CosOf(f.arg)
	case "cos":
		outer = NegOf(SinOf(f.arg))
	case "tan":
		outer = AddOf(N(1), PowOf(TanOf(f.arg), N(2)))
	case "asin":
		return DivOf(du, SqrtOf(SubOf(N(1), PowOf(f.arg, N(2)))))
	case "acos":
		return NegOf(DivOf(du, SqrtOf(SubOf(N(1), PowOf(f.arg, N(2))))))
	case "atan":
		return DivOf(du, AddOf(N(1), PowOf(f.arg, N(2))))
	case "sinh":
		outer = CoshOf(f.arg)
	case "cosh":
		outer = SinhOf(f.arg)
	case "tanh":
		outer = SubOf(N(1), PowOf(TanhOf(f.arg), N(2)))
	case "exp":
		outer = ExpOf(f.arg)
	case "ln":
		return DivOf(du, f.arg)
	case "sqrt":
		return DivOf(du, MulOf(N(2), SqrtOf(f.arg)))
	case "abs":
		// d|u| = u/|u| * u'; undefined at u == 0, which surfaces as
		// a NaN during evaluation.
		return MulOf(DivOf(f.arg, AbsOf(f.arg)), du)
	default:
		panic("terrain: no derivative rule for " + f.name)
	}
	return MulOf(outer, du)
}

func (f *Func) value(x, y float64) float64 {
	v := f.arg.value(x, y)
	switch f.name {
	case "sin":
		return math.Sin(v)
	case "cos":
		return math.Cos(v)
	case "tan":
		return math.Tan(v)
	case "asin":
		return math.Asin(v)
	case "acos":
		return math.Acos(v)
	case "atan":
		return math.Atan(v)
	case "sinh":
		return math.Sinh(v)
	case "cosh":
		return math.Cosh(v)
	case "tanh":
		return math.Tanh(v)
	case "exp":
		return math.Exp(v)
	case "ln":
		return math.Log(v)
	case "sqrt":
		return math.Sqrt(v)
	case "abs":
		return math.Abs(v)
	}
	return math.NaN()
}

func (f *Func) FuncName() string { return f.name }
func (f *Func) Arg() Expr        { return f.arg }

// ============================================================
// Package-level helpers
// ============================================================

func Simplify(e Expr) Expr { return e.Simplify() }
func String(e Expr) string { return e.String() }
func LaTeX(e Expr) string  { return e.LaTeX() }

// Diff differentiates expr with respect to varName ("x" or "y").
func Diff(expr Expr, varName string) Expr {
	return expr.Diff(varName).Simplify()
}

// FreeSymbols returns the set of variable names appearing in e.
func FreeSymbols(e Expr) map[string]struct{} {
	out := map[string]struct{}{}
	collectSymbols(e, out)
	return out
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Div:
		collectSymbols(v.num, out)
		collectSymbols(v.den, out)
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Func:
		collectSymbols(v.arg, out)
	}
}
