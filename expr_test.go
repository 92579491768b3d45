package terrain_test

import (
	"testing"

	"github.com/terrainlab/terrain"
)

// ============================================================
// Rendering
// ============================================================

func TestNum_Integer(t *testing.T) {
	n := terrain.N(42)
	if n.String() != "42" {
		t.Errorf("want 42, got %s", n.String())
	}
}

func TestNum_Rational(t *testing.T) {
	n := terrain.F(1, 3)
	if n.String() != "1/3" {
		t.Errorf("want 1/3, got %s", n.String())
	}
}

func TestNum_LaTeX_Rational(t *testing.T) {
	n := terrain.F(2, 5)
	if n.LaTeX() != `\frac{2}{5}` {
		t.Errorf("want \\frac{2}{5}, got %s", n.LaTeX())
	}
}

func TestSubtraction_RendersWithMinus(t *testing.T) {
	x := terrain.S("x")
	e := terrain.SubOf(terrain.N(100), terrain.PowOf(x, terrain.N(2)))
	if got := e.String(); got != "-x^2 + 100" {
		t.Errorf("want -x^2 + 100, got %s", got)
	}
}

func TestSqrt_LaTeX(t *testing.T) {
	e := terrain.SqrtOf(terrain.S("x"))
	if got := e.LaTeX(); got != `\sqrt{x}` {
		t.Errorf("want \\sqrt{x}, got %s", got)
	}
}

func TestDiv_Rendering(t *testing.T) {
	e := terrain.DivOf(terrain.N(1), terrain.S("x"))
	if got := e.String(); got != "1/x" {
		t.Errorf("want 1/x, got %s", got)
	}
	if got := e.LaTeX(); got != `\frac{1}{x}` {
		t.Errorf("want \\frac{1}{x}, got %s", got)
	}
}

// ============================================================
// Simplification
// ============================================================

func TestAdd_CombinesLikeTerms(t *testing.T) {
	x := terrain.S("x")
	e := terrain.AddOf(x, x, x, terrain.N(2))
	if got := terrain.String(e); got != "3*x + 2" {
		t.Errorf("want 3*x + 2, got %s", got)
	}
}

func TestMul_ZeroAnnihilates(t *testing.T) {
	e := terrain.MulOf(terrain.N(0), terrain.SinOf(terrain.S("x")))
	if got := terrain.String(e); got != "0" {
		t.Errorf("want 0, got %s", got)
	}
}

func TestPow_FoldsIntegerPowers(t *testing.T) {
	e := terrain.PowOf(terrain.N(2), terrain.N(10))
	if got := terrain.String(e); got != "1024" {
		t.Errorf("want 1024, got %s", got)
	}
}

func TestPow_NestedIntegerExponentsMerge(t *testing.T) {
	x := terrain.S("x")
	e := terrain.PowOf(terrain.PowOf(x, terrain.N(2)), terrain.N(3))
	if got := terrain.String(e); got != "x^6" {
		t.Errorf("want x^6, got %s", got)
	}
}

func TestPow_FractionalExponentKeepsNestedPower(t *testing.T) {
	x := terrain.S("x")
	e := terrain.PowOf(terrain.PowOf(x, terrain.N(2)), terrain.F(1, 2))
	if got := terrain.String(e); got != "(x^2)^(1/2)" {
		t.Errorf("(x^2)^(1/2) must not collapse to x, got %s", got)
	}
	v, err := terrain.NewEvaluator(e).At(-3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Collapsing to x would give -3 here.
	if v != 3 {
		t.Errorf("((-3)^2)^(1/2) should be 3, got %g", v)
	}
}

func TestFunc_ExactIdentities(t *testing.T) {
	cases := []struct {
		in   terrain.Expr
		want string
	}{
		{terrain.SinOf(terrain.N(0)), "0"},
		{terrain.CosOf(terrain.N(0)), "1"},
		{terrain.ExpOf(terrain.N(0)), "1"},
		{terrain.LnOf(terrain.N(1)), "0"},
		{terrain.AbsOf(terrain.N(-3)), "3"},
	}
	for _, c := range cases {
		if got := terrain.String(c.in); got != c.want {
			t.Errorf("want %s, got %s", c.want, got)
		}
	}
}

func TestFunc_DoesNotFoldTranscendentals(t *testing.T) {
	e := terrain.SinOf(terrain.N(1))
	if got := terrain.String(e); got != "sin(1)" {
		t.Errorf("sin(1) should stay symbolic, got %s", got)
	}
}

// ============================================================
// Differentiation
// ============================================================

func TestDiff_Constant(t *testing.T) {
	d := terrain.Diff(terrain.N(5), "x")
	if got := terrain.String(d); got != "0" {
		t.Errorf("d/dx(5) should be 0, got %s", got)
	}
}

func TestDiff_Variable(t *testing.T) {
	d := terrain.Diff(terrain.S("x"), "x")
	if got := terrain.String(d); got != "1" {
		t.Errorf("d/dx(x) should be 1, got %s", got)
	}
	d = terrain.Diff(terrain.S("x"), "y")
	if got := terrain.String(d); got != "0" {
		t.Errorf("d/dy(x) should be 0, got %s", got)
	}
}

func TestDiff_PowerRule(t *testing.T) {
	x := terrain.S("x")
	d := terrain.Diff(terrain.PowOf(x, terrain.N(3)), "x")
	if got := terrain.String(d); got != "3*x^2" {
		t.Errorf("d/dx(x^3) should be 3*x^2, got %s", got)
	}
}

func TestDiff_FractionalPower(t *testing.T) {
	x := terrain.S("x")
	d := terrain.Diff(terrain.PowOf(x, terrain.F(1, 2)), "x")
	if got := terrain.String(d); got != "1/2*x^(-1/2)" {
		t.Errorf("d/dx(x^(1/2)) should be 1/2*x^(-1/2), got %s", got)
	}
}

func TestDiff_SymbolicExponent(t *testing.T) {
	x := terrain.S("x")
	y := terrain.S("y")
	d := terrain.Diff(terrain.PowOf(x, y), "x")
	if got := terrain.String(d); got != "x^y*y/x" {
		t.Errorf("d/dx(x^y) should be x^y*y/x, got %s", got)
	}
	d = terrain.Diff(terrain.PowOf(x, y), "y")
	if got := terrain.String(d); got != "ln(x)*x^y" {
		t.Errorf("d/dy(x^y) should be ln(x)*x^y, got %s", got)
	}
}

func TestDiff_ChainRule_Sin(t *testing.T) {
	x := terrain.S("x")
	inner := terrain.MulOf(terrain.N(2), x)
	d := terrain.Diff(terrain.SinOf(inner), "x")
	if got := terrain.String(d); got != "2*cos(2*x)" {
		t.Errorf("d/dx(sin(2x)) should be 2*cos(2*x), got %s", got)
	}
}

func TestDiff_Ln(t *testing.T) {
	d := terrain.Diff(terrain.LnOf(terrain.S("x")), "x")
	if got := terrain.String(d); got != "1/x" {
		t.Errorf("d/dx(ln(x)) should be 1/x, got %s", got)
	}
}

func TestDiff_Exp(t *testing.T) {
	d := terrain.Diff(terrain.ExpOf(terrain.S("x")), "x")
	if got := terrain.String(d); got != "exp(x)" {
		t.Errorf("d/dx(exp(x)) should be exp(x), got %s", got)
	}
}

func TestDiff_Sqrt(t *testing.T) {
	d := terrain.Diff(terrain.SqrtOf(terrain.S("x")), "x")
	if got := terrain.String(d); got != "1/(2*sqrt(x))" {
		t.Errorf("d/dx(sqrt(x)) should be 1/(2*sqrt(x)), got %s", got)
	}
}

func TestFreeSymbols(t *testing.T) {
	e := terrain.AddOf(terrain.S("x"), terrain.SinOf(terrain.S("y")))
	syms := terrain.FreeSymbols(e)
	if len(syms) != 2 {
		t.Fatalf("want 2 free symbols, got %d", len(syms))
	}
	if _, ok := syms["x"]; !ok {
		t.Error("x should be free")
	}
	if _, ok := syms["y"]; !ok {
		t.Error("y should be free")
	}
}
