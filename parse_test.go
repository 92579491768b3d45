package terrain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/terrainlab/terrain"
)

func TestParse_Dome(t *testing.T) {
	e, err := terrain.Parse("100 - x^2 - y^2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := e.String(); got != "-x^2 - y^2 + 100" {
		t.Errorf("want -x^2 - y^2 + 100, got %s", got)
	}
}

func TestParse_DoubleStarExponent(t *testing.T) {
	a, err := terrain.Parse("x**2 + y**2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	b, err := terrain.Parse("x^2 + y^2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if a.String() != b.String() {
		t.Errorf("** and ^ should parse identically: %s vs %s", a.String(), b.String())
	}
}

func TestParse_Functions(t *testing.T) {
	for _, formula := range []string{
		"sin(x) + cos(y)",
		"tan(x*y)",
		"exp(-x^2 - y^2)",
		"log(x + 10)",
		"ln(x + 10)",
		"sqrt(x^2 + y^2)",
		"abs(x - y)",
		"atan(y/x)",
	} {
		if _, err := terrain.Parse(formula); err != nil {
			t.Errorf("Parse(%q) failed: %v", formula, err)
		}
	}
}

func TestParse_DecimalAndScientific(t *testing.T) {
	for _, formula := range []string{"0.5*x", "2.5", "1e3 - x", "2.5e-2*y"} {
		if _, err := terrain.Parse(formula); err != nil {
			t.Errorf("Parse(%q) failed: %v", formula, err)
		}
	}
}

func TestParse_UnaryMinusBindsLooserThanPower(t *testing.T) {
	e, err := terrain.Parse("-x^2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ev := terrain.NewEvaluator(e)
	v, err := ev.At(3, 0)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if v != -9 {
		t.Errorf("-x^2 at x=3 should be -9, got %g", v)
	}
}

func TestParse_SingleVariableIsValid(t *testing.T) {
	e, err := terrain.Parse("sin(x)")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	d := terrain.Diff(e, "y")
	if got := terrain.String(d); got != "0" {
		t.Errorf("∂/∂y sin(x) should be 0, got %s", got)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"x +* y",
		"x + ",
		"(x + y",
		"x + y)",
		"z + 1",
		"foo(x)",
		"x $ y",
		"2x",
		"x..2",
	}
	for _, formula := range cases {
		_, err := terrain.Parse(formula)
		if err == nil {
			t.Errorf("Parse(%q) should fail", formula)
			continue
		}
		var perr *terrain.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Parse(%q) should return *ParseError, got %T", formula, err)
		}
	}
}

func TestParse_UnknownVariableMessage(t *testing.T) {
	_, err := terrain.Parse("x + q")
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *terrain.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("want *ParseError, got %T", err)
	}
	if perr.Pos == 0 {
		t.Error("unknown variable error should carry a position")
	}
}

func TestParse_DepthLimit(t *testing.T) {
	deep := ""
	for i := 0; i < 200; i++ {
		deep += "("
	}
	deep += "x"
	for i := 0; i < 200; i++ {
		deep += ")"
	}
	if _, err := terrain.Parse(deep); err == nil {
		t.Error("deeply nested formula should be rejected")
	}
}

func TestParse_NodeLimit(t *testing.T) {
	// Many distinct terms that cannot be collected into fewer nodes.
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		if i > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "sin(%d*x)", i+1)
	}
	_, err := terrain.Parse(sb.String())
	if err == nil {
		t.Fatal("oversized formula should be rejected")
	}
	var perr *terrain.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("want *ParseError, got %T", err)
	}
}

func TestParse_FractionalExponentOfPower(t *testing.T) {
	e, err := terrain.Parse("(x^2)^0.5")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := e.String(); got != "(x^2)^(1/2)" {
		t.Errorf("(x^2)^0.5 must not collapse to x, got %s", got)
	}
	v, err := terrain.NewEvaluator(e).At(-3, 0)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if v != 3 {
		t.Errorf("((-3)^2)^0.5 should be 3, got %g", v)
	}
}

func TestParse_Presets(t *testing.T) {
	for _, p := range terrain.Presets {
		if _, err := terrain.Parse(p.Formula); err != nil {
			t.Errorf("preset %q formula %q should parse: %v", p.Name, p.Formula, err)
		}
	}
}
