package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EvalError reports a numeric evaluation that produced a non-finite or
// non-real result (division by zero, log of a non-positive number, sqrt of
// a negative number, overflow).
type EvalError struct {
	Expr string
	X, Y float64
	Msg  string
}

func (e *EvalError) Error() string {
	if e.Msg != "" {
		return "evaluation error: " + e.Msg
	}
	return fmt.Sprintf("evaluation error: %s is not a finite real number at (%g, %g)",
		e.Expr, e.X, e.Y)
}

// Domain is the rectangular sampling region for surface visualization.
// Both axes span [Min, Max] at Samples points each.
type Domain struct {
	Min, Max float64
	Samples  int
}

// DefaultDomain matches the visualization window of the analyzer:
// 100×100 samples over [-6, 6] on both axes.
var DefaultDomain = Domain{Min: -6, Max: 6, Samples: 100}

// Grid holds meshgrid-style coordinate matrices: X varies along columns,
// Y along rows, both of shape Samples×Samples.
type Grid struct {
	X, Y *mat.Dense
}

// Mesh materializes the domain's coordinate grid.
func (d Domain) Mesh() *Grid {
	n := d.Samples
	if n < 2 {
		n = 2
	}
	axis := floats.Span(make([]float64, n), d.Min, d.Max)
	X := mat.NewDense(n, n, nil)
	Y := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			X.Set(i, j, axis[j])
			Y.Set(i, j, axis[i])
		}
	}
	return &Grid{X: X, Y: Y}
}

// Evaluator is a compiled numeric form of a symbolic expression, usable on
// single points and on coordinate grids.
type Evaluator struct {
	expr Expr
}

func NewEvaluator(e Expr) *Evaluator { return &Evaluator{expr: e} }

// Expr returns the symbolic expression this evaluator was compiled from.
func (ev *Evaluator) Expr() Expr { return ev.expr }

// At evaluates the expression at a single point. A non-finite or non-real
// result is reported as *EvalError rather than coerced.
func (ev *Evaluator) At(x, y float64) (float64, error) {
	v := ev.expr.value(x, y)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &EvalError{Expr: ev.expr.String(), X: x, Y: y}
	}
	return v, nil
}

// OverGrid evaluates the expression element-wise over the grid's
// coordinates. The result always matches the grid shape: an expression
// constant in one or both variables broadcasts across the full grid.
// A non-finite value in any cell fails the whole evaluation.
func (ev *Evaluator) OverGrid(g *Grid) (*mat.Dense, error) {
	rows, cols := g.X.Dims()
	Z := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x := g.X.At(i, j)
			y := g.Y.At(i, j)
			v := ev.expr.value(x, y)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &EvalError{
					Expr: ev.expr.String(),
					X:    x,
					Y:    y,
					Msg: fmt.Sprintf("%s is not a finite real number at grid cell (%g, %g)",
						ev.expr.String(), x, y),
				}
			}
			Z.Set(i, j, v)
		}
	}
	return Z, nil
}
