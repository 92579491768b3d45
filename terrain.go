// Package terrain analyzes scalar surfaces z = f(x, y) for slope and
// drainage studies.
//
// Design goals:
//   - Exact symbolic differentiation, never finite differences
//   - One expression tree serves scalar and grid evaluation
//   - Formula strings are validated up front; a failed analysis yields a
//     single error and no partial numbers
//   - Deterministic simplification and stable rendered output
package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Options configures an analysis. The zero value is not useful; use
// defaultOptions via Analyze's variadic Option parameters.
type Options struct {
	// Domain is the sampling window for the elevation grid.
	Domain Domain
	// CriticalTol is the gradient magnitude below which the query point
	// counts as a critical point (peak, valley, or saddle).
	CriticalTol float64
	// SteepLimit is the per-axis slope magnitude above which the terrain
	// is flagged as too steep for construction.
	SteepLimit float64
}

// Option mutates analysis options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Domain:      DefaultDomain,
		CriticalTol: 0.1,
		SteepLimit:  2.0,
	}
}

// WithDomain overrides the sampling domain for the elevation grid.
func WithDomain(d Domain) Option { return func(o *Options) { o.Domain = d } }

// WithCriticalTol overrides the critical-point gradient tolerance.
func WithCriticalTol(tol float64) Option { return func(o *Options) { o.CriticalTol = tol } }

// WithSteepLimit overrides the construction steepness limit.
func WithSteepLimit(limit float64) Option { return func(o *Options) { o.SteepLimit = limit } }

// SlopeClass is the steepness classification of a query point.
type SlopeClass int

const (
	// Critical marks a gradient that is numerically zero: a candidate
	// peak, valley, or saddle point.
	Critical SlopeClass = iota
	// Sloped marks a point with a nonzero gradient; water drains in the
	// direction opposite to the gradient.
	Sloped
)

func (c SlopeClass) String() string {
	if c == Critical {
		return "critical point"
	}
	return "sloped"
}

// Preset is a named terrain scenario supplied to the analyzer as plain
// configuration; the core treats its formula like any other input.
type Preset struct {
	Name        string
	Formula     string
	Description string
}

// Presets are the two stock scenarios of the analyzer.
var Presets = []Preset{
	{
		Name:        "Symmetrical Hill (Dome)",
		Formula:     "100 - x^2 - y^2",
		Description: "A simple hill. Ideal for analyzing basic run-off.",
	},
	{
		Name:        "Mountain Pass (Saddle)",
		Formula:     "x^2 - y^2 + 50",
		Description: "A saddle point. Critical for finding passes between mountains.",
	},
}

// Bundle is the complete result of one analysis: point values, rendered
// expressions, the sampled surface, and reusable evaluators. A Bundle is
// only ever returned whole; on any failure Analyze returns an error and
// no bundle.
type Bundle struct {
	// Query point.
	X0, Y0 float64

	// Elevation and first-order slopes at the query point.
	Elevation float64
	SlopeX    float64
	SlopeY    float64

	// Rendered forms of f, ∂f/∂x, ∂f/∂y.
	FormulaText, FormulaLaTeX string
	SlopeXText, SlopeXLaTeX   string
	SlopeYText, SlopeYLaTeX   string

	// Coordinate grids and the elevation surface over the sampling
	// domain, all of identical shape.
	GridX, GridY, GridZ *mat.Dense

	// Evaluators for f, ∂f/∂x, ∂f/∂y, reusable for further sampling.
	F, Fx, Fy *Evaluator

	opts Options
}

// Analyze compiles a formula, differentiates it with respect to x and y,
// and evaluates all three expressions at (x0, y0) and over the sampling
// domain. It returns either a complete Bundle or a single error: a
// *ParseError when the formula is not a valid expression in x and y, or an
// *EvalError when evaluation produced a non-finite or non-real value.
func Analyze(formula string, x0, y0 float64, opts ...Option) (*Bundle, error) {
	expr, err := Parse(formula)
	if err != nil {
		return nil, err
	}
	return AnalyzeExpr(expr, x0, y0, opts...)
}

// AnalyzeExpr is Analyze for an already-compiled expression.
func AnalyzeExpr(expr Expr, x0, y0 float64, opts ...Option) (b *Bundle, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			b = nil
			err = &EvalError{Msg: fmt.Sprint(rec)}
		}
	}()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dx := Diff(expr, "x")
	dy := Diff(expr, "y")

	f := NewEvaluator(expr)
	fx := NewEvaluator(dx)
	fy := NewEvaluator(dy)

	z0, err := f.At(x0, y0)
	if err != nil {
		return nil, err
	}
	fx0, err := fx.At(x0, y0)
	if err != nil {
		return nil, err
	}
	fy0, err := fy.At(x0, y0)
	if err != nil {
		return nil, err
	}

	grid := o.Domain.Mesh()
	Z, err := f.OverGrid(grid)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		X0:           x0,
		Y0:           y0,
		Elevation:    z0,
		SlopeX:       fx0,
		SlopeY:       fy0,
		FormulaText:  expr.String(),
		FormulaLaTeX: expr.LaTeX(),
		SlopeXText:   dx.String(),
		SlopeXLaTeX:  dx.LaTeX(),
		SlopeYText:   dy.String(),
		SlopeYLaTeX:  dy.LaTeX(),
		GridX:        grid.X,
		GridY:        grid.Y,
		GridZ:        Z,
		F:            f,
		Fx:           fx,
		Fy:           fy,
		opts:         o,
	}, nil
}

// Gradient returns the gradient vector (∂f/∂x, ∂f/∂y) at the query point.
func (b *Bundle) Gradient() (fx, fy float64) { return b.SlopeX, b.SlopeY }

// GradientMagnitude is the length of the gradient at the query point.
func (b *Bundle) GradientMagnitude() float64 { return math.Hypot(b.SlopeX, b.SlopeY) }

// Classify reports whether the query point sits at a critical point of the
// surface or on a slope, per the configured tolerance.
func (b *Bundle) Classify() SlopeClass {
	if b.GradientMagnitude() < b.opts.CriticalTol {
		return Critical
	}
	return Sloped
}

// TooSteep reports whether either slope exceeds the configured
// construction limit.
func (b *Bundle) TooSteep() bool {
	return math.Abs(b.SlopeX) > b.opts.SteepLimit || math.Abs(b.SlopeY) > b.opts.SteepLimit
}

// TangentPlane is the first-order approximation of the surface at the
// query point: z0 + fx·(x−x0) + fy·(y−y0). It is only accurate near
// (x0, y0).
func (b *Bundle) TangentPlane(x, y float64) float64 {
	return b.Elevation + b.SlopeX*(x-b.X0) + b.SlopeY*(y-b.Y0)
}
