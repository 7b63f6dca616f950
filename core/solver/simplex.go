package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/gridworks/prodcost/core/model"
)

const (
	defaultTol     = 1e-7
	integralityEps = 1e-6
)

// Options configure one solve call.
type Options struct {
	// WallClockLimit bounds the total solve time. Zero means no limit.
	WallClockLimit time.Duration
	// RelativeGapTolerance stops the search once the incumbent is proven
	// within this relative distance of the best bound.
	RelativeGapTolerance float64
	// Tolerance is the simplex pivot tolerance.
	Tolerance float64
}

// Result carries the outcome of a solve: the best point found, its
// objective, the best proved bound, and search statistics. On timeout a
// partial incumbent may be present together with a non-nil error.
type Result struct {
	X            []float64
	Objective    float64
	BestBound    float64
	SimplexCalls int
	Optimal      bool
}

// Solver is the opaque optimizer contract: one built problem in, one
// result out. Implementations must honor context cancellation.
type Solver interface {
	Solve(ctx context.Context, p *Problem, opts Options) (*Result, error)
}

// Simplex solves linear programs with gonum's simplex method and
// mixed-binary programs with branch and bound over the binary columns.
type Simplex struct{}

// NewSimplex returns the default gonum-backed solver.
func NewSimplex() *Simplex { return &Simplex{} }

// simplexSolve runs one LP in standard form. It is a variable so tests
// can substitute failures.
var simplexSolve = func(c []float64, a *mat.Dense, b []float64, tol float64) (float64, []float64, error) {
	return lp.Simplex(c, a, b, tol, nil)
}

// standardForm assembles the standard-form matrices for the problem with
// the given extra equality fixings (branch decisions).
func standardForm(p *Problem, fixings []fixing) (c []float64, a *mat.Dense, b []float64) {
	n := len(p.cost)
	mI := len(p.ineq)
	mE := len(p.eq) + len(fixings)
	cols := n + mI
	rows := mI + mE

	c = make([]float64, cols)
	copy(c, p.cost)

	a = mat.NewDense(rows, cols, nil)
	b = make([]float64, rows)
	for i, r := range p.ineq {
		for _, t := range r.terms {
			a.Set(i, t.Col, a.At(i, t.Col)+t.Coef)
		}
		a.Set(i, n+i, 1) // slack
		b[i] = r.rhs
	}
	for i, r := range p.eq {
		for _, t := range r.terms {
			a.Set(mI+i, t.Col, a.At(mI+i, t.Col)+t.Coef)
		}
		b[mI+i] = r.rhs
	}
	for i, f := range fixings {
		a.Set(mI+len(p.eq)+i, f.col, 1)
		b[mI+len(p.eq)+i] = f.val
	}
	return c, a, b
}

type fixing struct {
	col int
	val float64
}

type node struct {
	fixings []fixing
	// bound is the relaxation objective of the parent node, a valid
	// lower bound for everything below this node.
	bound float64
}

// Solve implements Solver.
func (s *Simplex) Solve(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ctxError(err)
	}
	tol := opts.Tolerance
	if tol == 0 {
		tol = defaultTol
	}
	start := time.Now()
	deadline := time.Time{}
	if opts.WallClockLimit > 0 {
		deadline = start.Add(opts.WallClockLimit)
	}

	res := &Result{BestBound: math.Inf(-1)}

	relax := func(fixings []fixing) (float64, []float64, error) {
		c, a, b := standardForm(p, fixings)
		res.SimplexCalls++
		obj, x, err := simplexSolve(c, a, b, tol)
		if err != nil {
			return 0, nil, err
		}
		return obj, x[:len(p.cost)], nil
	}

	// Root relaxation.
	rootObj, rootX, err := relax(nil)
	if err != nil {
		return res, mapLPError(err)
	}
	res.BestBound = rootObj

	// A solve observed as cancelled is never reported successful, even
	// when the relaxation finished.
	if err := ctx.Err(); err != nil {
		return res, ctxError(err)
	}

	frac := fractionalColumn(p, rootX)
	if frac < 0 {
		res.X = rootX
		res.Objective = rootObj
		res.Optimal = true
		return res, nil
	}

	// Branch and bound, depth first, most-fractional branching.
	incumbent := math.Inf(1)
	var incumbentX []float64
	rootVal := roundAway(rootX[frac])
	stack := []node{
		{fixings: []fixing{{col: frac, val: 1 - rootVal}}, bound: rootObj},
		{fixings: []fixing{{col: frac, val: rootVal}}, bound: rootObj},
	}

	finish := func(err error) (*Result, error) {
		res.X = incumbentX
		res.Objective = incumbent
		if incumbentX == nil {
			res.Objective = 0
		}
		return res, err
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return finish(ctxError(err))
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return finish(fmt.Errorf("%w: wall clock limit %s exceeded", model.ErrSolverTimeout, opts.WallClockLimit))
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		res.BestBound = frontierBound(stack, nd.bound, incumbent)
		if incumbentX != nil && withinGap(incumbent, res.BestBound, opts.RelativeGapTolerance) {
			res.Optimal = opts.RelativeGapTolerance == 0
			res.X = incumbentX
			res.Objective = incumbent
			return res, nil
		}
		if nd.bound >= incumbent-tol {
			continue // cannot improve
		}

		obj, x, err := relax(nd.fixings)
		if err != nil {
			if errors.Is(err, lp.ErrInfeasible) {
				continue
			}
			return finish(mapLPError(err))
		}
		if obj >= incumbent-tol {
			continue
		}
		frac := fractionalColumn(p, x)
		if frac < 0 {
			incumbent = obj
			incumbentX = x
			continue
		}
		up := roundAway(x[frac])
		left := append(append([]fixing{}, nd.fixings...), fixing{col: frac, val: up})
		right := append(append([]fixing{}, nd.fixings...), fixing{col: frac, val: 1 - up})
		stack = append(stack, node{fixings: right, bound: obj}, node{fixings: left, bound: obj})
	}

	if incumbentX == nil {
		return res, fmt.Errorf("%w: no integer-feasible point", model.ErrInfeasible)
	}
	res.X = incumbentX
	res.Objective = incumbent
	res.BestBound = incumbent
	res.Optimal = true
	return res, nil
}

// fractionalColumn returns the most fractional binary column of x, or -1
// if all binaries are integral.
func fractionalColumn(p *Problem, x []float64) int {
	best, bestDist := -1, integralityEps
	for i, isBin := range p.binary {
		if !isBin {
			continue
		}
		d := math.Abs(x[i] - math.Round(x[i]))
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// roundAway picks the branch explored first: the nearest integer value.
func roundAway(v float64) float64 {
	if v >= 0.5 {
		return 1
	}
	return 0
}

// frontierBound computes the best lower bound over the open nodes.
func frontierBound(stack []node, current, incumbent float64) float64 {
	bound := current
	for _, nd := range stack {
		if nd.bound < bound {
			bound = nd.bound
		}
	}
	if incumbent < bound {
		bound = incumbent
	}
	return bound
}

func withinGap(incumbent, bound, gap float64) bool {
	if math.IsInf(incumbent, 1) {
		return false
	}
	denom := math.Max(math.Abs(incumbent), 1e-9)
	return (incumbent-bound)/denom <= gap
}

// ctxError maps context termination into the engine taxonomy: an
// expired deadline is a timeout, a caller abort is an interruption.
func ctxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrSolverTimeout, err)
	}
	return fmt.Errorf("%w: %v", model.ErrSolverInterrupted, err)
}

// mapLPError translates gonum lp errors into the engine taxonomy.
func mapLPError(err error) error {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return fmt.Errorf("%w: %v", model.ErrInfeasible, err)
	case errors.Is(err, lp.ErrUnbounded):
		return fmt.Errorf("%w: unbounded: %v", model.ErrSolverNumerical, err)
	default:
		return fmt.Errorf("%w: %v", model.ErrSolverNumerical, err)
	}
}
