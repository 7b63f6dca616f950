package solver

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gridworks/prodcost/core/model"
)

func TestSolveLP(t *testing.T) {
	// minimize -x - 2y subject to x <= 4, y <= 3, x + y <= 5.
	p := NewProblem()
	x := p.AddColumn("x", -1, 4)
	y := p.AddColumn("y", -2, 3)
	p.AddLessEq([]Term{{Col: x, Coef: 1}, {Col: y, Coef: 1}}, 5)

	res, err := NewSimplex().Solve(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !res.Optimal {
		t.Fatal("expected optimal result")
	}
	if math.Abs(res.Objective-(-8)) > 1e-6 {
		t.Fatalf("objective %v, want -8", res.Objective)
	}
	if math.Abs(res.X[x]-2) > 1e-6 || math.Abs(res.X[y]-3) > 1e-6 {
		t.Fatalf("solution %v, want [2 3]", res.X)
	}
}

func TestSolveBinaryBranchAndBound(t *testing.T) {
	// A unit with a fixed cost: p must be at least 2, can only be
	// nonzero while u is on, and u costs 10. The relaxation commits u
	// fractionally; the integer optimum pays the full fixed cost.
	p := NewProblem()
	u := p.AddBinaryColumn("u", 10)
	x := p.AddColumn("p", 2, -1)
	p.AddLessEq([]Term{{Col: x, Coef: 1}, {Col: u, Coef: -6}}, 0)
	p.AddLessEq([]Term{{Col: x, Coef: -1}}, -2)

	res, err := NewSimplex().Solve(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.X[u]-1) > 1e-6 {
		t.Fatalf("commitment %v, want 1", res.X[u])
	}
	if math.Abs(res.Objective-14) > 1e-6 {
		t.Fatalf("objective %v, want 14", res.Objective)
	}
	if res.SimplexCalls < 2 {
		t.Fatalf("expected branching, got %d simplex calls", res.SimplexCalls)
	}
}

func TestSolveInfeasible(t *testing.T) {
	p := NewProblem()
	x := p.AddColumn("x", 1, 1)
	p.AddLessEq([]Term{{Col: x, Coef: -1}}, -2) // x >= 2 conflicts with x <= 1

	_, err := NewSimplex().Solve(context.Background(), p, Options{})
	if !errors.Is(err, model.ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
}

func TestSolveCancellation(t *testing.T) {
	mixed := func() *Problem {
		p := NewProblem()
		u := p.AddBinaryColumn("u", 10)
		x := p.AddColumn("p", 2, -1)
		p.AddLessEq([]Term{{Col: x, Coef: 1}, {Col: u, Coef: -6}}, 0)
		p.AddLessEq([]Term{{Col: x, Coef: -1}}, -2)
		return p
	}
	pure := func() *Problem {
		p := NewProblem()
		x := p.AddColumn("x", -1, 4)
		p.AddLessEq([]Term{{Col: x, Coef: 1}}, 3)
		return p
	}

	// A cancelled solve is never reported successful, with or without
	// binary columns.
	for name, p := range map[string]*Problem{"binary": mixed(), "lp": pure()} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := NewSimplex().Solve(ctx, p, Options{})
		if !errors.Is(err, model.ErrSolverInterrupted) {
			t.Fatalf("%s: expected ErrSolverInterrupted, got %v", name, err)
		}
		if res != nil && res.Optimal {
			t.Fatalf("%s: cancelled solve reported optimal", name)
		}
	}
}

func TestSolveDeadlineExceeded(t *testing.T) {
	p := NewProblem()
	p.AddColumn("x", -1, 4)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := NewSimplex().Solve(ctx, p, Options{})
	if !errors.Is(err, model.ErrSolverTimeout) {
		t.Fatalf("expected ErrSolverTimeout on expired deadline, got %v", err)
	}
	if errors.Is(err, model.ErrSolverInterrupted) {
		t.Fatalf("deadline expiry labelled as interruption: %v", err)
	}
}

func TestSolveNumericalFailure(t *testing.T) {
	orig := simplexSolve
	simplexSolve = func([]float64, *mat.Dense, []float64, float64) (float64, []float64, error) {
		return 0, nil, errors.New("singular basis")
	}
	defer func() { simplexSolve = orig }()

	p := NewProblem()
	p.AddColumn("x", 1, 1)
	_, err := NewSimplex().Solve(context.Background(), p, Options{})
	if !errors.Is(err, model.ErrSolverNumerical) {
		t.Fatalf("expected ErrSolverNumerical, got %v", err)
	}
}

func TestProblemValidate(t *testing.T) {
	p := NewProblem()
	if _, err := NewSimplex().Solve(context.Background(), p, Options{}); err == nil {
		t.Fatal("expected error for empty problem")
	}
	p.AddColumn("x", 1, 1)
	p.AddLessEq([]Term{{Col: 7, Coef: 1}}, 0)
	if _, err := NewSimplex().Solve(context.Background(), p, Options{}); err == nil {
		t.Fatal("expected error for out-of-range column")
	}
}
