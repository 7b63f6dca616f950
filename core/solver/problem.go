package solver

import (
	"fmt"
	"math"
)

// Term is one coefficient of a constraint row.
type Term struct {
	Col  int
	Coef float64
}

type row struct {
	terms []Term
	rhs   float64
}

// Problem is a linear or mixed-binary program in the form
//
//	minimize cᵀx  subject to  Gx ≤ h,  Ax = b,  x ≥ 0,
//
// with an integrality mask marking binary columns. All variables are
// nonnegative by construction; upper bounds are expressed as inequality
// rows. Formulation builders shift any naturally signed quantity into
// nonnegative pairs before reaching the solver.
type Problem struct {
	names  []string
	cost   []float64
	binary []bool
	ineq   []row
	eq     []row
}

// NewProblem returns an empty problem.
func NewProblem() *Problem {
	return &Problem{}
}

// AddColumn registers a continuous variable with the given objective
// cost and upper bound. A negative or infinite upper bound leaves the
// column unbounded above; zero pins the column to zero. Returns the
// column index.
func (p *Problem) AddColumn(name string, cost, upper float64) int {
	idx := len(p.cost)
	p.names = append(p.names, name)
	p.cost = append(p.cost, cost)
	p.binary = append(p.binary, false)
	if upper >= 0 && !math.IsInf(upper, 1) {
		p.ineq = append(p.ineq, row{terms: []Term{{Col: idx, Coef: 1}}, rhs: upper})
	}
	return idx
}

// AddBinaryColumn registers a binary variable with the given objective
// cost. Returns the column index.
func (p *Problem) AddBinaryColumn(name string, cost float64) int {
	idx := p.AddColumn(name, cost, 1)
	p.binary[idx] = true
	return idx
}

// AddLessEq appends the inequality Σ terms ≤ rhs.
func (p *Problem) AddLessEq(terms []Term, rhs float64) {
	p.ineq = append(p.ineq, row{terms: terms, rhs: rhs})
}

// AddEq appends the equality Σ terms = rhs.
func (p *Problem) AddEq(terms []Term, rhs float64) {
	p.eq = append(p.eq, row{terms: terms, rhs: rhs})
}

// Columns reports the number of variables.
func (p *Problem) Columns() int { return len(p.cost) }

// Constraints reports the number of constraint rows, bounds included.
func (p *Problem) Constraints() int { return len(p.ineq) + len(p.eq) }

// Binaries reports the number of binary columns.
func (p *Problem) Binaries() int {
	n := 0
	for _, b := range p.binary {
		if b {
			n++
		}
	}
	return n
}

// Name returns the name of column i.
func (p *Problem) Name(i int) string { return p.names[i] }

// validate checks all rows reference existing columns.
func (p *Problem) validate() error {
	if len(p.cost) == 0 {
		return fmt.Errorf("problem has no variables")
	}
	check := func(rows []row) error {
		for _, r := range rows {
			for _, t := range r.terms {
				if t.Col < 0 || t.Col >= len(p.cost) {
					return fmt.Errorf("constraint references column %d of %d", t.Col, len(p.cost))
				}
			}
		}
		return nil
	}
	if err := check(p.ineq); err != nil {
		return err
	}
	return check(p.eq)
}
