// Package decision builds and solves one optimization problem per
// rolling-horizon window. A Model is created per simulation step from a
// grid snapshot, a formulation template, a window spec and the initial
// conditions carried over from the previous step.
package decision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gridworks/prodcost/core/grid"
	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/core/solver"
	"github.com/gridworks/prodcost/core/template"
	"github.com/gridworks/prodcost/infra/logger"
)

// Status tracks the decision model lifecycle.
type Status int

const (
	StatusUnbuilt Status = iota
	StatusBuilt
	StatusSolved
	StatusFailed
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUnbuilt:
		return "unbuilt"
	case StatusBuilt:
		return "built"
	case StatusSolved:
		return "solved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Model owns one built optimization problem for one time window.
type Model struct {
	mu sync.Mutex

	name     string
	status   Status
	snapshot *grid.Snapshot
	tmpl     *template.Template
	window   model.WindowSpec
	ics      *model.InitialConditionSet

	problem *solver.Problem
	vars    *variableIndex
	sol     *solver.Result

	buildStats model.BuildStats
	solveStats model.SolveStats

	slv  solver.Solver
	opts solver.Options
	log  logger.Logger
}

// New returns an unbuilt decision model using the given solver.
func New(name string, slv solver.Solver, opts solver.Options) *Model {
	return &Model{
		name: name,
		slv:  slv,
		opts: opts,
		log:  logger.New("decision-model"),
	}
}

// Status reports the current lifecycle state.
func (m *Model) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Window returns the window this model was built for.
func (m *Model) Window() model.WindowSpec { return m.window }

// InitialConditions returns the condition set this model was built with.
func (m *Model) InitialConditions() *model.InitialConditionSet { return m.ics }

// BuildStats returns the problem-size diagnostics recorded at build time.
func (m *Model) BuildStats() model.BuildStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buildStats
}

// SolveStats returns solver diagnostics. Valid after Solve, including a
// failed solve where the best bound may still be informative.
func (m *Model) SolveStats() model.SolveStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.solveStats
}

// Build assembles the optimization problem from the snapshot, template,
// window spec and initial conditions. Fails with ErrUnknownCategory if
// the template maps a category with no components in the snapshot,
// ErrFormulationMismatch if a selected category lacks a template entry,
// and ErrWindowDataMissing if time-series coverage is absent.
func (m *Model) Build(snap *grid.Snapshot, tmpl *template.Template, spec model.WindowSpec, ics *model.InitialConditionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusUnbuilt {
		return fmt.Errorf("model %s: build called in state %s", m.name, m.status)
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	// Lazy template validation against the bound data: every mapped
	// category must have matching components.
	for _, cat := range tmpl.Categories() {
		if len(snap.Components(cat)) == 0 {
			return fmt.Errorf("%w: template maps %s but snapshot %s has no such components",
				model.ErrUnknownCategory, cat, snap.Name())
		}
	}
	// Every optimizable category present in the snapshot must be mapped.
	for _, cat := range snap.Categories() {
		if cat == model.CategoryLoad || cat == model.CategoryBus {
			continue
		}
		if _, ok := tmpl.Get(cat); !ok {
			return fmt.Errorf("%w: snapshot %s has %s components but the template has no entry for them",
				model.ErrFormulationMismatch, snap.Name(), cat)
		}
	}

	b := newBuilder(snap, tmpl, spec, ics)
	problem, vars, err := b.build()
	if err != nil {
		return err
	}

	m.snapshot = snap
	m.tmpl = tmpl
	m.window = spec
	m.ics = ics
	m.problem = problem
	m.vars = vars
	m.buildStats = model.BuildStats{
		Variables:   problem.Columns(),
		Constraints: problem.Constraints(),
		Binaries:    problem.Binaries(),
	}
	m.status = StatusBuilt
	m.log.Debugw("model built", map[string]any{
		"model":       m.name,
		"variables":   m.buildStats.Variables,
		"constraints": m.buildStats.Constraints,
		"binaries":    m.buildStats.Binaries,
	})
	return nil
}

// Solve invokes the optimizer on the built problem. The transition is
// Built to Solved on success and Built to Failed on infeasibility,
// numerical error, timeout or cancellation; a cancelled solve is never
// reported as Solved. The grid snapshot is read-only throughout.
func (m *Model) Solve(ctx context.Context) error {
	m.mu.Lock()
	if m.status != StatusBuilt {
		st := m.status
		m.mu.Unlock()
		return fmt.Errorf("model %s: solve called in state %s", m.name, st)
	}
	problem, slv, opts := m.problem, m.slv, m.opts
	m.mu.Unlock()

	start := time.Now()
	res, err := slv.Solve(ctx, problem, opts)
	wall := time.Since(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.solveStats = model.SolveStats{WallTime: wall, Binaries: m.buildStats.Binaries}
	if res != nil {
		m.solveStats.Objective = res.Objective
		m.solveStats.BestBound = res.BestBound
		m.solveStats.SimplexCalls = res.SimplexCalls
	}
	if err != nil {
		m.status = StatusFailed
		return fmt.Errorf("model %s: %w", m.name, err)
	}
	m.sol = res
	m.status = StatusSolved
	return nil
}

// Extract returns the realized values of a variable family, one slice
// per component with one entry per timestep. Fails with ErrNotSolved
// before a successful solve.
func (m *Model) Extract(family model.VariableFamily) (map[string][]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusSolved {
		return nil, fmt.Errorf("model %s in state %s: %w", m.name, m.status, model.ErrNotSolved)
	}
	return m.vars.extract(family, m.sol.X, m.window)
}

// Results assembles the full results table for the window.
func (m *Model) Results() (*model.ResultsTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusSolved {
		return nil, fmt.Errorf("model %s in state %s: %w", m.name, m.status, model.ErrNotSolved)
	}
	t := model.NewResultsTable(m.window)
	for _, fam := range []model.VariableFamily{
		model.FamilyActivePower,
		model.FamilyOnStatus,
		model.FamilyStorageEnergy,
		model.FamilyCurtailment,
		model.FamilyCostByCategory,
	} {
		vals, err := m.vars.extract(fam, m.sol.X, m.window)
		if err != nil {
			return nil, err
		}
		for comp, v := range vals {
			t.Put(fam, comp, v)
		}
	}
	t.Solve = m.solveStats
	t.Build = m.buildStats
	return t, nil
}
