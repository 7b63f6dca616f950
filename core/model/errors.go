package model

import "errors"

// Build-time failures abort a step before any solver time is spent.
var (
	// ErrUnknownCategory reports a template entry for a category with no
	// matching components in the bound grid snapshot.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrFormulationMismatch reports a selected component whose category
	// has no template entry.
	ErrFormulationMismatch = errors.New("formulation mismatch")
	// ErrWindowDataMissing reports time-series coverage absent for a
	// requested window.
	ErrWindowDataMissing = errors.New("window data missing")
)

// Solve-time and lifecycle failures.
var (
	// ErrNotSolved reports an extraction or advance attempted on a model
	// that has not reached the solved state.
	ErrNotSolved = errors.New("model not solved")
	// ErrInfeasible reports a problem with no feasible point.
	ErrInfeasible = errors.New("infeasible")
	// ErrSolverTimeout reports the wall-clock limit or a context
	// deadline expiring before the gap tolerance was met.
	ErrSolverTimeout = errors.New("solver timeout")
	// ErrSolverInterrupted reports a solve aborted by the caller through
	// context cancellation.
	ErrSolverInterrupted = errors.New("solver interrupted")
	// ErrSolverNumerical reports an unbounded or numerically singular
	// problem.
	ErrSolverNumerical = errors.New("solver numerical error")
)

// Orchestration failures.
var (
	// ErrRunConsumed reports execute called on an orchestrator that has
	// already completed or failed; results of distinct runs are never
	// merged.
	ErrRunConsumed = errors.New("run already consumed")
	// ErrStepNotReady reports a step build attempted before the previous
	// step was solved.
	ErrStepNotReady = errors.New("previous step not solved")
)
