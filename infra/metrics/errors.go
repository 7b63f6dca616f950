package metrics

import (
	"errors"

	"github.com/gridworks/prodcost/core/model"
)

// errorKind maps an engine error to the taxonomy label used in metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, model.ErrFormulationMismatch):
		return "formulation_mismatch"
	case errors.Is(err, model.ErrWindowDataMissing):
		return "window_data_missing"
	case errors.Is(err, model.ErrNotSolved):
		return "not_solved"
	case errors.Is(err, model.ErrInfeasible):
		return "infeasible"
	case errors.Is(err, model.ErrSolverTimeout):
		return "solver_timeout"
	case errors.Is(err, model.ErrSolverInterrupted):
		return "solver_interrupted"
	case errors.Is(err, model.ErrSolverNumerical):
		return "solver_numerical"
	case errors.Is(err, model.ErrStepNotReady):
		return "step_not_ready"
	default:
		return "internal"
	}
}
