// Package chronology defines how state produced by solving one window
// is transformed into initial conditions for the next window.
package chronology

import (
	"fmt"

	"github.com/gridworks/prodcost/core/decision"
	"github.com/gridworks/prodcost/core/model"
)

// Chronology produces the initial conditions seeding window k+1 from
// the solved decision model of window k.
type Chronology interface {
	Advance(m *decision.Model) (*model.InitialConditionSet, error)
}

// InterProblem is the inter-problem chronology: the new initial
// condition is the terminal state of the previous window's solve. The
// horizon therefore advances by exactly one window length per step.
// Advance is deterministic: identical solved inputs yield identical
// condition sets.
type InterProblem struct{}

// NewInterProblem returns the standard inter-problem chronology.
func NewInterProblem() InterProblem { return InterProblem{} }

// Advance implements Chronology. Fails with ErrNotSolved if the model
// has not reached the solved state.
func (InterProblem) Advance(m *decision.Model) (*model.InitialConditionSet, error) {
	if m.Status() != decision.StatusSolved {
		return nil, fmt.Errorf("chronology advance on model %s in state %s: %w",
			m.Name(), m.Status(), model.ErrNotSolved)
	}
	window := m.Window()
	last := window.Steps - 1
	stepHours := window.StepHours()
	out := model.NewInitialConditionSet()

	power, err := m.Extract(model.FamilyActivePower)
	if err != nil {
		return nil, err
	}
	for comp, vals := range power {
		out.Set(comp, model.ConditionActivePower, vals[last])
	}

	status, err := m.Extract(model.FamilyOnStatus)
	if err != nil {
		return nil, err
	}
	for comp, vals := range status {
		terminal := vals[last]
		out.Set(comp, model.ConditionOnStatus, terminal)

		// Consecutive hours at the terminal status, counted back from
		// the end of the window. A window held entirely at one status
		// extends the counter carried in from the previous window.
		held := 0
		for t := last; t >= 0 && vals[t] == terminal; t-- {
			held++
		}
		hours := float64(held) * stepHours
		if held == window.Steps {
			prior := m.InitialConditions()
			kind := model.ConditionUpTimeHours
			if terminal < 0.5 {
				kind = model.ConditionDownTimeHours
			}
			if carried, ok := prior.Get(comp, kind); ok {
				priorStatus, hasStatus := prior.Get(comp, model.ConditionOnStatus)
				if hasStatus && priorStatus == terminal {
					hours += carried
				}
			}
		}
		if terminal >= 0.5 {
			out.Set(comp, model.ConditionUpTimeHours, hours)
			out.Set(comp, model.ConditionDownTimeHours, 0)
		} else {
			out.Set(comp, model.ConditionDownTimeHours, hours)
			out.Set(comp, model.ConditionUpTimeHours, 0)
		}
	}

	energy, err := m.Extract(model.FamilyStorageEnergy)
	if err != nil {
		return nil, err
	}
	for comp, vals := range energy {
		out.Set(comp, model.ConditionStateOfCharge, vals[last])
	}

	return out, nil
}
