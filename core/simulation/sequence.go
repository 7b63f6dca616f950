package simulation

import (
	"fmt"

	"github.com/gridworks/prodcost/core/chronology"
	"github.com/gridworks/prodcost/core/grid"
	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/core/template"
)

// Sequence couples one grid model and formulation template with a
// chronology: a single decision-model chain feeding itself forward in
// time, one feed-forward edge per step boundary.
type Sequence struct {
	// Grid is the live data model. Each step builds from a fresh
	// snapshot, so mutations between windows apply only to windows
	// built afterwards.
	Grid *grid.Model
	// Template selects the formulation variant per category. It is
	// cloned when the orchestrator is built; later mutations never
	// reach an orchestrator already constructed from it.
	Template *template.Template
	// Chronology turns a solved window into the next window's initial
	// conditions.
	Chronology chronology.Chronology
	// Initial seeds step 0. Nil means formulation-variant defaults.
	Initial *model.InitialConditionSet
}

// Validate checks the sequence wiring.
func (s Sequence) Validate() error {
	if s.Grid == nil {
		return fmt.Errorf("sequence requires a grid model")
	}
	if s.Template == nil {
		return fmt.Errorf("sequence requires a formulation template")
	}
	if s.Chronology == nil {
		return fmt.Errorf("sequence requires a chronology")
	}
	return nil
}

// ResultsSink receives one results table per solved step. It is an
// explicit handle: the orchestrator has no ambient results directory.
type ResultsSink interface {
	Persist(step int, table *model.ResultsTable) error
}

// NopSink discards results.
type NopSink struct{}

// Persist implements ResultsSink.
func (NopSink) Persist(int, *model.ResultsTable) error { return nil }
