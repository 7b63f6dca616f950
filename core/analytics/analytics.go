// Package analytics computes summary metrics from persisted simulation
// results. It is a read-only consumer: nothing here mutates simulation
// state.
package analytics

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gridworks/prodcost/core/model"
)

// StepRecord is one persisted step of a run.
type StepRecord struct {
	Step              int                 `json:"step"`
	RunID             string              `json:"run_id"`
	WindowStart       time.Time           `json:"window_start"`
	WindowSteps       int                 `json:"window_steps"`
	ResolutionSeconds int                 `json:"resolution_seconds"`
	Results           *model.ResultsTable `json:"results"`
}

// Collection is the ordered step results of one named run.
type Collection struct {
	Name  string
	RunID string
	Steps []StepRecord
}

// Metric is a named function over a collection. Time-independent
// metrics return a single value; time-dependent metrics return one
// value per step.
type Metric struct {
	Name string
	Eval func(Collection) []float64
}

// Summary is the tabular output of Summarize: per metric, the raw
// series plus aggregate statistics.
type Summary struct {
	Rows []SummaryRow
}

// SummaryRow aggregates one metric over the collection.
type SummaryRow struct {
	Metric string
	Values []float64
	Total  float64
	Mean   float64
	Min    float64
	Max    float64
}

// Summarize evaluates the metrics over the collection.
func Summarize(c Collection, metrics []Metric) Summary {
	var s Summary
	for _, m := range metrics {
		vals := m.Eval(c)
		row := SummaryRow{Metric: m.Name, Values: vals}
		if len(vals) > 0 {
			row.Mean = stat.Mean(vals, nil)
			row.Min, row.Max = vals[0], vals[0]
			for _, v := range vals {
				row.Total += v
				if v < row.Min {
					row.Min = v
				}
				if v > row.Max {
					row.Max = v
				}
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// TotalObjective is the time-independent total objective value.
func TotalObjective() Metric {
	return Metric{Name: "total_objective", Eval: func(c Collection) []float64 {
		total := 0.0
		for _, r := range c.Steps {
			total += r.Results.Solve.Objective
		}
		return []float64{total}
	}}
}

// SolveTimeSeconds is the per-step solver wall time.
func SolveTimeSeconds() Metric {
	return Metric{Name: "solve_time_seconds", Eval: func(c Collection) []float64 {
		out := make([]float64, len(c.Steps))
		for i, r := range c.Steps {
			out[i] = r.Results.Solve.WallTime.Seconds()
		}
		return out
	}}
}

// CostSeries is the per-step total production cost.
func CostSeries() Metric {
	return Metric{Name: "cost_series", Eval: func(c Collection) []float64 {
		out := make([]float64, len(c.Steps))
		for i, r := range c.Steps {
			out[i] = r.Results.Solve.Objective
		}
		return out
	}}
}

// CategoryCostSeries is the per-step cost attributed to one category.
func CategoryCostSeries(cat model.Category) Metric {
	name := fmt.Sprintf("cost_%s", cat)
	return Metric{Name: name, Eval: func(c Collection) []float64 {
		out := make([]float64, len(c.Steps))
		for i, r := range c.Steps {
			vals, err := r.Results.Value(model.FamilyCostByCategory, cat.String())
			if err != nil {
				continue
			}
			for _, v := range vals {
				out[i] += v
			}
		}
		return out
	}}
}

// CurtailmentSeries is the per-step total curtailed energy in MWh.
func CurtailmentSeries() Metric {
	return Metric{Name: "curtailment_mwh", Eval: func(c Collection) []float64 {
		out := make([]float64, len(c.Steps))
		for i, r := range c.Steps {
			fam, err := r.Results.Family(model.FamilyCurtailment)
			if err != nil {
				continue
			}
			stepHours := float64(r.ResolutionSeconds) / 3600
			for _, vals := range fam {
				for _, v := range vals {
					out[i] += v * stepHours
				}
			}
		}
		return out
	}}
}

// DispatchByComponent sums a component's dispatched energy per step.
func DispatchByComponent(component string) Metric {
	name := fmt.Sprintf("dispatch_mwh_%s", component)
	return Metric{Name: name, Eval: func(c Collection) []float64 {
		out := make([]float64, len(c.Steps))
		for i, r := range c.Steps {
			vals, err := r.Results.Value(model.FamilyActivePower, component)
			if err != nil {
				continue
			}
			stepHours := float64(r.ResolutionSeconds) / 3600
			for _, v := range vals {
				out[i] += v * stepHours
			}
		}
		return out
	}}
}

// StepCount is the time-independent number of persisted steps.
func StepCount() Metric {
	return Metric{Name: "step_count", Eval: func(c Collection) []float64 {
		return []float64{float64(len(c.Steps))}
	}}
}
