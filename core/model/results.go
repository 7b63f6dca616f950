package model

import (
	"fmt"
	"sort"
	"time"
)

// VariableFamily names one extractable family of decision values.
type VariableFamily string

const (
	FamilyActivePower    VariableFamily = "active_power"
	FamilyOnStatus       VariableFamily = "on_status"
	FamilyStorageEnergy  VariableFamily = "storage_energy"
	FamilyCostByCategory VariableFamily = "cost_by_category"
	FamilyCurtailment    VariableFamily = "curtailment"
)

// SolveStats captures solver diagnostics for one window.
type SolveStats struct {
	WallTime     time.Duration `json:"wall_time_ns"`
	Objective    float64       `json:"objective"`
	BestBound    float64       `json:"best_bound"`
	SimplexCalls int           `json:"simplex_calls"`
	Binaries     int           `json:"binaries"`
}

// BuildStats captures problem-size diagnostics recorded at build time.
type BuildStats struct {
	Variables   int `json:"variables"`
	Constraints int `json:"constraints"`
	Binaries    int `json:"binaries"`
}

// ResultsTable holds one window's extracted decision values keyed by
// variable family and component (or category for cost terms). Value
// slices carry one entry per timestep of the window.
type ResultsTable struct {
	Window WindowSpec                              `json:"-"`
	Values map[VariableFamily]map[string][]float64 `json:"values"`
	Solve  SolveStats                              `json:"solve"`
	Build  BuildStats                              `json:"build"`
}

// NewResultsTable returns an empty table for the given window.
func NewResultsTable(w WindowSpec) *ResultsTable {
	return &ResultsTable{Window: w, Values: make(map[VariableFamily]map[string][]float64)}
}

// Put stores the per-timestep values for one component under a family.
func (t *ResultsTable) Put(family VariableFamily, component string, values []float64) {
	m, ok := t.Values[family]
	if !ok {
		m = make(map[string][]float64)
		t.Values[family] = m
	}
	m[component] = values
}

// Family returns all values stored under a family. The returned map must
// not be mutated by the caller.
func (t *ResultsTable) Family(family VariableFamily) (map[string][]float64, error) {
	m, ok := t.Values[family]
	if !ok {
		return nil, fmt.Errorf("no values for family %s", family)
	}
	return m, nil
}

// Value returns the per-timestep values for one component.
func (t *ResultsTable) Value(family VariableFamily, component string) ([]float64, error) {
	m, err := t.Family(family)
	if err != nil {
		return nil, err
	}
	v, ok := m[component]
	if !ok {
		return nil, fmt.Errorf("family %s has no component %s", family, component)
	}
	return v, nil
}

// Components lists the component keys of a family in sorted order.
func (t *ResultsTable) Components(family VariableFamily) []string {
	m, ok := t.Values[family]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
