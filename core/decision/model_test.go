package decision

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gridworks/prodcost/core/grid"
	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/core/solver"
	"github.com/gridworks/prodcost/core/template"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testWindow(steps int) model.WindowSpec {
	return model.WindowSpec{Start: testStart, Steps: steps, Resolution: time.Hour}
}

func attachSeries(t *testing.T, g *grid.Model, component string, values []float64) {
	t.Helper()
	ts, err := grid.NewSingleTimeSeries(testStart, time.Hour, values)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if err := g.AttachTimeSeries(component, "max_active_power", ts); err != nil {
		t.Fatalf("attach: %v", err)
	}
}

func addLoad(t *testing.T, g *grid.Model, name string, profile []float64) {
	t.Helper()
	if err := g.AddComponent(model.Component{
		Name: name, Category: model.CategoryLoad, Available: true,
	}); err != nil {
		t.Fatalf("add load: %v", err)
	}
	attachSeries(t, g, name, profile)
}

func buildAndSolve(t *testing.T, g *grid.Model, tmpl *template.Template, spec model.WindowSpec, ics *model.InitialConditionSet) *Model {
	t.Helper()
	m := New("test", solver.NewSimplex(), solver.Options{})
	if err := m.Build(g.Snapshot(), tmpl, spec, ics); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := m.Solve(context.Background()); err != nil {
		t.Fatalf("solve: %v", err)
	}
	return m
}

func TestBasicDispatchFollowsLoad(t *testing.T) {
	g := grid.NewModel("basic")
	if err := g.AddComponent(model.Component{
		Name: "gas1", Category: model.CategoryThermal, Available: true,
		Ratings: model.Ratings{MaxActivePowerMW: 100, VariableCost: 10},
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	addLoad(t, g, "city", []float64{40, 50, 60, 50})

	tmpl := template.New()
	if err := tmpl.Set(model.CategoryThermal, template.ThermalBasicDispatch, nil); err != nil {
		t.Fatalf("template: %v", err)
	}

	m := buildAndSolve(t, g, tmpl, testWindow(4), nil)
	if m.Status() != StatusSolved {
		t.Fatalf("status %s, want solved", m.Status())
	}

	power, err := m.Extract(model.FamilyActivePower)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := []float64{40, 50, 60, 50}
	for i, v := range power["gas1"] {
		if math.Abs(v-want[i]) > 1e-6 {
			t.Fatalf("step %d dispatch %v, want %v", i, v, want[i])
		}
	}

	costs, err := m.Extract(model.FamilyCostByCategory)
	if err != nil {
		t.Fatalf("extract costs: %v", err)
	}
	for i, v := range costs["Thermal"] {
		if math.Abs(v-want[i]*10) > 1e-6 {
			t.Fatalf("step %d cost %v, want %v", i, v, want[i]*10)
		}
	}
}

func TestCommitmentColdStartPaysStartup(t *testing.T) {
	g := grid.NewModel("uc")
	if err := g.AddComponent(model.Component{
		Name: "gas1", Category: model.CategoryThermal, Available: true,
		Ratings: model.Ratings{
			MaxActivePowerMW: 100, MinActivePowerMW: 20,
			VariableCost: 10, NoLoadCost: 5, StartupCost: 50,
		},
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	addLoad(t, g, "city", []float64{40, 60, 80, 60})

	tmpl := template.New()
	if err := tmpl.Set(model.CategoryThermal, template.ThermalUnitCommitment, nil); err != nil {
		t.Fatalf("template: %v", err)
	}

	m := buildAndSolve(t, g, tmpl, testWindow(4), nil)

	status, err := m.Extract(model.FamilyOnStatus)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for i, v := range status["gas1"] {
		if v != 1 {
			t.Fatalf("step %d status %v, want committed", i, v)
		}
	}

	// 240 MWh at 10 $/MWh, 4 h no-load at 5 $/h, one cold start at 50 $.
	wantObj := 2400.0 + 20 + 50
	if got := m.SolveStats().Objective; math.Abs(got-wantObj) > 1e-6 {
		t.Fatalf("objective %v, want %v", got, wantObj)
	}
}

func TestCommitmentPriorStatusSkipsStartup(t *testing.T) {
	g := grid.NewModel("uc")
	if err := g.AddComponent(model.Component{
		Name: "gas1", Category: model.CategoryThermal, Available: true,
		Ratings: model.Ratings{
			MaxActivePowerMW: 100, MinActivePowerMW: 20,
			VariableCost: 10, NoLoadCost: 5, StartupCost: 50,
		},
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	addLoad(t, g, "city", []float64{40, 60, 80, 60})

	tmpl := template.New()
	if err := tmpl.Set(model.CategoryThermal, template.ThermalUnitCommitment, nil); err != nil {
		t.Fatalf("template: %v", err)
	}

	ics := model.NewInitialConditionSet()
	ics.Set("gas1", model.ConditionOnStatus, 1)
	ics.Set("gas1", model.ConditionActivePower, 40)

	m := buildAndSolve(t, g, tmpl, testWindow(4), ics)
	wantObj := 2400.0 + 20
	if got := m.SolveStats().Objective; math.Abs(got-wantObj) > 1e-6 {
		t.Fatalf("objective %v, want %v", got, wantObj)
	}
}

func TestCurtailableRenewableSpillsExcess(t *testing.T) {
	g := grid.NewModel("wind")
	if err := g.AddComponent(model.Component{
		Name: "wind1", Category: model.CategoryRenewableDispatch, Available: true,
		Ratings: model.Ratings{MaxActivePowerMW: 80},
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	attachSeries(t, g, "wind1", []float64{50, 50, 50, 50})
	addLoad(t, g, "city", []float64{30, 30, 30, 30})

	tmpl := template.New()
	err := tmpl.Set(model.CategoryRenewableDispatch, template.RenewableCurtailableDispatch,
		template.Parameters{"curtailment_penalty": 1})
	if err != nil {
		t.Fatalf("template: %v", err)
	}

	m := buildAndSolve(t, g, tmpl, testWindow(4), nil)

	curtailed, err := m.Extract(model.FamilyCurtailment)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for i, v := range curtailed["wind1"] {
		if math.Abs(v-20) > 1e-6 {
			t.Fatalf("step %d curtailment %v, want 20", i, v)
		}
	}
	if got := m.SolveStats().Objective; math.Abs(got-80) > 1e-6 {
		t.Fatalf("objective %v, want 80", got)
	}
}

func TestStorageDisplacesThermal(t *testing.T) {
	g := grid.NewModel("storage")
	if err := g.AddComponent(model.Component{
		Name: "gas1", Category: model.CategoryThermal, Available: true,
		Ratings: model.Ratings{MaxActivePowerMW: 100, VariableCost: 10},
	}); err != nil {
		t.Fatalf("add thermal: %v", err)
	}
	if err := g.AddComponent(model.Component{
		Name: "batt1", Category: model.CategoryStorage, Available: true,
		Ratings: model.Ratings{MaxActivePowerMW: 50},
		Storage: model.StorageRatings{EnergyCapacityMWh: 100, Efficiency: 1, InitialEnergyMWh: 50},
	}); err != nil {
		t.Fatalf("add storage: %v", err)
	}
	addLoad(t, g, "city", []float64{60, 60})

	tmpl := template.New()
	if err := tmpl.Set(model.CategoryThermal, template.ThermalBasicDispatch, nil); err != nil {
		t.Fatalf("template: %v", err)
	}
	if err := tmpl.Set(model.CategoryStorage, template.StorageEnergyBalance, nil); err != nil {
		t.Fatalf("template: %v", err)
	}

	m := buildAndSolve(t, g, tmpl, testWindow(2), nil)

	// The free 50 MWh of stored energy displaces thermal production.
	if got := m.SolveStats().Objective; math.Abs(got-700) > 1e-6 {
		t.Fatalf("objective %v, want 700", got)
	}
	energy, err := m.Extract(model.FamilyStorageEnergy)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if terminal := energy["batt1"][1]; math.Abs(terminal) > 1e-6 {
		t.Fatalf("terminal energy %v, want 0", terminal)
	}
	power, err := m.Extract(model.FamilyActivePower)
	if err != nil {
		t.Fatalf("extract power: %v", err)
	}
	total := power["gas1"][0] + power["gas1"][1]
	if math.Abs(total-70) > 1e-6 {
		t.Fatalf("thermal energy %v, want 70", total)
	}
}

func TestBuildErrors(t *testing.T) {
	spec := testWindow(4)

	t.Run("unmapped category", func(t *testing.T) {
		g := grid.NewModel("g")
		if err := g.AddComponent(model.Component{
			Name: "gas1", Category: model.CategoryThermal, Available: true,
			Ratings: model.Ratings{MaxActivePowerMW: 100},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
		m := New("test", solver.NewSimplex(), solver.Options{})
		err := m.Build(g.Snapshot(), template.New(), spec, nil)
		if !errors.Is(err, model.ErrFormulationMismatch) {
			t.Fatalf("expected ErrFormulationMismatch, got %v", err)
		}
	})

	t.Run("mapped category without components", func(t *testing.T) {
		g := grid.NewModel("g")
		addLoad(t, g, "city", []float64{10, 10, 10, 10})
		tmpl := template.New()
		if err := tmpl.Set(model.CategoryThermal, template.ThermalBasicDispatch, nil); err != nil {
			t.Fatalf("template: %v", err)
		}
		m := New("test", solver.NewSimplex(), solver.Options{})
		err := m.Build(g.Snapshot(), tmpl, spec, nil)
		if !errors.Is(err, model.ErrUnknownCategory) {
			t.Fatalf("expected ErrUnknownCategory, got %v", err)
		}
	})

	t.Run("missing series", func(t *testing.T) {
		g := grid.NewModel("g")
		if err := g.AddComponent(model.Component{
			Name: "wind1", Category: model.CategoryRenewableDispatch, Available: true,
			Ratings: model.Ratings{MaxActivePowerMW: 80},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
		tmpl := template.New()
		if err := tmpl.Set(model.CategoryRenewableDispatch, template.RenewableFixedDispatch, nil); err != nil {
			t.Fatalf("template: %v", err)
		}
		m := New("test", solver.NewSimplex(), solver.Options{})
		err := m.Build(g.Snapshot(), tmpl, spec, nil)
		if !errors.Is(err, model.ErrWindowDataMissing) {
			t.Fatalf("expected ErrWindowDataMissing, got %v", err)
		}
	})
}

func TestLifecycle(t *testing.T) {
	g := grid.NewModel("g")
	if err := g.AddComponent(model.Component{
		Name: "gas1", Category: model.CategoryThermal, Available: true,
		Ratings: model.Ratings{MaxActivePowerMW: 100, VariableCost: 10},
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	addLoad(t, g, "city", []float64{40, 40, 40, 40})
	tmpl := template.New()
	if err := tmpl.Set(model.CategoryThermal, template.ThermalBasicDispatch, nil); err != nil {
		t.Fatalf("template: %v", err)
	}

	m := New("test", solver.NewSimplex(), solver.Options{})
	if err := m.Solve(context.Background()); err == nil {
		t.Fatal("expected error solving an unbuilt model")
	}
	if _, err := m.Extract(model.FamilyActivePower); !errors.Is(err, model.ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved, got %v", err)
	}

	if err := m.Build(g.Snapshot(), tmpl, testWindow(4), nil); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := m.Build(g.Snapshot(), tmpl, testWindow(4), nil); err == nil {
		t.Fatal("expected error building twice")
	}
	if _, err := m.Extract(model.FamilyActivePower); !errors.Is(err, model.ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved before solve, got %v", err)
	}

	if err := m.Solve(context.Background()); err != nil {
		t.Fatalf("solve: %v", err)
	}
	if m.Status() != StatusSolved {
		t.Fatalf("status %s, want solved", m.Status())
	}

	stats := m.BuildStats()
	if stats.Variables == 0 || stats.Constraints == 0 {
		t.Fatalf("empty build stats: %+v", stats)
	}
}

func TestInfeasibleLoadFailsSolve(t *testing.T) {
	g := grid.NewModel("g")
	if err := g.AddComponent(model.Component{
		Name: "gas1", Category: model.CategoryThermal, Available: true,
		Ratings: model.Ratings{MaxActivePowerMW: 30, VariableCost: 10},
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	addLoad(t, g, "city", []float64{100, 100})
	tmpl := template.New()
	if err := tmpl.Set(model.CategoryThermal, template.ThermalBasicDispatch, nil); err != nil {
		t.Fatalf("template: %v", err)
	}

	m := New("test", solver.NewSimplex(), solver.Options{})
	if err := m.Build(g.Snapshot(), tmpl, testWindow(2), nil); err != nil {
		t.Fatalf("build: %v", err)
	}
	err := m.Solve(context.Background())
	if !errors.Is(err, model.ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
	if m.Status() != StatusFailed {
		t.Fatalf("status %s, want failed", m.Status())
	}
	if _, err := m.Results(); !errors.Is(err, model.ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved after failure, got %v", err)
	}
}

func TestCancelledSolveNeverReportsSolved(t *testing.T) {
	g := grid.NewModel("g")
	if err := g.AddComponent(model.Component{
		Name: "gas1", Category: model.CategoryThermal, Available: true,
		Ratings: model.Ratings{MaxActivePowerMW: 100, VariableCost: 10},
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	addLoad(t, g, "city", []float64{40, 50, 60, 50})
	tmpl := template.New()
	if err := tmpl.Set(model.CategoryThermal, template.ThermalBasicDispatch, nil); err != nil {
		t.Fatalf("template: %v", err)
	}

	m := New("test", solver.NewSimplex(), solver.Options{})
	if err := m.Build(g.Snapshot(), tmpl, testWindow(4), nil); err != nil {
		t.Fatalf("build: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Solve(ctx)
	if !errors.Is(err, model.ErrSolverInterrupted) {
		t.Fatalf("expected ErrSolverInterrupted, got %v", err)
	}
	if m.Status() != StatusFailed {
		t.Fatalf("status %s after cancelled solve, want failed", m.Status())
	}
	if _, err := m.Extract(model.FamilyActivePower); !errors.Is(err, model.ErrNotSolved) {
		t.Fatalf("expected ErrNotSolved after cancellation, got %v", err)
	}
}

func TestCommitmentNeverCheaperThanBasic(t *testing.T) {
	load := []float64{40, 60, 80, 60}
	build := func(v template.Variant) *Model {
		g := grid.NewModel("g")
		if err := g.AddComponent(model.Component{
			Name: "gas1", Category: model.CategoryThermal, Available: true,
			Ratings: model.Ratings{MaxActivePowerMW: 100, MinActivePowerMW: 20, VariableCost: 10},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
		addLoad(t, g, "city", load)
		tmpl := template.New()
		if err := tmpl.Set(model.CategoryThermal, v, nil); err != nil {
			t.Fatalf("template: %v", err)
		}
		return buildAndSolve(t, g, tmpl, testWindow(4), nil)
	}

	basic := build(template.ThermalBasicDispatch).SolveStats().Objective
	committed := build(template.ThermalUnitCommitment).SolveStats().Objective
	if committed < basic-1e-6 {
		t.Fatalf("commitment objective %v below relaxed dispatch %v", committed, basic)
	}
}

func TestSystemBaseRunMatchesNaturalUnits(t *testing.T) {
	load := []float64{40, 60, 80, 60}
	build := func(base model.UnitBase) *Model {
		g := grid.NewModel("g")
		if err := g.AddComponent(model.Component{
			Name: "gas1", Category: model.CategoryThermal, Available: true,
			Ratings: model.Ratings{
				MaxActivePowerMW: 100, VariableCost: 10, RampLimitMWPerHr: 50,
			},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
		addLoad(t, g, "city", load)
		if base != model.NaturalUnits {
			if err := g.SetUnitContext(model.UnitContext{Base: base, SystemBaseMVA: 100}); err != nil {
				t.Fatalf("unit context: %v", err)
			}
		}
		tmpl := template.New()
		if err := tmpl.Set(model.CategoryThermal, template.ThermalBasicDispatch, nil); err != nil {
			t.Fatalf("template: %v", err)
		}
		return buildAndSolve(t, g, tmpl, testWindow(4), nil)
	}

	natural := build(model.NaturalUnits)
	perUnit := build(model.SystemBase)

	// The objective is in currency either way; only the dispatch numbers
	// change base.
	nObj := natural.SolveStats().Objective
	pObj := perUnit.SolveStats().Objective
	if math.Abs(nObj-pObj) > 1e-6 {
		t.Fatalf("per-unit objective %v, natural objective %v", pObj, nObj)
	}

	nPower, err := natural.Extract(model.FamilyActivePower)
	if err != nil {
		t.Fatalf("extract natural: %v", err)
	}
	pPower, err := perUnit.Extract(model.FamilyActivePower)
	if err != nil {
		t.Fatalf("extract per-unit: %v", err)
	}
	for i := range load {
		if math.Abs(pPower["gas1"][i]-nPower["gas1"][i]/100) > 1e-9 {
			t.Fatalf("step %d per-unit dispatch %v, want %v", i, pPower["gas1"][i], nPower["gas1"][i]/100)
		}
	}
}
