package decision

import (
	"fmt"
	"math"

	"github.com/gridworks/prodcost/core/grid"
	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/core/solver"
	"github.com/gridworks/prodcost/core/template"
)

// roleMaxActivePower is the logical series role formulations resolve for
// renewable forecasts and load profiles.
const roleMaxActivePower = "max_active_power"

// paramCurtailmentPenalty tunes the curtailable-renewable variant.
const paramCurtailmentPenalty = "curtailment_penalty"

type costEntry struct {
	cat  model.Category
	step int
	col  int
	coef float64
}

// variableIndex maps components to their problem columns per timestep
// and records the per-category cost structure for extraction.
type variableIndex struct {
	steps     int
	power     map[string][]int
	commit    map[string][]int
	curtail   map[string][]int
	charge    map[string][]int
	discharge map[string][]int
	energy    map[string][]int
	costs     []costEntry
	// categories with included components; cost extraction reports a
	// zero series for them even when no cost term exists.
	cats map[model.Category]bool
}

func newVariableIndex(steps int) *variableIndex {
	return &variableIndex{
		steps:     steps,
		power:     make(map[string][]int),
		commit:    make(map[string][]int),
		curtail:   make(map[string][]int),
		charge:    make(map[string][]int),
		discharge: make(map[string][]int),
		energy:    make(map[string][]int),
		cats:      make(map[model.Category]bool),
	}
}

func (v *variableIndex) extract(family model.VariableFamily, x []float64, _ model.WindowSpec) (map[string][]float64, error) {
	gather := func(idx map[string][]int) map[string][]float64 {
		out := make(map[string][]float64, len(idx))
		for name, cols := range idx {
			vals := make([]float64, len(cols))
			for t, c := range cols {
				vals[t] = clampSmall(x[c])
			}
			out[name] = vals
		}
		return out
	}

	switch family {
	case model.FamilyActivePower:
		out := gather(v.power)
		for name, chCols := range v.charge {
			disCols := v.discharge[name]
			vals := make([]float64, len(chCols))
			for t := range chCols {
				vals[t] = clampSmall(x[disCols[t]] - x[chCols[t]])
			}
			out[name] = vals
		}
		return out, nil
	case model.FamilyOnStatus:
		out := gather(v.commit)
		for _, vals := range out {
			for t := range vals {
				vals[t] = math.Round(vals[t])
			}
		}
		return out, nil
	case model.FamilyCurtailment:
		return gather(v.curtail), nil
	case model.FamilyStorageEnergy:
		return gather(v.energy), nil
	case model.FamilyCostByCategory:
		out := make(map[string][]float64)
		for cat := range v.cats {
			out[cat.String()] = make([]float64, v.steps)
		}
		for _, e := range v.costs {
			out[e.cat.String()][e.step] += e.coef * x[e.col]
		}
		for _, vals := range out {
			for t := range vals {
				vals[t] = clampSmall(vals[t])
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown variable family %s", family)
	}
}

// clampSmall zeroes solver noise below the integrality scale.
func clampSmall(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

type builder struct {
	snap *grid.Snapshot
	tmpl *template.Template
	spec model.WindowSpec
	ics  *model.InitialConditionSet

	p       *solver.Problem
	vars    *variableIndex
	balance [][]solver.Term
	load    []float64
}

func newBuilder(snap *grid.Snapshot, tmpl *template.Template, spec model.WindowSpec, ics *model.InitialConditionSet) *builder {
	return &builder{
		snap:    snap,
		tmpl:    tmpl,
		spec:    spec,
		ics:     ics,
		p:       solver.NewProblem(),
		vars:    newVariableIndex(spec.Steps),
		balance: make([][]solver.Term, spec.Steps),
		load:    make([]float64, spec.Steps),
	}
}

func (b *builder) build() (*solver.Problem, *variableIndex, error) {
	if err := b.buildLoad(); err != nil {
		return nil, nil, err
	}
	for _, cat := range b.tmpl.Categories() {
		entry, _ := b.tmpl.Get(cat)
		for _, c := range b.snap.Components(cat) {
			if err := b.buildComponent(c, entry); err != nil {
				return nil, nil, err
			}
			b.vars.cats[cat] = true
		}
	}
	// System power balance per timestep, anchored by the load profile.
	hasLoad := len(b.snap.Components(model.CategoryLoad)) > 0
	if hasLoad {
		for t := 0; t < b.spec.Steps; t++ {
			b.p.AddEq(b.balance[t], b.load[t])
		}
	}
	return b.p, b.vars, nil
}

func (b *builder) buildLoad() error {
	for _, c := range b.snap.Components(model.CategoryLoad) {
		if !c.Available {
			continue
		}
		vals, err := b.snap.TimeSeries(c.Name, c.SeriesName(roleMaxActivePower), b.spec)
		if err != nil {
			return fmt.Errorf("load %s: %w", c.Name, err)
		}
		for t, v := range vals {
			b.load[t] += v
		}
	}
	return nil
}

func (b *builder) buildComponent(c model.Component, entry template.Entry) error {
	switch entry.Variant {
	case template.ThermalBasicDispatch:
		return b.thermalBasic(c)
	case template.ThermalUnitCommitment:
		return b.thermalCommitment(c)
	case template.RenewableFixedDispatch:
		return b.renewable(c, entry, false)
	case template.RenewableCurtailableDispatch:
		return b.renewable(c, entry, true)
	case template.StorageEnergyBalance:
		return b.storage(c)
	default:
		return fmt.Errorf("%w: component %s category %s variant %s",
			model.ErrFormulationMismatch, c.Name, c.Category, entry.Variant)
	}
}

// costScale converts a per-MWh cost coefficient so that it applies to a
// quantity expressed in the snapshot's unit base. The objective stays in
// currency regardless of the base.
func (b *builder) costScale(c model.Component) float64 {
	return b.snap.UnitContext().ToNatural(1, c.Ratings.BaseMVA)
}

// thermalBasic emits continuous dispatch in [0, Pmax] with ramp
// coupling. No commitment state, so the minimum stable level does not
// bind.
func (b *builder) thermalBasic(c model.Component) error {
	dt := b.spec.StepHours()
	pmax := b.snap.MaxActivePower(c)
	if !c.Available {
		pmax = 0
	}
	varCost := c.Ratings.VariableCost * dt * b.costScale(c)
	cols := make([]int, b.spec.Steps)
	for t := 0; t < b.spec.Steps; t++ {
		col := b.p.AddColumn(fmt.Sprintf("p[%s,%d]", c.Name, t), varCost, pmax)
		cols[t] = col
		b.balance[t] = append(b.balance[t], solver.Term{Col: col, Coef: 1})
		b.vars.costs = append(b.vars.costs, costEntry{cat: c.Category, step: t, col: col, coef: varCost})
	}
	b.rampRows(c, cols)
	b.vars.power[c.Name] = cols
	return nil
}

// thermalCommitment emits the unit-commitment variant: binary on/off
// per step, startup and shutdown indicators, minimum stable level,
// ramp coupling and minimum up/down times.
func (b *builder) thermalCommitment(c model.Component) error {
	dt := b.spec.StepHours()
	steps := b.spec.Steps
	pmax := b.snap.MaxActivePower(c)
	pmin := b.snap.MinActivePower(c)
	varCost := c.Ratings.VariableCost * dt * b.costScale(c)

	pCols := make([]int, steps)
	uCols := make([]int, steps)
	sCols := make([]int, steps)
	wCols := make([]int, steps)
	for t := 0; t < steps; t++ {
		pCols[t] = b.p.AddColumn(fmt.Sprintf("p[%s,%d]", c.Name, t), varCost, -1)
		uCols[t] = b.p.AddBinaryColumn(fmt.Sprintf("u[%s,%d]", c.Name, t), c.Ratings.NoLoadCost*dt)
		sCols[t] = b.p.AddColumn(fmt.Sprintf("s[%s,%d]", c.Name, t), c.Ratings.StartupCost, 1)
		wCols[t] = b.p.AddColumn(fmt.Sprintf("w[%s,%d]", c.Name, t), 0, 1)

		// Dispatch bounded by commitment.
		b.p.AddLessEq([]solver.Term{{Col: pCols[t], Coef: 1}, {Col: uCols[t], Coef: -pmax}}, 0)
		if pmin > 0 {
			b.p.AddLessEq([]solver.Term{{Col: uCols[t], Coef: pmin}, {Col: pCols[t], Coef: -1}}, 0)
		}
		if !c.Available {
			b.p.AddLessEq([]solver.Term{{Col: uCols[t], Coef: 1}}, 0)
		}

		b.balance[t] = append(b.balance[t], solver.Term{Col: pCols[t], Coef: 1})
		b.vars.costs = append(b.vars.costs,
			costEntry{cat: c.Category, step: t, col: pCols[t], coef: varCost},
			costEntry{cat: c.Category, step: t, col: uCols[t], coef: c.Ratings.NoLoadCost * dt},
			costEntry{cat: c.Category, step: t, col: sCols[t], coef: c.Ratings.StartupCost},
		)
	}

	// Startup/shutdown transition logic. The prior status comes from the
	// initial conditions; a cold start is assumed when none is supplied.
	prior, hasPrior := b.ics.Get(c.Name, model.ConditionOnStatus)
	for t := 0; t < steps; t++ {
		if t == 0 {
			b.p.AddLessEq([]solver.Term{{Col: uCols[0], Coef: 1}, {Col: sCols[0], Coef: -1}}, prior)
			b.p.AddLessEq([]solver.Term{{Col: uCols[0], Coef: -1}, {Col: wCols[0], Coef: -1}}, -prior)
			continue
		}
		b.p.AddLessEq([]solver.Term{{Col: uCols[t], Coef: 1}, {Col: uCols[t-1], Coef: -1}, {Col: sCols[t], Coef: -1}}, 0)
		b.p.AddLessEq([]solver.Term{{Col: uCols[t-1], Coef: 1}, {Col: uCols[t], Coef: -1}, {Col: wCols[t], Coef: -1}}, 0)
	}

	// Commitment continuity at the window boundary: the t=0 status is
	// pinned to the previous window's terminal status.
	if hasPrior && c.Available {
		b.p.AddEq([]solver.Term{{Col: uCols[0], Coef: 1}}, prior)
	}

	// Minimum up/down time within the window.
	lup := stepsFor(c.Ratings.MinUpHours, dt)
	if lup > 1 {
		for t := 0; t < steps; t++ {
			terms := []solver.Term{{Col: uCols[t], Coef: -1}}
			for tau := max(0, t-lup+1); tau <= t; tau++ {
				terms = append(terms, solver.Term{Col: sCols[tau], Coef: 1})
			}
			b.p.AddLessEq(terms, 0)
		}
	}
	ldown := stepsFor(c.Ratings.MinDownHours, dt)
	if ldown > 1 {
		for t := 0; t < steps; t++ {
			terms := []solver.Term{{Col: uCols[t], Coef: 1}}
			for tau := max(0, t-ldown+1); tau <= t; tau++ {
				terms = append(terms, solver.Term{Col: wCols[tau], Coef: 1})
			}
			b.p.AddLessEq(terms, 1)
		}
	}

	// Carryover of accumulated up/down time from the previous window.
	if hasPrior && c.Available {
		if prior >= 0.5 {
			held, _ := b.ics.Get(c.Name, model.ConditionUpTimeHours)
			for t := 1; t < min(steps, stepsFor(c.Ratings.MinUpHours-held, dt)); t++ {
				b.p.AddEq([]solver.Term{{Col: uCols[t], Coef: 1}}, 1)
			}
		} else {
			held, _ := b.ics.Get(c.Name, model.ConditionDownTimeHours)
			for t := 1; t < min(steps, stepsFor(c.Ratings.MinDownHours-held, dt)); t++ {
				b.p.AddEq([]solver.Term{{Col: uCols[t], Coef: 1}}, 0)
			}
		}
	}

	b.rampRows(c, pCols)
	b.vars.power[c.Name] = pCols
	b.vars.commit[c.Name] = uCols
	return nil
}

// rampRows couples consecutive dispatch levels; the t=0 level couples
// to the previous window's terminal dispatch when supplied.
func (b *builder) rampRows(c model.Component, pCols []int) {
	r := b.snap.RampLimit(c)
	if r <= 0 {
		return
	}
	limit := r * b.spec.StepHours()
	for t := 1; t < len(pCols); t++ {
		b.p.AddLessEq([]solver.Term{{Col: pCols[t], Coef: 1}, {Col: pCols[t-1], Coef: -1}}, limit)
		b.p.AddLessEq([]solver.Term{{Col: pCols[t-1], Coef: 1}, {Col: pCols[t], Coef: -1}}, limit)
	}
	if prior, ok := b.ics.Get(c.Name, model.ConditionActivePower); ok {
		b.p.AddLessEq([]solver.Term{{Col: pCols[0], Coef: 1}}, prior+limit)
		b.p.AddLessEq([]solver.Term{{Col: pCols[0], Coef: -1}}, limit-prior)
	}
}

// renewable emits fixed or curtailable dispatch against the forecast
// series. Unavailable components dispatch zero at zero cost.
func (b *builder) renewable(c model.Component, entry template.Entry, curtailable bool) error {
	forecast, err := b.snap.TimeSeries(c.Name, c.SeriesName(roleMaxActivePower), b.spec)
	if err != nil {
		return fmt.Errorf("renewable %s: %w", c.Name, err)
	}
	avail := 0.0
	if c.Available {
		avail = 1
	}
	penalty := entry.Param(paramCurtailmentPenalty, 0) * b.costScale(c)

	pCols := make([]int, b.spec.Steps)
	var cCols []int
	if curtailable {
		cCols = make([]int, b.spec.Steps)
	}
	for t := 0; t < b.spec.Steps; t++ {
		pCols[t] = b.p.AddColumn(fmt.Sprintf("p[%s,%d]", c.Name, t), 0, -1)
		if curtailable {
			cCols[t] = b.p.AddColumn(fmt.Sprintf("c[%s,%d]", c.Name, t), penalty, -1)
			b.p.AddEq([]solver.Term{{Col: pCols[t], Coef: 1}, {Col: cCols[t], Coef: 1}}, forecast[t]*avail)
			if penalty != 0 {
				b.vars.costs = append(b.vars.costs, costEntry{cat: c.Category, step: t, col: cCols[t], coef: penalty})
			}
		} else {
			b.p.AddEq([]solver.Term{{Col: pCols[t], Coef: 1}}, forecast[t]*avail)
		}
		b.balance[t] = append(b.balance[t], solver.Term{Col: pCols[t], Coef: 1})
	}
	b.vars.power[c.Name] = pCols
	if curtailable {
		b.vars.curtail[c.Name] = cCols
	}
	return nil
}

// storage emits the energy-balance variant: separate charge and
// discharge columns coupled to a bounded energy state.
func (b *builder) storage(c model.Component) error {
	dt := b.spec.StepHours()
	eta := c.Storage.Efficiency
	pmax := b.snap.MaxActivePower(c)
	if !c.Available {
		pmax = 0
	}
	eInit := b.snap.InitialEnergy(c)
	if v, ok := b.ics.Get(c.Name, model.ConditionStateOfCharge); ok {
		eInit = v
	}

	chCols := make([]int, b.spec.Steps)
	disCols := make([]int, b.spec.Steps)
	eCols := make([]int, b.spec.Steps)
	for t := 0; t < b.spec.Steps; t++ {
		chCols[t] = b.p.AddColumn(fmt.Sprintf("ch[%s,%d]", c.Name, t), 0, pmax)
		disCols[t] = b.p.AddColumn(fmt.Sprintf("dis[%s,%d]", c.Name, t), 0, pmax)
		eCols[t] = b.p.AddColumn(fmt.Sprintf("e[%s,%d]", c.Name, t), 0, b.snap.EnergyCapacity(c))

		terms := []solver.Term{
			{Col: eCols[t], Coef: 1},
			{Col: chCols[t], Coef: -eta * dt},
			{Col: disCols[t], Coef: dt / eta},
		}
		rhs := 0.0
		if t == 0 {
			rhs = eInit
		} else {
			terms = append(terms, solver.Term{Col: eCols[t-1], Coef: -1})
		}
		b.p.AddEq(terms, rhs)

		b.balance[t] = append(b.balance[t],
			solver.Term{Col: disCols[t], Coef: 1},
			solver.Term{Col: chCols[t], Coef: -1},
		)
	}
	b.vars.charge[c.Name] = chCols
	b.vars.discharge[c.Name] = disCols
	b.vars.energy[c.Name] = eCols
	return nil
}

// stepsFor converts an hour quantity into whole steps, rounding up.
func stepsFor(hours, stepHours float64) int {
	if hours <= 0 || stepHours <= 0 {
		return 0
	}
	return int(math.Ceil(hours / stepHours))
}
