// Package simulation owns the rolling-horizon loop: it builds, solves
// and chains decision models over consecutive time windows, carrying
// state from each window's solution into the next window's initial
// conditions.
package simulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gridworks/prodcost/core/decision"
	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/core/solver"
	"github.com/gridworks/prodcost/core/template"
	"github.com/gridworks/prodcost/infra/logger"
	"github.com/gridworks/prodcost/internal/eventbus"
)

// State tracks the orchestrator lifecycle for one run.
type State int

const (
	StateUnbuilt State = iota
	StateBuilding
	StateBuilt
	StateExecuting
	StateCompleted
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure identifies which step halted a run and why.
type Failure struct {
	Step      int
	Err       error
	BestBound float64
}

// Options configure one orchestrator run.
type Options struct {
	// Name labels the run in the results store.
	Name string
	// ID forces the run identity; empty generates a fresh uuid.
	ID string
	// Steps is the number of rolling-horizon steps to execute.
	Steps int
	// Window is the step-0 window; each later step advances it by one
	// full window length.
	Window model.WindowSpec
	// Solver options forwarded to every step's solve.
	Solver solver.Options
}

// Orchestrator executes one simulation run: N sequential windows with
// initial conditions chained by the sequence's chronology. Each
// orchestrator owns a distinct run identity; results of distinct runs
// are never merged.
type Orchestrator struct {
	mu sync.Mutex

	seq  Sequence
	opts Options
	slv  solver.Solver
	sink ResultsSink
	bus  eventbus.EventBus
	log  logger.Logger

	id      string
	state   State
	tmpl    *template.Template
	models  []*decision.Model
	failure *Failure
}

// New wires an orchestrator. A nil sink discards results and a nil bus
// disables events.
func New(seq Sequence, slv solver.Solver, sink ResultsSink, bus eventbus.EventBus, opts Options) (*Orchestrator, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if slv == nil {
		return nil, fmt.Errorf("orchestrator requires a solver")
	}
	if opts.Steps <= 0 {
		return nil, fmt.Errorf("orchestrator requires a positive step count")
	}
	if err := opts.Window.Validate(); err != nil {
		return nil, fmt.Errorf("step-0 window: %w", err)
	}
	if sink == nil {
		sink = NopSink{}
	}
	if opts.Name == "" {
		opts.Name = "simulation"
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	return &Orchestrator{
		seq:  seq,
		opts: opts,
		slv:  slv,
		sink: sink,
		bus:  bus,
		log:  logger.New("orchestrator"),
		id:   opts.ID,
		// The template is frozen here: later caller mutations of the
		// sequence template never reach this run.
		tmpl:   seq.Template.Clone(),
		models: make([]*decision.Model, opts.Steps),
	}, nil
}

// ID returns the run identity.
func (o *Orchestrator) ID() string { return o.id }

// Name returns the run name.
func (o *Orchestrator) Name() string { return o.opts.Name }

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Failure returns the halt record of a failed run, or nil.
func (o *Orchestrator) Failure() *Failure {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failure
}

// Model returns the decision model of a step, nil if not yet built.
func (o *Orchestrator) Model(step int) *decision.Model {
	o.mu.Lock()
	defer o.mu.Unlock()
	if step < 0 || step >= len(o.models) {
		return nil
	}
	return o.models[step]
}

// Build validates the template against the current grid snapshot and
// assembles step 0 from the externally supplied initial conditions.
// Later steps are assembled during Execute, each seeded by its
// predecessor's solution. Any build failure leaves the orchestrator
// Failed before solver time is spent.
func (o *Orchestrator) Build(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateUnbuilt {
		return fmt.Errorf("build called in state %s: %w", o.state, model.ErrRunConsumed)
	}
	o.state = StateBuilding

	if err := o.buildStepLocked(0, o.seq.Initial); err != nil {
		o.state = StateFailed
		o.failure = &Failure{Step: 0, Err: err}
		o.publish(StepFailed{Run: o.opts.Name, Step: 0, Err: err})
		return fmt.Errorf("step 0 build: %w", err)
	}
	o.state = StateBuilt
	return nil
}

// buildStepLocked assembles the decision model for one step from a
// fresh grid snapshot.
func (o *Orchestrator) buildStepLocked(step int, ics *model.InitialConditionSet) error {
	window := o.opts.Window
	for i := 0; i < step; i++ {
		window = window.Advance()
	}
	m := decision.New(fmt.Sprintf("%s-step-%d", o.opts.Name, step), o.slv, o.opts.Solver)
	if err := m.Build(o.seq.Grid.Snapshot(), o.tmpl, window, ics); err != nil {
		return err
	}
	o.models[step] = m
	stats := m.BuildStats()
	o.log.Debugw("step built", map[string]any{
		"run": o.opts.Name, "step": step,
		"variables": stats.Variables, "constraints": stats.Constraints,
	})
	o.publish(StepBuilt{Run: o.opts.Name, Step: step, Stats: stats})
	return nil
}

// Execute iterates the steps in strict order: solve, advance the
// chronology, persist, build the next step. A failing step halts the
// run; results persisted by earlier steps remain valid. A completed or
// failed orchestrator refuses re-execution.
func (o *Orchestrator) Execute(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateBuilt {
		st := o.state
		o.mu.Unlock()
		if st == StateCompleted || st == StateFailed {
			return fmt.Errorf("execute called in state %s: %w", st, model.ErrRunConsumed)
		}
		return fmt.Errorf("execute called in state %s", st)
	}
	o.state = StateExecuting
	o.mu.Unlock()

	totalCost := 0.0
	for step := 0; step < o.opts.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return o.halt(step, fmt.Errorf("%w: %v", model.ErrSolverInterrupted, err))
		}
		m := o.Model(step)
		if m == nil || m.Status() != decision.StatusBuilt {
			return o.halt(step, fmt.Errorf("step %d: %w", step, model.ErrStepNotReady))
		}

		if err := m.Solve(ctx); err != nil {
			return o.halt(step, err)
		}
		table, err := m.Results()
		if err != nil {
			return o.halt(step, err)
		}
		if err := o.sink.Persist(step, table); err != nil {
			return o.halt(step, fmt.Errorf("persist step %d: %w", step, err))
		}
		totalCost += table.Solve.Objective
		o.publish(StepSolved{Run: o.opts.Name, Step: step, Stats: table.Solve})
		o.log.Infof("run %s step %d solved: objective=%.4f wall=%s",
			o.opts.Name, step, table.Solve.Objective, table.Solve.WallTime)

		if step == o.opts.Steps-1 {
			break
		}
		ics, err := o.seq.Chronology.Advance(m)
		if err != nil {
			return o.halt(step, err)
		}
		o.mu.Lock()
		err = o.buildStepLocked(step+1, ics)
		o.mu.Unlock()
		if err != nil {
			return o.halt(step+1, err)
		}
	}

	o.mu.Lock()
	o.state = StateCompleted
	o.mu.Unlock()
	o.publish(RunCompleted{Run: o.opts.Name, Steps: o.opts.Steps, TotalCost: totalCost})
	o.log.Infof("run %s completed: %d steps, total objective %.4f", o.opts.Name, o.opts.Steps, totalCost)
	return nil
}

// halt records the failing step and transitions to Failed.
func (o *Orchestrator) halt(step int, err error) error {
	bound := 0.0
	if m := o.Model(step); m != nil {
		bound = m.SolveStats().BestBound
	}
	o.mu.Lock()
	o.state = StateFailed
	o.failure = &Failure{Step: step, Err: err, BestBound: bound}
	o.mu.Unlock()
	o.publish(StepFailed{Run: o.opts.Name, Step: step, Err: err, BestBound: bound})
	o.log.Errorf("run %s halted at step %d: %v", o.opts.Name, step, err)
	return fmt.Errorf("run %s step %d: %w", o.opts.Name, step, err)
}

func (o *Orchestrator) publish(e eventbus.Event) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}

// RunScenarios executes independent orchestrators concurrently. Each
// owns its own grid snapshot chain and decision models, so scenarios
// share no mutable state. Errors are returned per orchestrator index.
func RunScenarios(ctx context.Context, orchs []*Orchestrator) []error {
	errs := make([]error, len(orchs))
	var wg sync.WaitGroup
	for i, o := range orchs {
		wg.Add(1)
		go func(i int, o *Orchestrator) {
			defer wg.Done()
			if err := o.Build(ctx); err != nil {
				errs[i] = err
				return
			}
			errs[i] = o.Execute(ctx)
		}(i, o)
	}
	wg.Wait()
	return errs
}
