// Package app wires the configuration, grid model, orchestrator and
// telemetry into a runnable simulation service.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gridworks/prodcost/config"
	"github.com/gridworks/prodcost/core/chronology"
	coremetrics "github.com/gridworks/prodcost/core/metrics"
	"github.com/gridworks/prodcost/core/simulation"
	"github.com/gridworks/prodcost/core/solver"
	"github.com/gridworks/prodcost/infra/logger"
	inframetrics "github.com/gridworks/prodcost/infra/metrics"
	"github.com/gridworks/prodcost/infra/results"
	"github.com/gridworks/prodcost/internal/eventbus"
)

// Service owns one configured simulation run.
type Service struct {
	Orchestrator *simulation.Orchestrator
	Store        *results.Store

	bus  eventbus.EventBus
	sink coremetrics.Sink
	log  logger.Logger
}

// New creates a Service from the configuration and a system file path.
func New(cfg *config.Config, systemPath string) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	g, tmpl, err := LoadSystem(systemPath)
	if err != nil {
		return nil, fmt.Errorf("load system: %w", err)
	}

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	runID := uuid.NewString()
	store, err := results.NewStore(cfg.Results.Directory, cfg.Simulation.Name, runID)
	if err != nil {
		return nil, fmt.Errorf("results store: %w", err)
	}

	bus := eventbus.New()
	seq := simulation.Sequence{
		Grid:       g,
		Template:   tmpl,
		Chronology: chronology.NewInterProblem(),
	}
	orch, err := simulation.New(seq, solver.NewSimplex(), store, bus, simulation.Options{
		Name:   cfg.Simulation.Name,
		ID:     runID,
		Steps:  cfg.Simulation.Steps,
		Window: cfg.Simulation.Window(),
		Solver: cfg.Solver.Options(),
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	return &Service{
		Orchestrator: orch,
		Store:        store,
		bus:          bus,
		sink:         sink,
		log:          logg,
	}, nil
}

// Run executes the simulation and blocks until it completes or fails.
func (s *Service) Run(ctx context.Context) error {
	inframetrics.StartEventCollector(ctx, s.bus, s.sink)
	if err := s.Orchestrator.Build(ctx); err != nil {
		return err
	}
	if err := s.Orchestrator.Execute(ctx); err != nil {
		if f := s.Orchestrator.Failure(); f != nil {
			s.log.Errorf("run %s failed at step %d (best bound %.4f): %v",
				s.Orchestrator.Name(), f.Step, f.BestBound, f.Err)
		}
		return err
	}
	s.log.Infof("results written to %s", s.Store.Dir())
	return nil
}

// Close flushes and releases telemetry resources.
func (s *Service) Close() error {
	s.bus.Close()
	return s.sink.Close()
}
