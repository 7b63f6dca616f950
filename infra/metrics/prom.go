package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/gridworks/prodcost/core/metrics"
)

// PromSink records simulation step events in Prometheus metrics.
type PromSink struct {
	builds    *prometheus.CounterVec
	solves    *prometheus.CounterVec
	failures  *prometheus.CounterVec
	solveTime *prometheus.HistogramVec
	objective *prometheus.GaugeVec
}

// NewPromSink registers simulation metrics on the default Prometheus
// registerer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_step_builds_total",
		Help: "Total number of decision model builds",
	}, []string{"run"})
	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_step_solves_total",
		Help: "Total number of solved steps",
	}, []string{"run"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_step_failures_total",
		Help: "Total number of halted steps",
	}, []string{"run", "kind"})
	solveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_solve_seconds",
		Help:    "Solver wall time per step",
		Buckets: prometheus.DefBuckets,
	}, []string{"run"})
	objective := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_step_objective",
		Help: "Objective value of the last solved step",
	}, []string{"run"})

	sink := &PromSink{builds: builds, solves: solves, failures: failures, solveTime: solveTime, objective: objective}
	for _, c := range []prometheus.Collector{builds, solves, failures, solveTime, objective} {
		if err := register(reg, c, sink); err != nil {
			return nil, err
		}
	}
	return sink, nil
}

// register tolerates re-registration by reusing the existing collector.
func register(reg prometheus.Registerer, c prometheus.Collector, s *PromSink) error {
	err := reg.Register(c)
	if err == nil {
		return nil
	}
	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return err
	}
	switch existing := are.ExistingCollector.(type) {
	case *prometheus.CounterVec:
		switch c {
		case s.builds:
			s.builds = existing
		case s.solves:
			s.solves = existing
		case s.failures:
			s.failures = existing
		}
	case *prometheus.HistogramVec:
		s.solveTime = existing
	case *prometheus.GaugeVec:
		s.objective = existing
	}
	return nil
}

// RecordBuild implements coremetrics.Sink.
func (s *PromSink) RecordBuild(ev coremetrics.StepBuildEvent) error {
	s.builds.WithLabelValues(ev.Run).Inc()
	return nil
}

// RecordSolve implements coremetrics.Sink.
func (s *PromSink) RecordSolve(ev coremetrics.StepSolveEvent) error {
	s.solves.WithLabelValues(ev.Run).Inc()
	s.solveTime.WithLabelValues(ev.Run).Observe(ev.WallTime.Seconds())
	s.objective.WithLabelValues(ev.Run).Set(ev.Objective)
	return nil
}

// RecordFailure implements coremetrics.Sink.
func (s *PromSink) RecordFailure(ev coremetrics.StepFailureEvent) error {
	s.failures.WithLabelValues(ev.Run, ev.Kind).Inc()
	return nil
}

// Close implements coremetrics.Sink.
func (s *PromSink) Close() error { return nil }
