// Package metrics defines the sink interfaces used to record simulation
// telemetry. Sinks like PromSink and InfluxSink record step builds,
// solves and failures and can be combined with a MultiSink.
package metrics

import (
	"time"

	"github.com/gridworks/prodcost/core/factory"
)

// StepBuildEvent captures problem-size diagnostics of one step build.
type StepBuildEvent struct {
	Run         string
	Step        int
	Variables   int
	Constraints int
	Binaries    int
	Time        time.Time
}

// StepSolveEvent captures the outcome of one step solve.
type StepSolveEvent struct {
	Run          string
	Step         int
	Objective    float64
	BestBound    float64
	WallTime     time.Duration
	SimplexCalls int
	Time         time.Time
}

// StepFailureEvent captures a halted step.
type StepFailureEvent struct {
	Run       string
	Step      int
	Kind      string
	BestBound float64
	Time      time.Time
}

// Sink records simulation telemetry for observability purposes.
type Sink interface {
	RecordBuild(ev StepBuildEvent) error
	RecordSolve(ev StepSolveEvent) error
	RecordFailure(ev StepFailureEvent) error
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordBuild(StepBuildEvent) error     { return nil }
func (NopSink) RecordSolve(StepSolveEvent) error     { return nil }
func (NopSink) RecordFailure(StepFailureEvent) error { return nil }
func (NopSink) Close() error                         { return nil }

// MultiSink fans events out to multiple sinks, returning the first
// error encountered.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordBuild(ev StepBuildEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordBuild(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordSolve(ev StepSolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordFailure(ev StepFailureEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordFailure(ev); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, returning the first error.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// registry holds the sink factories registered by infra packages.
var registry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink factory under the given type name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return registry.Register(name, f)
}

// NewSink instantiates the configured sinks. Zero sinks yields a
// NopSink, one is returned directly, several are wrapped in a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := registry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
