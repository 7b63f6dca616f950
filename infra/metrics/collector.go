package metrics

import (
	"context"
	"time"

	coremetrics "github.com/gridworks/prodcost/core/metrics"
	"github.com/gridworks/prodcost/core/simulation"
	"github.com/gridworks/prodcost/infra/logger"
	"github.com/gridworks/prodcost/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records step
// lifecycle events into the sink. It stops when the context is
// canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record event: %v", err)
				}
			}
		}
	}()
}

func record(sink coremetrics.Sink, ev eventbus.Event) error {
	now := time.Now()
	switch e := ev.(type) {
	case simulation.StepBuilt:
		return sink.RecordBuild(coremetrics.StepBuildEvent{
			Run:         e.Run,
			Step:        e.Step,
			Variables:   e.Stats.Variables,
			Constraints: e.Stats.Constraints,
			Binaries:    e.Stats.Binaries,
			Time:        now,
		})
	case simulation.StepSolved:
		return sink.RecordSolve(coremetrics.StepSolveEvent{
			Run:          e.Run,
			Step:         e.Step,
			Objective:    e.Stats.Objective,
			BestBound:    e.Stats.BestBound,
			WallTime:     e.Stats.WallTime,
			SimplexCalls: e.Stats.SimplexCalls,
			Time:         now,
		})
	case simulation.StepFailed:
		kind := "unknown"
		if e.Err != nil {
			kind = errorKind(e.Err)
		}
		return sink.RecordFailure(coremetrics.StepFailureEvent{
			Run:       e.Run,
			Step:      e.Step,
			Kind:      kind,
			BestBound: e.BestBound,
			Time:      now,
		})
	default:
		return nil
	}
}
