package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/gridworks/prodcost/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	ps := sink.(*PromSink)

	require.NoError(t, sink.RecordBuild(coremetrics.StepBuildEvent{Run: "r", Step: 0}))
	require.NoError(t, sink.RecordSolve(coremetrics.StepSolveEvent{
		Run: "r", Step: 0, Objective: 1234, WallTime: 50 * time.Millisecond,
	}))
	require.NoError(t, sink.RecordFailure(coremetrics.StepFailureEvent{
		Run: "r", Step: 1, Kind: "infeasible",
	}))

	require.Equal(t, 1.0, testutil.ToFloat64(ps.builds.WithLabelValues("r")))
	require.Equal(t, 1.0, testutil.ToFloat64(ps.solves.WithLabelValues("r")))
	require.Equal(t, 1.0, testutil.ToFloat64(ps.failures.WithLabelValues("r", "infeasible")))
	require.Equal(t, 1234.0, testutil.ToFloat64(ps.objective.WithLabelValues("r")))
}

func TestPromSinkReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordSolve(coremetrics.StepSolveEvent{Run: "r"}))
	require.NoError(t, b.RecordSolve(coremetrics.StepSolveEvent{Run: "r"}))

	// Both sinks share the collectors registered first.
	require.Equal(t, 2.0, testutil.ToFloat64(a.(*PromSink).solves.WithLabelValues("r")))
}
