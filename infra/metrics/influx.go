package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/gridworks/prodcost/core/metrics"
	"github.com/gridworks/prodcost/infra/logger"
)

// InfluxSink writes step events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails, so a missing telemetry
// backend never blocks a simulation run.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBuild implements coremetrics.Sink.
func (s *InfluxSink) RecordBuild(ev coremetrics.StepBuildEvent) error {
	p := write.NewPointWithMeasurement("simulation_build").
		AddTag("run", ev.Run).
		AddTag("step", strconv.Itoa(ev.Step)).
		AddField("variables", ev.Variables).
		AddField("constraints", ev.Constraints).
		AddField("binaries", ev.Binaries).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSolve implements coremetrics.Sink.
func (s *InfluxSink) RecordSolve(ev coremetrics.StepSolveEvent) error {
	p := write.NewPointWithMeasurement("simulation_solve").
		AddTag("run", ev.Run).
		AddTag("step", strconv.Itoa(ev.Step)).
		AddField("objective", ev.Objective).
		AddField("best_bound", ev.BestBound).
		AddField("wall_seconds", ev.WallTime.Seconds()).
		AddField("simplex_calls", ev.SimplexCalls).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordFailure implements coremetrics.Sink.
func (s *InfluxSink) RecordFailure(ev coremetrics.StepFailureEvent) error {
	p := write.NewPointWithMeasurement("simulation_failure").
		AddTag("run", ev.Run).
		AddTag("step", strconv.Itoa(ev.Step)).
		AddTag("kind", ev.Kind).
		AddField("best_bound", ev.BestBound).
		SetTime(ev.Time)
	return s.write(p)
}

// Close implements coremetrics.Sink.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
