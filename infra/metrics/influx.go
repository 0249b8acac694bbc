package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/chpcoupling/core/metrics"
	"github.com/kilianp07/chpcoupling/infra/logger"
)

// InfluxSink writes audit reports to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
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
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.AuditSink {
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

// Close releases the client resources.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordAudit writes one chp_audit point and one chp_audit_violation point
// per violation.
func (s *InfluxSink) RecordAudit(ev coremetrics.AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := []*write.Point{auditPoint(ev)}
	for _, v := range ev.Violations {
		points = append(points, violationPoint(ev, v))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordSolve writes a chp_solve point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("chp_solve").
		AddTag("pair", ev.Pair).
		AddTag("report_id", ev.ReportID.String()).
		AddTag("feasible", strconv.FormatBool(ev.Feasible)).
		AddField("objective", round3(ev.Objective)).
		AddField("unserved", round3(ev.Unserved)).
		AddField("fractional_binaries", ev.Fractional).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func auditPoint(ev coremetrics.AuditEvent) *write.Point {
	return write.NewPointWithMeasurement("chp_audit").
		AddTag("pair", ev.Pair).
		AddTag("report_id", ev.ReportID.String()).
		AddTag("formulation", ev.Formulation).
		AddTag("synchronized", strconv.FormatBool(ev.Synchronized)).
		AddField("satisfiable", ev.Satisfiable).
		AddField("violations", len(ev.Violations)).
		SetTime(ev.Time)
}

func violationPoint(ev coremetrics.AuditEvent, v coremetrics.ViolationEvent) *write.Point {
	return write.NewPointWithMeasurement("chp_audit_violation").
		AddTag("pair", ev.Pair).
		AddTag("report_id", ev.ReportID.String()).
		AddTag("kind", v.Kind).
		AddTag("point", v.Point).
		AddTag("branch", v.Branch).
		AddField("gap", round3(v.Gap)).
		SetTime(ev.Time)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
