package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/chpcoupling/core/metrics"
)

// lineServer collects the bodies of write requests.
type lineServer struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineServer) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	l.mu.Lock()
	l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
	l.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (l *lineServer) body() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.bodies, "\n")
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSinkRecordAudit(t *testing.T) {
	ls := &lineServer{}
	srv := httptest.NewServer(http.HandlerFunc(ls.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.MustParse("0b8a4a0e-1f7c-4c1e-8a55-7d5b8f4c9e21")
	ev := coremetrics.AuditEvent{
		ReportID:     id,
		Pair:         "bhkw",
		Formulation:  "banded",
		Synchronized: true,
		Violations:   []coremetrics.ViolationEvent{{Kind: "ConflictingMinimumLoad", Point: "minimum_load", Branch: "chp_boiler", Gap: -2.4}},
		Time:         now,
	}
	require.NoError(t, sink.RecordAudit(ev))

	audit := write.NewPointWithMeasurement("chp_audit").
		AddTag("pair", "bhkw").
		AddTag("report_id", id.String()).
		AddTag("formulation", "banded").
		AddTag("synchronized", "true").
		AddField("satisfiable", false).
		AddField("violations", 1).
		SetTime(now)
	violation := write.NewPointWithMeasurement("chp_audit_violation").
		AddTag("pair", "bhkw").
		AddTag("report_id", id.String()).
		AddTag("kind", "ConflictingMinimumLoad").
		AddTag("point", "minimum_load").
		AddTag("branch", "chp_boiler").
		AddField("gap", -2.4).
		SetTime(now)
	assert.Equal(t, line(audit)+"\n"+line(violation), ls.body())
}

func TestInfluxSinkRecordSolve(t *testing.T) {
	ls := &lineServer{}
	srv := httptest.NewServer(http.HandlerFunc(ls.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := coremetrics.SolveEvent{Pair: "bhkw", Feasible: true, Objective: 1234.56789, Duration: 1500 * time.Microsecond, Time: now}
	require.NoError(t, sink.RecordSolve(ev))

	p := write.NewPointWithMeasurement("chp_solve").
		AddTag("pair", "bhkw").
		AddTag("report_id", uuid.Nil.String()).
		AddTag("feasible", "true").
		AddField("objective", 1234.568).
		AddField("unserved", 0.0).
		AddField("fractional_binaries", 0).
		AddField("duration_ms", 1.5).
		SetTime(now)
	assert.Equal(t, line(p), ls.body())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called, "health endpoint not called")
}
