package metrics

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chpcoupling/core/audit"
)

// ViolationEvent is the recorded part of one audit violation.
type ViolationEvent struct {
	Kind   string
	Point  string
	Branch string
	Gap    float64
}

// AuditEvent is an audit report flattened for metrics sinks.
type AuditEvent struct {
	ReportID     uuid.UUID
	Pair         string
	Formulation  string
	Synchronized bool
	Satisfiable  bool
	Violations   []ViolationEvent
	Time         time.Time
}

// NewAuditEvent converts a report into an event.
func NewAuditEvent(rep audit.Report) AuditEvent {
	ev := AuditEvent{
		ReportID:     rep.ID,
		Pair:         rep.Pair,
		Formulation:  rep.Formulation.String(),
		Synchronized: rep.Synchronized,
		Satisfiable:  rep.IsSatisfiable(),
		Time:         rep.CheckedAt,
	}
	for _, v := range rep.Violations {
		ev.Violations = append(ev.Violations, ViolationEvent{
			Kind:   string(v.Kind),
			Point:  string(v.Point),
			Branch: v.Branch,
			Gap:    v.Gap,
		})
	}
	return ev
}

// AuditSink records audit reports for observability purposes.
type AuditSink interface {
	RecordAudit(ev AuditEvent) error
}

// SolveEvent summarises one solver run of a scenario.
type SolveEvent struct {
	ReportID   uuid.UUID
	Pair       string
	Feasible   bool
	Objective  float64
	Unserved   float64
	Fractional int
	Duration   time.Duration
	Time       time.Time
}

// SolveRecorder is implemented by sinks able to record solver runs.
type SolveRecorder interface {
	RecordSolve(ev SolveEvent) error
}

// NopSink implements AuditSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAudit(AuditEvent) error { return nil }
func (NopSink) RecordSolve(SolveEvent) error { return nil }
