package metrics

import "errors"

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []AuditSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...AuditSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAudit forwards the event to every sink. A failing sink does not
// stop the others; all errors are returned joined.
func (m *MultiSink) RecordAudit(ev AuditEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordAudit(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordSolve forwards solver runs to the sinks that support them.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SolveRecorder); ok {
			if err := rec.RecordSolve(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
