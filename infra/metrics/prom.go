package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/chpcoupling/core/metrics"
)

// PromSink records audit reports and solver runs in Prometheus metrics.
type PromSink struct {
	audits     *prometheus.CounterVec
	violations *prometheus.CounterVec
	gap        *prometheus.GaugeVec
	solves     *prometheus.HistogramVec

	// Addr is where the exporter should listen, if the sink was configured
	// with one. PromSink itself does not serve.
	Addr     string
	gatherer prometheus.Gatherer
}

// NewPromSink registers audit metrics on the default Prometheus registry.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	audits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chp_audits_total",
		Help: "Total number of CHP pair audits",
	}, []string{"pair", "satisfiable"})
	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chp_audit_violations_total",
		Help: "Total number of coupling violations found by audits",
	}, []string{"pair", "kind", "point"})
	gap := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chp_audit_gap",
		Help: "Gap of the last violation per pair, kind and operating point",
	}, []string{"pair", "kind", "point"})
	solves := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chp_solve_duration_seconds",
		Help:    "Duration of scenario solver runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"pair", "feasible"})

	var err error
	if audits, err = register(reg, audits); err != nil {
		return nil, err
	}
	if violations, err = register(reg, violations); err != nil {
		return nil, err
	}
	if gap, err = register(reg, gap); err != nil {
		return nil, err
	}
	if solves, err = register(reg, solves); err != nil {
		return nil, err
	}

	s := &PromSink{audits: audits, violations: violations, gap: gap, solves: solves, gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}
	return s, nil
}

// register adds c to reg, reusing the collector already registered under the
// same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Gatherer returns the registry the sink's metrics can be scraped from.
func (s *PromSink) Gatherer() prometheus.Gatherer { return s.gatherer }

// RecordAudit counts the audit and its violations and sets the gap gauges.
func (s *PromSink) RecordAudit(ev coremetrics.AuditEvent) error {
	s.audits.WithLabelValues(ev.Pair, strconv.FormatBool(ev.Satisfiable)).Inc()
	for _, v := range ev.Violations {
		s.violations.WithLabelValues(ev.Pair, v.Kind, v.Point).Inc()
		s.gap.WithLabelValues(ev.Pair, v.Kind, v.Point).Set(v.Gap)
	}
	return nil
}

// RecordSolve observes the solver run duration.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Pair, strconv.FormatBool(ev.Feasible)).Observe(ev.Duration.Seconds())
	return nil
}

// FindPromSink returns the first PromSink in s, looking into MultiSinks.
func FindPromSink(s coremetrics.AuditSink) (*PromSink, bool) {
	switch v := s.(type) {
	case *PromSink:
		return v, true
	case *coremetrics.MultiSink:
		for _, sub := range v.Sinks {
			if p, ok := FindPromSink(sub); ok {
				return p, true
			}
		}
	}
	return nil, false
}
