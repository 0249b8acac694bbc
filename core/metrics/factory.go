package metrics

import "github.com/kilianp07/chpcoupling/core/factory"

var sinkRegistry = factory.NewRegistry[AuditSink]()

// RegisterAuditSink adds a sink factory identified by name.
func RegisterAuditSink(name string, f factory.Factory[AuditSink]) error {
	return sinkRegistry.Register(name, f)
}

// MustRegisterAuditSink is RegisterAuditSink for package init.
func MustRegisterAuditSink(name string, f factory.Factory[AuditSink]) {
	sinkRegistry.MustRegister(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string {
	return sinkRegistry.Types()
}

// NewAuditSink creates an AuditSink from the provided configuration.
func NewAuditSink(cfgs []factory.ModuleConfig) (AuditSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	sinks, err := sinkRegistry.CreateAll(cfgs)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
