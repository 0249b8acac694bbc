package metrics

// Package metrics defines the sinks that audit reports and solver runs are
// recorded in. Implementations such as the Prometheus and InfluxDB sinks in
// infra/metrics register themselves by type name; NewAuditSink builds the
// configured sinks and wraps several of them in a MultiSink.
