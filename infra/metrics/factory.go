package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/chpcoupling/core/factory"
	coremetrics "github.com/kilianp07/chpcoupling/core/metrics"
)

// init registers built-in audit sinks.
func init() {
	coremetrics.MustRegisterAuditSink("nop", func(map[string]any) (coremetrics.AuditSink, error) {
		return coremetrics.NopSink{}, nil
	})

	coremetrics.MustRegisterAuditSink("prometheus", func(conf map[string]any) (coremetrics.AuditSink, error) {
		var c struct {
			Addr string `json:"addr"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		s.Addr = c.Addr
		return s, nil
	})

	coremetrics.MustRegisterAuditSink("influx", func(conf map[string]any) (coremetrics.AuditSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
