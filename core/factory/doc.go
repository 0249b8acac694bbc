// Package factory builds configured modules, such as metrics sinks, from a
// type name and a map of raw settings.
//
// A factory decodes the settings with Decode, which follows json tags and
// rejects unknown keys:
//
//	reg := factory.NewRegistry[metrics.AuditSink]()
//	_ = reg.Register("prometheus", func(conf map[string]any) (metrics.AuditSink, error) {
//		var c struct {
//			Addr string `json:"addr"`
//		}
//		if err := factory.Decode(conf, &c); err != nil {
//			return nil, err
//		}
//		return newPromSink(c.Addr), nil
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "prometheus", Conf: map[string]any{"addr": ":9100"}})
package factory
