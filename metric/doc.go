// Package metric exposes Prometheus metrics for pipeline editing.
//
// NewMetricsRegistry creates a private Prometheus registry holding the core
// Metrics (wiring outcomes, merge counts, validation results, persistence
// gateway calls, event publishing and NATS status) plus Go runtime
// collectors. Components receive the *Metrics value and call its Record
// methods; a nil *Metrics disables recording.
//
//	registry := metric.NewMetricsRegistry()
//	editor := wiring.NewEditor(store, bus, wiring.WithMetrics(registry.CoreMetrics()))
//	mux.Handle("GET /metrics", registry.Handler())
//
// Additional collectors can be added with Register and removed with
// Unregister; a name may only be registered once per service.
package metric
