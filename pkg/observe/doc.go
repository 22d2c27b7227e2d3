// Package observe provides store.Observer implementations for Prometheus
// metrics and OpenTelemetry tracing.
//
//	m := observe.NewMetrics(observe.WithRegistry(reg))
//	s := store.New(doc, store.WithObserver(store.Observers{m, observe.NewTracing()}))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package observe
